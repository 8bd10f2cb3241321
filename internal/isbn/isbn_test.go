package isbn

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"hyphenated 13", "978-0-14-143951-8", "9780141439518"},
		{"spaces", "0 306 40615 2", "0306406152"},
		{"check X kept", "0-8044-2957-X", "080442957X"},
		{"lowercase x dropped", "0-8044-2957-x", "080442957"},
		{"prefix text", "ISBN: 0306406152", "0306406152"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestTo13(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0141439518", "9780141439518", true},
		{"0141439513", "9780141439518", true},
		{"0-306-40615-2", "9780306406157", true},
		{"080442957X", "9780804429573", true},
		{"0-8044-2957-x", "9780804429573", true},
		{"X123456789", "", false},
		{"X12345678", "", false},
		{"12345", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := To13(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTo10(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9780141439518", "0141439513", true},
		{"978-0-306-40615-7", "0306406152", true},
		{"9780804429573", "080442957X", true},
		{"9780000000002", "0000000000", true},
		{"9791234567896", "", false},
		{"978014143951", "", false},
		{"97801414395X8", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := To10(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	// Every valid ISBN-10 survives 10 -> 13 -> 10 unchanged.
	for n := 0; n < 1_000_000_000; n += 7_919_993 {
		body := fmt.Sprintf("%09d", n)
		check, ok := isbn10CheckDigit(body)
		require.True(t, ok)
		isbn10 := body + string(check)

		isbn13, ok := To13(isbn10)
		require.True(t, ok, isbn10)
		assert.True(t, Valid13(isbn13), isbn13)

		back, ok := To10(isbn13)
		require.True(t, ok, isbn13)
		assert.Equal(t, Normalize(isbn10), back)
	}
}

func TestRoundTrip_Hyphenated(t *testing.T) {
	isbn13, ok := To13("0-8044-2957-X")
	require.True(t, ok)
	back, ok := To10(isbn13)
	require.True(t, ok)
	assert.Equal(t, Normalize("0-8044-2957-X"), back)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid10("0306406152"))
	assert.True(t, Valid10("080442957X"))
	assert.False(t, Valid10("0306406153"))
	assert.False(t, Valid10("030640615"))

	assert.True(t, Valid13("9780306406157"))
	assert.True(t, Valid13("978-0-14-143951-8"))
	assert.False(t, Valid13("9780306406158"))
	assert.False(t, Valid13("97803064061"))
}
