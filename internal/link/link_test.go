package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/auth"
)

var (
	moderator = auth.Actor{ID: "mod", Permissions: []string{auth.PermModeratePost}}
	reader    = auth.Actor{ID: "reader"}
)

func TestNewDomain(t *testing.T) {
	d := NewDomain("gutenberg.org")
	assert.Equal(t, StatusPending, d.Status)
	assert.Equal(t, "gutenberg.org", d.Name)
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		from, to Status
		changed  bool
		err      error
	}{
		{StatusPending, StatusApproved, true, nil},
		{StatusPending, StatusBlocked, true, nil},
		{StatusApproved, StatusBlocked, true, nil},
		{StatusBlocked, StatusApproved, true, nil},
		{StatusApproved, StatusApproved, false, nil},
		{StatusPending, StatusPending, false, nil},
		{StatusApproved, StatusPending, false, ErrInvalidTransition},
		{StatusBlocked, StatusPending, false, ErrInvalidTransition},
		{StatusPending, Status("trusted"), false, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			d := NewDomain("example.com")
			d.Status = tt.from
			changed, err := d.SetStatus(moderator, auth.PermissionSet{}, tt.to)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, tt.from, d.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.to, d.Status)
		})
	}
}

func TestSetStatusPermissionDenied(t *testing.T) {
	for _, to := range []Status{StatusApproved, StatusBlocked, StatusPending} {
		d := NewDomain("example.com")
		changed, err := d.SetStatus(reader, auth.PermissionSet{}, to)
		assert.ErrorIs(t, err, auth.ErrPermissionDenied)
		assert.False(t, changed)
		assert.Equal(t, StatusPending, d.Status)
	}
}

func TestRename(t *testing.T) {
	d := NewDomain("standardebooks.org")
	require.NoError(t, d.Rename(moderator, auth.PermissionSet{}, "Standard Ebooks"))
	assert.Equal(t, "Standard Ebooks", d.Name)

	assert.ErrorIs(t, d.Rename(reader, auth.PermissionSet{}, "x"), auth.ErrPermissionDenied)
	assert.Equal(t, "Standard Ebooks", d.Name)

	require.NoError(t, d.Rename(moderator, auth.PermissionSet{}, "  "))
	assert.Equal(t, "standardebooks.org", d.Name)
}

func TestHostname(t *testing.T) {
	host, err := Hostname("https://www.Gutenberg.org:443/ebooks/1342")
	require.NoError(t, err)
	assert.Equal(t, "www.gutenberg.org", host)

	for _, raw := range []string{"", "gutenberg.org/ebooks/1", "ftp://example.com/x", "https://", "http://[::1"} {
		_, err := Hostname(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestParse(t *testing.T) {
	a, err := ParseAvailability("")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityFree, a)
	a, err = ParseAvailability("Loan")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityLoan, a)
	_, err = ParseAvailability("rent")
	assert.Error(t, err)

	s, err := ParseStatus("BLOCKED")
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, s)
	_, err = ParseStatus("open")
	assert.Error(t, err)
}
