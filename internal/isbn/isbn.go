// Package isbn canonicalizes ISBN strings and converts between the
// ISBN-10 and ISBN-13 forms.
//
// Converters never panic on bad input. They return ("", false) and leave the
// decision to store the raw string to the caller.
package isbn

import "strings"

// Prefix is the only EAN prefix that has an ISBN-10 equivalent.
const Prefix = "978"

// Normalize strips every character except digits and the check character X.
//
// Lowercase x is dropped like any other character.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == 'X' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// To13 converts an ISBN-10 to its ISBN-13 form.
//
// The original check digit is dropped, "978" is prepended to the remaining
// nine digits and a new EAN-13 check digit is appended.
// Nine characters are accepted too, since Normalize drops a lowercase check
// digit "x". Returns false for any other length or when any of the nine
// retained characters is not a digit.
func To13(isbn10 string) (string, bool) {
	s := Normalize(isbn10)
	if len(s) != 9 && len(s) != 10 {
		return "", false
	}

	prefix := Prefix + s[:9]
	check, ok := ean13CheckDigit(prefix)
	if !ok {
		return "", false
	}
	return prefix + string(check), true
}

// To10 converts a 978-prefixed ISBN-13 to its ISBN-10 form.
//
// Returns false for any other prefix (979 ISBNs have no ISBN-10), for input
// that does not normalize to thirteen characters, and for non-numeric content.
func To10(isbn13 string) (string, bool) {
	s := Normalize(isbn13)
	if len(s) != 13 || s[:3] != Prefix {
		return "", false
	}

	body := s[3:12]
	check, ok := isbn10CheckDigit(body)
	if !ok {
		return "", false
	}
	return body + string(check), true
}

// Valid10 reports whether s normalizes to an ISBN-10 with a correct check digit.
func Valid10(s string) bool {
	n := Normalize(s)
	if len(n) != 10 {
		return false
	}
	check, ok := isbn10CheckDigit(n[:9])
	return ok && n[9] == check
}

// Valid13 reports whether s normalizes to an ISBN-13 with a correct check digit.
func Valid13(s string) bool {
	n := Normalize(s)
	if len(n) != 13 {
		return false
	}
	check, ok := ean13CheckDigit(n[:12])
	return ok && n[12] == check
}

// ean13CheckDigit computes (10 - (Σodd + 3·Σeven) mod 10) mod 10 over a
// 12-digit prefix, positions counted from one.
func ean13CheckDigit(prefix string) (byte, bool) {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		d, ok := digit(prefix[i])
		if !ok {
			return 0, false
		}
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return byte('0' + (10-sum%10)%10), true
}

// isbn10CheckDigit computes 11 - (Σ d·(10-i) mod 11) over nine digits.
// A result of 10 is written as X and a result of 11 wraps to 0.
func isbn10CheckDigit(body string) (byte, bool) {
	sum := 0
	for i := 0; i < len(body); i++ {
		d, ok := digit(body[i])
		if !ok {
			return 0, false
		}
		sum += d * (10 - i)
	}
	switch c := (11 - sum%11) % 11; c {
	case 10:
		return 'X', true
	default:
		return byte('0' + c), true
	}
}

func digit(c byte) (int, bool) {
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}
