// Package isbn validates book identifiers in the ISBN-10 and ISBN-13
// schemes, including their embedded check digit.
package isbn

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid ISBN: must be 10 or 13 characters")

var ErrChecksum = errors.New("invalid ISBN: checksum mismatch")

// Normalize strips everything except digits and the letter X (upper-cased).
// It does not validate; callers that need a checked identifier use Validate.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteByte('X')
		}
	}
	return b.String()
}

// Validate normalizes raw and verifies its check digit. It returns the
// normalized identifier on success. Length is a hard precondition: anything
// other than 10 or 13 characters fails before any checksum is computed.
func Validate(raw string) (string, error) {
	val := Normalize(raw)

	switch len(val) {
	case 13:
		if !checkISBN13(val) {
			return "", ErrChecksum
		}
	case 10:
		if !checkISBN10(val) {
			return "", ErrChecksum
		}
	default:
		return "", ErrInvalid
	}
	return val, nil
}

// checkISBN13 weights the first 12 digits alternating 1 and 3; the expected
// check digit is (10 - sum mod 10) mod 10.
func checkISBN13(val string) bool {
	sum := 0
	for i := 0; i < 12; i++ {
		digit := int(val[i] - '0')
		if digit < 0 || digit > 9 {
			return false
		}
		if i%2 == 1 {
			sum += 3 * digit
		} else {
			sum += digit
		}
	}
	check := (10 - sum%10) % 10
	return byte('0'+check) == val[12]
}

// checkISBN10 weights the first 9 digits with descending weights 10..2; the
// expected check value is (11 - sum mod 11) mod 11, rendered as X when 10.
func checkISBN10(val string) bool {
	sum := 0
	weight := 10
	for i := 0; i < 9; i++ {
		digit := int(val[i] - '0')
		if digit < 0 || digit > 9 {
			return false
		}
		sum += weight * digit
		weight--
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return val[9] == 'X'
	}
	return byte('0'+check) == val[9]
}
