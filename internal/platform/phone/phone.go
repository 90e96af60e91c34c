// Package phone normalizes Philippine mobile numbers to E.164.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalid is returned for numbers that are not Philippine mobile numbers.
var ErrInvalid = errors.New("invalid mobile number")

// Normalize converts 09XXXXXXXXX, 9XXXXXXXXX, 639XXXXXXXXX and
// +639XXXXXXXXX forms (with spaces, dashes, dots or parentheses) to
// +639XXXXXXXXX.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalid
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "09"):
		digits = "63" + digits[1:]
	case len(digits) == 10 && strings.HasPrefix(digits, "9"):
		digits = "63" + digits
	case len(digits) == 12 && strings.HasPrefix(digits, "639"):
	default:
		return "", ErrInvalid
	}
	return "+" + digits, nil
}

// Valid reports whether raw normalizes.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
