package payments

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number: expected a Safaricom number such as 254712345678")

// NormalizePhone converts the common Kenyan mobile formats (+2547..., 2547...,
// 07..., 7..., and the 01/2541 ranges) to the 12 digit 254XXXXXXXXX form the
// gateway expects. Spaces, dashes and parentheses are ignored.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "254"):
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		digits = "254" + digits[1:]
	case len(digits) == 9:
		digits = "254" + digits
	default:
		return "", ErrInvalidPhone
	}

	if digits[3] != '7' && digits[3] != '1' {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
