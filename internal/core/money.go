package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-supplied decimal amount. Thousands separators
// (commas) are stripped before conversion. The result must be positive.
//
// Examples:
//
//	ParseAmount("1,250.00") -> 1250.00
//	ParseAmount("500")      -> 500
//	ParseAmount("-3")       -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseDecimal is ParseAmount without the sign check.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
