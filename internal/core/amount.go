// Package core holds the domain model and the pure computation engine:
// trip cost, aggregation, monthly balance and access filtering.
//
// This file contains parsing and formatting for monetary and odometer
// values. Values are kept as exact decimals in storage and rounded to two
// places only when presented.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a strictly positive decimal amount. Both dot and comma
// decimal separators are accepted.
//
// Examples:
//
//	ParseAmount("12.25") -> 12.25, nil
//	ParseAmount("12,25") -> 12.25, nil
//	ParseAmount("0")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// ParseNonNegative parses a decimal that may be zero, for odometer readings
// and the optional liters field.
func ParseNonNegative(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// FormatMoney renders a value with two decimal places for display and CSV
// export. Storage keeps the unrounded value.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
