// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal in memory and as integer cents
// at the storage boundary.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaxAmount is the largest amount any entity may carry. Its cents fit an
// int64 with room to sum a ledger's worth of rows.
var MaxAmount = decimal.NewFromInt(1_000_000_000_000)

// InRange reports whether d is positive and no larger than MaxAmount.
func InRange(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThanOrEqual(MaxAmount)
}

// ParseAmount converts a user-entered decimal string into an amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Negative, zero and malformed values
// return ErrInvalidAmount, as do values above MaxAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !InRange(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ToCents converts an amount to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents converts stored integer cents back into an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatEuros renders an amount as "€1234,56" for the templates.
func FormatEuros(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	s = strings.Replace(s, ".", ",", 1)
	if d.IsNegative() {
		return "-€" + s
	}
	return "€" + s
}
