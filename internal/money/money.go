// Package money represents amounts as integer minor units (cents) so that
// ledger arithmetic is exact. Conversion from user-facing decimal values is
// done with a decimal representation; binary floats never decide rounding.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor currency units. Positive or negative.
type Cents int64

// symbols maps well-known currency codes to display prefixes.
// Anything else renders as "<CODE> <amount>".
var symbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
	"JPY": "¥",
	"AUD": "A$",
	"CAD": "C$",
}

// FromString converts a user-facing decimal string (e.g. "12.345") to cents.
// The value is rounded half-up to two decimal places before scaling.
func FromString(s string) (Cents, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return fromDecimal(d), nil
}

// FromFloat converts a user-facing decimal value to cents. The float is first
// lifted into a decimal so the half-up rounding decision is exact.
func FromFloat(v float64) Cents {
	return fromDecimal(decimal.NewFromFloat(v))
}

func fromDecimal(d decimal.Decimal) Cents {
	// Round half-up to 2 decimal places, then shift into integer cents.
	return Cents(d.Round(2).Shift(2).IntPart())
}

// Decimal returns the amount as a decimal major-unit value, e.g. 1234 -> 12.34.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 returns the major-unit value as a float, for boundaries that speak
// JSON numbers. Ledger arithmetic never uses this.
func (c Cents) Float64() float64 {
	return c.Decimal().InexactFloat64()
}

// Format renders the amount for display, prefixing the symbol for known
// currency codes and falling back to "<CODE> <amount>".
func Format(code string, amount Cents) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	value := amount.Decimal().StringFixed(2)
	if sym, ok := symbols[code]; ok {
		return sym + value
	}
	if code == "" {
		return value
	}
	return code + " " + value
}

// NormalizeCurrency uppercases a free-text currency label. Codes are opaque;
// no ISO validation beyond this.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
