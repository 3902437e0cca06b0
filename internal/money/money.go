// Package money holds the fixed-point helpers used for wallet amounts.
// Amounts are decimal.Decimal values with at most two fractional digits,
// stored as NUMERIC(18,2).
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits a wallet amount may carry.
const Scale = 2

// ErrInvalidAmount is returned for zero, negative, or over-precise amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse reads a user-supplied amount such as "12.50".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FromInt returns a whole-unit amount.
func FromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// ValidatePositive reports ErrInvalidAmount unless d > 0 and has no more
// than Scale fractional digits.
func ValidatePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, d.String())
	}
	return validateScale(d)
}

// ValidateNonZero is ValidatePositive for signed amounts.
func ValidateNonZero(d decimal.Decimal) error {
	if d.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", ErrInvalidAmount)
	}
	return validateScale(d)
}

func validateScale(d decimal.Decimal) error {
	if !d.Equal(d.Round(Scale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, d.String(), Scale)
	}
	return nil
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Sum adds amounts.
func Sum(ds ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}
