// Package money converts between major-unit decimal amounts used on the wire and the
// int64 minor units stored everywhere else.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be positive with at most 2 decimal places")

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// ToMinor converts 12.34 to 1234. Amounts must be positive, carry at most two decimals
// and fit in int64 minor units.
func ToMinor(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	minor := amount.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) || minor.GreaterThan(maxMinor) {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// ParseMinor parses a decimal string such as "199.50".
func ParseMinor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return ToMinor(d)
}

// FormatMinor renders minor units with exactly two decimals, e.g. 1999 -> "19.99".
func FormatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
