// Package money converts between decimal amount strings and integer cents.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned for strings that are not decimal numbers.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSubCent is returned when an amount has more than two fractional digits.
	ErrSubCent = errors.New("amount has fractions of a cent")
	// ErrOutOfRange is returned when an amount does not fit in int64 cents.
	ErrOutOfRange = errors.New("amount out of range")
)

// MaxAmountCents caps a single expense (ten billion in major units). Balances
// built from capped amounts stay far from the int64 limit.
const MaxAmountCents int64 = 1_000_000_000_000

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ParseCents parses "30", "30.5" or "-0.01" into cents. Rounding never happens.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q", ErrSubCent, s)
	}
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents with exactly two decimals, e.g. -1050 as "-10.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
