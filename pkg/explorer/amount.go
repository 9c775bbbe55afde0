package explorer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount ...
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrFractionalAmount is returned when a decimal amount does not resolve
	// to a whole number of smallest units.
	ErrFractionalAmount = errors.New(
		"amount has more precision than the smallest unit",
	)
)

// AmountFromDecimalString converts a coin-denominated decimal string (as
// returned by several provider APIs) into integer smallest units. All wallet
// arithmetic is integer; decimals exist only at this boundary.
func AmountFromDecimalString(amount string, decimals int32) (uint64, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("parsing amount: %w", err)
	}
	return amountFromDecimal(parsed, decimals)
}

// FeeRateFromFloat normalizes a float fee estimate (units per vbyte) into an
// integer FeeRate, rounding up so estimates never underpay.
func FeeRateFromFloat(rate float64) (FeeRate, error) {
	parsed := decimal.NewFromFloat(rate)
	if parsed.IsNegative() {
		return 0, ErrNegativeAmount
	}
	ceiled := parsed.Ceil()
	return FeeRate(ceiled.IntPart()), nil
}

func amountFromDecimal(amount decimal.Decimal, decimals int32) (uint64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	scaled := amount.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrFractionalAmount
	}
	return uint64(scaled.IntPart()), nil
}
