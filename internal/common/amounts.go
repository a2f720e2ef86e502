package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a human-entered amount in major units (e.g. "12.50")
// into minor units at the given exponent (e.g. 2 → 1250). The protocol and
// ledger deal exclusively in integer minor units; this is the operator-edge
// conversion.
func ParseAmount(value string, exponent int32) (int64, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("amount must be greater than zero")
	}

	minor := amount.Shift(exponent)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", value, exponent)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s overflows minor units", value)
	}

	return minor.IntPart(), nil
}

// FormatAmount renders minor units back into major units for display.
func FormatAmount(minor int64, exponent int32) string {
	return decimal.NewFromInt(minor).Shift(-exponent).StringFixed(exponent)
}
