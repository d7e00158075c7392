/*
This file contains common utility functions for converting between wire-level
strings and SDK math types, with zero-tolerance validation.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/svm/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountEmpty    = errors.New("amount is empty")
	ErrAmountInvalid  = errors.New("amount is not a valid integer")
	ErrAmountNegative = errors.New("amount is negative")
)

// ParseAmount converts a decimal string into an sdkmath.Int, rejecting empty,
// malformed and negative inputs. Amounts are always whole base units; no
// fractional input is accepted.
func ParseAmount(s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.Int{}, ErrAmountEmpty
	}
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %q", ErrAmountInvalid, s)
	}
	if amount.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrAmountNegative, s)
	}
	return amount, nil
}

// BpsToPercent renders a basis-point value as a human-readable percentage
// string, e.g. 1250 -> "12.50%".
func BpsToPercent(bps uint64) string {
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}

// EffectiveRatePercent renders a big-int effective rate (in bps) as a
// percentage string for API responses.
func EffectiveRatePercent(rateBps sdkmath.Int) string {
	hundred := sdkmath.NewInt(types.BpsDenominator / 100)
	whole := rateBps.Quo(hundred)
	frac := rateBps.Mod(hundred)
	return fmt.Sprintf("%s.%02d%%", whole, frac.Int64())
}
