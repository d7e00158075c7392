/*

This file contains the reward accrual math. Everything here is pure: given a
position, a timestamp and the current rate parameters, compute the reward owed
since the last settlement. Nothing in this file mutates state; settlement is
the caller's job and must happen atomically with the computation it uses.

*/

package staking

import (
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/svm/internal/types"
)

// SecondsPerYear is the fixed accrual year: 365 days, never adjusted for
// leap years.
const SecondsPerYear = 365 * 24 * 60 * 60

// EffectiveRateBps combines the base annual rate with a tier multiplier,
// truncating to whole basis points.
func EffectiveRateBps(baseRateBps, tierMultiplierBps uint64) sdkmath.Int {
	return sdkmath.NewIntFromUint64(baseRateBps).
		Mul(sdkmath.NewIntFromUint64(tierMultiplierBps)).
		Quo(sdkmath.NewInt(types.BpsDenominator))
}

// AccruedReward computes the reward owed to a position at the given unix
// timestamp under the given rate parameters:
//
//	reward = principal * effectiveRateBps * elapsed / (10000 * SecondsPerYear)
//
// All intermediate products stay in big-integer space, so the computation
// cannot overflow for any realistic principal, rate or elapsed window. A
// timestamp at or before the last settlement yields exactly zero; elapsed
// time is never treated as negative.
func AccruedReward(pos types.Position, now int64, baseRateBps, tierMultiplierBps uint64) sdkmath.Int {
	if !pos.Active {
		return sdkmath.ZeroInt()
	}
	if now <= pos.LastSettlementTime {
		return sdkmath.ZeroInt()
	}
	elapsed := now - pos.LastSettlementTime

	numerator := pos.Principal.
		Mul(EffectiveRateBps(baseRateBps, tierMultiplierBps)).
		Mul(sdkmath.NewInt(elapsed))
	denominator := sdkmath.NewInt(types.BpsDenominator).Mul(sdkmath.NewInt(SecondsPerYear))
	return numerator.Quo(denominator)
}
