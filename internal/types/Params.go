/*

This file contains the tunable staking parameters shared by every position.

A single global parameter set applies uniformly to all positions. Changing a
rate never rewrites rewards that were already settled; it only changes future
accrual from each position's current settlement point onward.

*/

package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

const (
	// BpsDenominator is the basis-point scale: 10000 bps = 100%.
	BpsDenominator = 10000

	// MaxBaseRateBps caps the base annual rate at 100%/year.
	MaxBaseRateBps = 10000

	// MinTierMultiplierBps is the floor for tier multipliers. Multipliers can
	// only amplify the base rate, never discount it.
	MinTierMultiplierBps = 10000
)

// StakingParameters holds the administrator-tunable rate configuration.
// Different versions of these parameters are persisted over time; exactly one
// set is active.
type StakingParameters struct {
	// BaseRateBps is the global annual interest rate in basis points,
	// 0..10000 inclusive.
	BaseRateBps uint64 `json:"base_rate_bps"`

	// TierMultiplierBps scales the base rate per tier, indexed by LockTier.
	// Each entry is at least 10000 (1.00x).
	TierMultiplierBps [NumLockTiers]uint64 `json:"tier_multiplier_bps"`

	// MinStakeAmount is the smallest principal accepted by a stake call,
	// in base token units. Always positive.
	MinStakeAmount sdkmath.Int `json:"min_stake_amount"`
}

// Validate checks every field against its allowed bounds.
func (p StakingParameters) Validate() error {
	if p.BaseRateBps > MaxBaseRateBps {
		return fmt.Errorf("%w: base rate %d bps exceeds %d", ErrInvalidRate, p.BaseRateBps, MaxBaseRateBps)
	}
	for tier, mult := range p.TierMultiplierBps {
		if mult < MinTierMultiplierBps {
			return fmt.Errorf("%w: multiplier %d bps for tier %s is below %d", ErrInvalidRate, mult, LockTier(tier), MinTierMultiplierBps)
		}
	}
	if p.MinStakeAmount.IsNil() || !p.MinStakeAmount.IsPositive() {
		return fmt.Errorf("%w: minimum stake amount must be positive", ErrInvalidAmount)
	}
	return nil
}
