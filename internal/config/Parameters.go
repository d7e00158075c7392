/*

This file contains the default staking parameters.

These defaults apply when no active parameter set is found in the database
during initialization. Every later change goes through the vault's validated
administrator setters and is persisted as a new version.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/svm/internal/types"
)

// DefaultStakingParameters provides the baseline rate configuration.
var DefaultStakingParameters = types.StakingParameters{
	BaseRateBps: 1200, // 12% per year.
	// Rationale: a sustainable headline rate for a pre-funded pool. The
	// administrator can lower it to 0 or raise it up to 100%/year; anything
	// above that cap is certainly a typo and is rejected.

	TierMultiplierBps: [types.NumLockTiers]uint64{
		types.TierFlex:        10000, // 1.00x - no lock, no premium.
		types.TierOneMonth:    12500, // 1.25x for a 30 day lock.
		types.TierThreeMonths: 15000, // 1.50x for a 90 day lock.
		types.TierSixMonths:   20000, // 2.00x for a 180 day lock.
	},
	// Rationale: multipliers reward commitment. They can only amplify the
	// base rate (floor 1.00x), so lowering yield for everyone is done through
	// the single base rate, never by hiding a discount in one tier.

	MinStakeAmount: sdkmath.NewInt(1_000_000), // 1 token at 6 decimal places.
	// Rationale: dust positions cost more to track than they earn. One whole
	// token keeps the ledger meaningful without excluding small holders.
}
