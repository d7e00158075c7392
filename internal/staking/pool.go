/*

This file contains the reward pool accounting. The pool is not tracked as a
separate balance: it is derived as custody balance minus total staked, so user
principal can never be spent as reward by construction.

*/

package staking

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/svm/internal/types"
)

// AvailableRewards derives the reward pool from the custody token balance and
// the ledger's total staked amount. Never negative: a custody shortfall
// reports an empty pool rather than a negative one.
func AvailableRewards(custodyBalance, totalStaked sdkmath.Int) sdkmath.Int {
	if custodyBalance.LTE(totalStaked) {
		return sdkmath.ZeroInt()
	}
	return custodyBalance.Sub(totalStaked)
}

// assertSufficient gates a reward payout against the pool. The caller must
// pass an available amount derived from the balance read immediately before
// the paying mutation; a stale read here is a correctness bug.
func assertSufficient(requested, available sdkmath.Int) error {
	if requested.GT(available) {
		return fmt.Errorf("%w: requested %s, pool holds %s", types.ErrInsufficientRewards, requested, available)
	}
	return nil
}
