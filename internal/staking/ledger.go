/*

This file contains the position ledger: the set of open positions keyed by
(account, tier) and the running total of staked principal.

totalStaked is maintained by construction: every mutation of a position's
principal goes through open/addPrincipal/close, each of which applies the
equal-and-opposite adjustment to the total in the same call.

*/

package staking

import (
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/svm/internal/types"
)

type positionKey struct {
	account string
	tier    types.LockTier
}

// ledger owns all open positions. It is not safe for concurrent use on its
// own; the vault's operation lock serializes access.
type ledger struct {
	positions   map[positionKey]types.Position
	totalStaked sdkmath.Int
}

func newLedger() *ledger {
	return &ledger{
		positions:   make(map[positionKey]types.Position),
		totalStaked: sdkmath.ZeroInt(),
	}
}

func (l *ledger) get(account string, tier types.LockTier) (types.Position, bool) {
	pos, ok := l.positions[positionKey{account, tier}]
	return pos, ok
}

func (l *ledger) has(account string, tier types.LockTier) bool {
	_, ok := l.positions[positionKey{account, tier}]
	return ok
}

// open creates the position for an empty slot and grows totalStaked by its
// principal. The caller has already checked the slot is empty.
func (l *ledger) open(account string, pos types.Position) {
	l.positions[positionKey{account, pos.Tier}] = pos
	l.totalStaked = l.totalStaked.Add(pos.Principal)
}

// settle overwrites the stored position with a new settlement time, leaving
// principal and totalStaked untouched.
func (l *ledger) settle(account string, tier types.LockTier, settlementTime int64) types.Position {
	key := positionKey{account, tier}
	pos := l.positions[key]
	pos.LastSettlementTime = settlementTime
	l.positions[key] = pos
	return pos
}

// addPrincipal grows a position's principal and totalStaked by the same
// amount, resetting the settlement clock. Used by compound.
func (l *ledger) addPrincipal(account string, tier types.LockTier, amount sdkmath.Int, settlementTime int64) types.Position {
	key := positionKey{account, tier}
	pos := l.positions[key]
	pos.Principal = pos.Principal.Add(amount)
	pos.LastSettlementTime = settlementTime
	l.positions[key] = pos
	l.totalStaked = l.totalStaked.Add(amount)
	return pos
}

// close fully clears a slot and shrinks totalStaked by the position's
// principal. Positions are never reused; the slot returns to empty.
func (l *ledger) close(account string, tier types.LockTier) types.Position {
	key := positionKey{account, tier}
	pos := l.positions[key]
	delete(l.positions, key)
	l.totalStaked = l.totalStaked.Sub(pos.Principal)
	return pos
}

// restore re-applies a position exactly as stored, used only on a failed
// outbound transfer and at startup restore.
func (l *ledger) restore(account string, pos types.Position, totalDelta sdkmath.Int) {
	l.positions[positionKey{account, pos.Tier}] = pos
	l.totalStaked = l.totalStaked.Add(totalDelta)
}

// positionsFor returns the account's open positions in tier order.
func (l *ledger) positionsFor(account string) []types.Position {
	out := make([]types.Position, 0, types.NumLockTiers)
	for _, tier := range types.AllLockTiers() {
		if pos, ok := l.positions[positionKey{account, tier}]; ok {
			out = append(out, pos)
		}
	}
	return out
}
