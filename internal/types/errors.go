package types

import "errors"

// Sentinel errors for the staking vault. Every failed operation wraps exactly
// one of these so callers can distinguish causes with errors.Is; no operation
// ever fails with a generic error.
var (
	// ErrInvalidAmount is returned for a zero or out-of-range amount where a
	// positive amount is required (stake below minimum, zero deposit/recovery).
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRate is returned when a rate or multiplier update falls
	// outside its allowed bound.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrInvalidTier is returned for a tier outside the closed four-variant set.
	ErrInvalidTier = errors.New("invalid lock tier")

	// ErrPositionExists is returned when staking into an occupied (account, tier) slot.
	ErrPositionExists = errors.New("position already exists for tier")

	// ErrNoActivePosition is returned by claim/compound/unstake against an empty slot.
	ErrNoActivePosition = errors.New("no active position")

	// ErrStillLocked is returned when unstaking before the tier's unlock time.
	ErrStillLocked = errors.New("position still locked")

	// ErrInsufficientRewards is returned when the pool cannot cover the reward
	// portion of a payout. The position is left untouched so the same call can
	// be retried after the pool is replenished.
	ErrInsufficientRewards = errors.New("insufficient rewards in pool")

	// ErrCannotRecoverStakedAsset is returned when asset recovery targets the
	// staking token itself.
	ErrCannotRecoverStakedAsset = errors.New("cannot recover the staked asset")

	// ErrUnauthorized is returned when a privileged operation is invoked by a
	// non-administrator.
	ErrUnauthorized = errors.New("caller is not the administrator")

	// ErrPaused is returned for gated operations while the vault is paused.
	// Unstake is exempt so users can always exit.
	ErrPaused = errors.New("vault is paused")

	// ErrAdminNotMultiParty rejects vault construction when the administrator
	// identity is a single-key account.
	ErrAdminNotMultiParty = errors.New("administrator must be a multi-party account")
)
