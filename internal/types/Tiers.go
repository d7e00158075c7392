/*

This file contains the lock tier enumeration and its associated lock durations.

The tier set is deliberately closed: exactly four variants. Tier durations are
static; only the per-tier reward multipliers are tunable (see Params.go).

*/

package types

import "fmt"

// LockTier identifies one of the four fixed lock-duration buckets.
type LockTier int

const (
	TierFlex        LockTier = iota // No lock, principal withdrawable at any time
	TierOneMonth                    // 30 day lock
	TierThreeMonths                 // 90 day lock
	TierSixMonths                   // 180 day lock

	// NumLockTiers is the size of the closed tier set.
	NumLockTiers = 4
)

const (
	secondsPerDay = 24 * 60 * 60

	flexLockSeconds        = 0
	oneMonthLockSeconds    = 30 * secondsPerDay
	threeMonthsLockSeconds = 90 * secondsPerDay
	sixMonthsLockSeconds   = 180 * secondsPerDay
)

// lockDurations maps each tier to its lock duration in seconds.
var lockDurations = [NumLockTiers]int64{
	TierFlex:        flexLockSeconds,
	TierOneMonth:    oneMonthLockSeconds,
	TierThreeMonths: threeMonthsLockSeconds,
	TierSixMonths:   sixMonthsLockSeconds,
}

var tierNames = [NumLockTiers]string{
	TierFlex:        "flex",
	TierOneMonth:    "1m",
	TierThreeMonths: "3m",
	TierSixMonths:   "6m",
}

// Valid reports whether t is one of the four known tiers.
func (t LockTier) Valid() bool {
	return t >= TierFlex && t < NumLockTiers
}

// LockDurationSeconds returns the lock duration for the tier in seconds.
// Zero for TierFlex.
func (t LockTier) LockDurationSeconds() int64 {
	if !t.Valid() {
		return 0
	}
	return lockDurations[t]
}

func (t LockTier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("unknown(%d)", int(t))
	}
	return tierNames[t]
}

// ParseLockTier parses the short tier name used by the HTTP API ("flex",
// "1m", "3m", "6m").
func ParseLockTier(s string) (LockTier, error) {
	for i, name := range tierNames {
		if s == name {
			return LockTier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown lock tier %q", ErrInvalidTier, s)
}

// AllLockTiers returns the tier set in ascending lock-duration order.
func AllLockTiers() [NumLockTiers]LockTier {
	return [NumLockTiers]LockTier{TierFlex, TierOneMonth, TierThreeMonths, TierSixMonths}
}
