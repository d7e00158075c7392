/*

This file contains the types for staking positions and the operation receipts
recorded for every successful state-changing call.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Position is one account's stake under one lock tier. At most one active
// position exists per (account, tier) slot; re-staking into an occupied slot
// is rejected, never merged.
type Position struct {
	Tier               LockTier    `json:"lock_tier"`
	Principal          sdkmath.Int `json:"principal"`            // Staked amount in base token units, excludes unsettled reward
	UnlockTime         int64       `json:"unlock_time"`          // Unix seconds after which principal may be withdrawn
	LastSettlementTime int64       `json:"last_settlement_time"` // Unix seconds of the last reward settlement (stake, claim or compound)
	Active             bool        `json:"active"`
}

// OperationKind names a state-changing vault operation in receipts and logs.
type OperationKind string

const (
	OpStake          OperationKind = "STAKE"
	OpClaim          OperationKind = "CLAIM"
	OpCompound       OperationKind = "COMPOUND"
	OpUnstake        OperationKind = "UNSTAKE"
	OpDepositRewards OperationKind = "DEPOSIT_REWARDS"
	OpRecoverAsset   OperationKind = "RECOVER_ASSET"
)

// OperationReceipt is the audit record persisted after a successful
// state-changing operation.
type OperationReceipt struct {
	ReceiptID string        `json:"receipt_id"`
	Operation OperationKind `json:"operation"`
	Account   string        `json:"account"`
	Tier      LockTier      `json:"lock_tier"`
	Amount    sdkmath.Int   `json:"amount"` // Principal moved for stake/unstake, reward for claim/compound, deposit amount otherwise
	Timestamp time.Time     `json:"timestamp"`
}
