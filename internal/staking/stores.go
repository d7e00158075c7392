package staking

import (
	"github.com/elys-network/svm/internal/types"
)

// PositionStore is the durability hook for open positions. The in-memory
// ledger stays authoritative; the vault writes through after every successful
// mutation and restores from the store at construction.
type PositionStore interface {
	UpsertPosition(account string, pos types.Position) error
	DeletePosition(account string, tier types.LockTier) error
	LoadPositions() (map[string][]types.Position, error)
}

// ParameterStore persists versioned staking parameters. Each successful
// administrator update saves a new active version.
type ParameterStore interface {
	SaveStakingParameters(params types.StakingParameters, configName string, version int, makeActive bool) (int64, error)
}

// ReceiptStore records the audit trail of successful operations.
type ReceiptStore interface {
	InsertOperationReceipt(receipt types.OperationReceipt) error
}
