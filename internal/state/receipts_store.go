// ./internal/state/receipts_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/svm/internal/types"
)

// InsertOperationReceipt appends one audit row for a successful operation.
func InsertOperationReceipt(receipt types.OperationReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
        INSERT INTO operation_receipts (receipt_id, op_timestamp, operation, account, lock_tier, amount)
        VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := DB.Exec(stmt,
		receipt.ReceiptID, receipt.Timestamp, string(receipt.Operation),
		receipt.Account, int(receipt.Tier), receipt.Amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation receipt %s: %w", receipt.ReceiptID, err)
	}
	return nil
}

// GetRecentReceipts returns the most recent operation receipts, newest first.
func GetRecentReceipts(limit int) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
        SELECT receipt_id, op_timestamp, operation, account, lock_tier, amount
        FROM operation_receipts
        ORDER BY op_timestamp DESC
        LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.OperationReceipt
	for rows.Next() {
		var r types.OperationReceipt
		var operation string
		var tier int
		var amountStr string
		if err := rows.Scan(&r.ReceiptID, &r.Timestamp, &operation, &r.Account, &tier, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan operation receipt row: %w", err)
		}
		amount, ok := sdkmath.NewIntFromString(amountStr)
		if !ok {
			return nil, fmt.Errorf("invalid amount in receipt %s: %q", r.ReceiptID, amountStr)
		}
		r.Operation = types.OperationKind(operation)
		r.Tier = types.LockTier(tier)
		r.Amount = amount
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}

// Store adapts the package-level persistence functions to the interfaces the
// staking vault consumes.
type Store struct{}

func (Store) UpsertPosition(account string, pos types.Position) error {
	return UpsertPosition(account, pos)
}

func (Store) DeletePosition(account string, tier types.LockTier) error {
	return DeletePosition(account, tier)
}

func (Store) LoadPositions() (map[string][]types.Position, error) {
	return LoadPositions()
}

func (Store) SaveStakingParameters(params types.StakingParameters, configName string, version int, makeActive bool) (int64, error) {
	return SaveStakingParameters(params, configName, version, makeActive)
}

func (Store) InsertOperationReceipt(receipt types.OperationReceipt) error {
	return InsertOperationReceipt(receipt)
}
