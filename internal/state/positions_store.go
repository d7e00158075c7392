// ./internal/state/positions_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/svm/internal/types"
)

// UpsertPosition writes one position row, replacing any existing row for the
// same (account, tier) slot.
func UpsertPosition(account string, pos types.Position) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
        INSERT INTO positions (account, lock_tier, principal, unlock_time, last_settlement_time, updated_at)
        VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
        ON CONFLICT (account, lock_tier) DO UPDATE SET
            principal = EXCLUDED.principal,
            unlock_time = EXCLUDED.unlock_time,
            last_settlement_time = EXCLUDED.last_settlement_time,
            updated_at = CURRENT_TIMESTAMP;`

	_, err := DB.Exec(stmt, account, int(pos.Tier), pos.Principal.String(), pos.UnlockTime, pos.LastSettlementTime)
	if err != nil {
		return fmt.Errorf("failed to upsert position for %s/%s: %w", account, pos.Tier, err)
	}
	return nil
}

// DeletePosition removes the row for a closed slot. Deleting an absent row is
// not an error.
func DeletePosition(account string, tier types.LockTier) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`DELETE FROM positions WHERE account = $1 AND lock_tier = $2;`, account, int(tier))
	if err != nil {
		return fmt.Errorf("failed to delete position for %s/%s: %w", account, tier, err)
	}
	return nil
}

// LoadPositions returns every persisted position grouped by account.
func LoadPositions() (map[string][]types.Position, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT account, lock_tier, principal, unlock_time, last_settlement_time FROM positions;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]types.Position)
	for rows.Next() {
		var account string
		var tier int
		var principalStr string
		var unlockTime, lastSettlementTime int64
		if err := rows.Scan(&account, &tier, &principalStr, &unlockTime, &lastSettlementTime); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}

		principal, ok := sdkmath.NewIntFromString(principalStr)
		if !ok {
			return nil, fmt.Errorf("invalid principal in database for %s/%d: %q", account, tier, principalStr)
		}

		result[account] = append(result[account], types.Position{
			Tier:               types.LockTier(tier),
			Principal:          principal,
			UnlockTime:         unlockTime,
			LastSettlementTime: lastSettlementTime,
			Active:             true,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate position rows: %w", err)
	}

	log.Debug().Int("accounts", len(result)).Msg("Loaded persisted positions")
	return result, nil
}
