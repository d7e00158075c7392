// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/svm/internal/types"
)

// SaveStakingParameters saves a new version of staking parameters.
func SaveStakingParameters(params types.StakingParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE staking_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO staking_parameters (
            version, config_name, is_active, activated_at, created_at,
            base_rate_bps,
            flex_multiplier_bps, one_month_multiplier_bps, three_months_multiplier_bps, six_months_multiplier_bps,
            min_stake_amount
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6,
            $7, $8, $9, $10,
            $11
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.BaseRateBps,
		params.TierMultiplierBps[types.TierFlex], params.TierMultiplierBps[types.TierOneMonth],
		params.TierMultiplierBps[types.TierThreeMonths], params.TierMultiplierBps[types.TierSixMonths],
		params.MinStakeAmount.String(),
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert staking parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved staking parameters")
	return paramsID, nil
}

// LoadActiveStakingParameters loads the currently active staking parameters.
func LoadActiveStakingParameters(configName string) (*types.StakingParameters, int, error) {
	if DB == nil {
		return nil, 0, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            version, base_rate_bps,
            flex_multiplier_bps, one_month_multiplier_bps, three_months_multiplier_bps, six_months_multiplier_bps,
            min_stake_amount
        FROM staking_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.StakingParameters{}
	var version int
	var minStakeStr string
	row := DB.QueryRow(query, configName)
	err := row.Scan(
		&version, &p.BaseRateBps,
		&p.TierMultiplierBps[types.TierFlex], &p.TierMultiplierBps[types.TierOneMonth],
		&p.TierMultiplierBps[types.TierThreeMonths], &p.TierMultiplierBps[types.TierSixMonths],
		&minStakeStr,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, fmt.Errorf("no active staking parameters found for config '%s'", configName)
		}
		return nil, 0, fmt.Errorf("failed to scan active staking parameters for config '%s': %w", configName, err)
	}

	minStake, ok := sdkmath.NewIntFromString(minStakeStr)
	if !ok {
		return nil, 0, fmt.Errorf("invalid min_stake_amount in database: %q", minStakeStr)
	}
	p.MinStakeAmount = minStake

	log.Info().Str("config", configName).Int("version", version).Msg("Loaded active staking parameters")
	return p, version, nil
}
