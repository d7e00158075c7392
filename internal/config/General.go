package config

import (
	"errors"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// StakingDenom is the base denom of the staked token (e.g. "uelys").
	StakingDenom string

	// Administrator is the account authorized to call privileged vault
	// operations. Must be a multi-party controlled account.
	Administrator string

	// CustodyAccount is the account that holds staked principal and the
	// reward pool.
	CustodyAccount string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	StakingDenom, err = getEnv("SVM_STAKING_DENOM")
	if err != nil {
		return err
	}

	Administrator, err = getEnv("SVM_ADMINISTRATOR")
	if err != nil {
		return err
	}

	CustodyAccount, err = getEnv("SVM_CUSTODY_ACCOUNT")
	if err != nil {
		return err
	}

	log.Debug().
		Str("StakingDenom", StakingDenom).
		Str("Administrator", Administrator).
		Str("CustodyAccount", CustodyAccount).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// GetEnvAsInt retrieves an environment variable as an sdkmath.Int, falling
// back to the given default when unset.
func GetEnvAsInt(key string, defaultValue sdkmath.Int) (sdkmath.Int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	value, ok := sdkmath.NewIntFromString(valueStr)
	if !ok {
		return sdkmath.Int{}, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
