package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/elys-network/svm/internal/config"
	"github.com/elys-network/svm/internal/logger"
	"github.com/elys-network/svm/internal/staking"
	"github.com/elys-network/svm/internal/state"
	"github.com/elys-network/svm/internal/token"
	"github.com/elys-network/svm/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DEFAULT_STAKING_CONFIG_NAME    = "default_staking_params"
	DEFAULT_STAKING_CONFIG_VERSION = 1
)

// main is the entry point for the staking vault service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("SVM Staking Vault Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Staking Parameters
	configVersion := DEFAULT_STAKING_CONFIG_VERSION
	stakingParams, version, err := state.LoadActiveStakingParameters(DEFAULT_STAKING_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active staking parameters, using defaults and saving.")
		defaultParams := config.DefaultStakingParameters
		if _, err := state.SaveStakingParameters(defaultParams, DEFAULT_STAKING_CONFIG_NAME, DEFAULT_STAKING_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default staking parameters.")
		}
		stakingParams = &defaultParams
	} else {
		configVersion = version
	}
	log.Info().Msg("Staking parameters loaded successfully.")

	// --- 2. Token Bank Initialization ---
	bank := token.NewMemoryBank(config.CustodyAccount)
	for _, account := range strings.Split(os.Getenv("SVM_MULTIPARTY_ACCOUNTS"), ",") {
		account = strings.TrimSpace(account)
		if account != "" {
			bank.SetMultiParty(account, true)
		}
	}

	// --- 3. Create Vault Instance with Dependency Injection ---
	store := state.Store{}
	vault, err := staking.NewStakingVault(staking.Config{
		Bank:          bank,
		StakingDenom:  config.StakingDenom,
		Administrator: config.Administrator,
		Params:        *stakingParams,
		ConfigName:    DEFAULT_STAKING_CONFIG_NAME,
		ConfigVersion: configVersion,
		Positions:     store,
		Parameters:    store,
		Receipts:      store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create staking vault")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(vault, webPort)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting SVM web API")
		if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Web server failed")
		}
	}()

	// --- 5. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Web server shutdown failed")
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
