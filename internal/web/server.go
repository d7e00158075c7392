package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/elys-network/svm/internal/logger"
	"github.com/elys-network/svm/internal/staking"
	"github.com/elys-network/svm/internal/state"
	"github.com/elys-network/svm/internal/types"
	"github.com/elys-network/svm/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// accountHeader carries the caller identity. Authentication of that identity
// is outside this service; the vault still enforces the administrator check
// on privileged operations.
const accountHeader = "X-Account"

// WebServer exposes the staking vault over HTTP.
type WebServer struct {
	router *mux.Router
	vault  *staking.StakingVault
	port   string
	server *http.Server
}

// NewWebServer creates a new web server instance around the given vault.
func NewWebServer(vault *staking.StakingVault, port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	ws := &WebServer{
		router: mux.NewRouter(),
		vault:  vault,
		port:   port,
	}

	ws.setupRoutes()
	return ws
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()

	// Read operations
	api.HandleFunc("/pool", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/params", ws.handleGetParams).Methods("GET")
	api.HandleFunc("/rates/{tier}", ws.handleGetRate).Methods("GET")
	api.HandleFunc("/positions/{account}", ws.handleGetPositions).Methods("GET")
	api.HandleFunc("/positions/{account}/{tier}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/rewards/{account}", ws.handleGetRewards).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")

	// User operations
	api.HandleFunc("/stake", ws.handleStake).Methods("POST")
	api.HandleFunc("/claim", ws.handleClaim).Methods("POST")
	api.HandleFunc("/compound", ws.handleCompound).Methods("POST")
	api.HandleFunc("/unstake", ws.handleUnstake).Methods("POST")

	// Administrator operations
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/deposit", ws.handleDepositRewards).Methods("POST")
	admin.HandleFunc("/pause", ws.handlePause).Methods("POST")
	admin.HandleFunc("/unpause", ws.handleUnpause).Methods("POST")
	admin.HandleFunc("/recover", ws.handleRecoverAsset).Methods("POST")
	admin.HandleFunc("/rate", ws.handleSetBaseRate).Methods("POST")
	admin.HandleFunc("/multiplier", ws.handleSetMultiplier).Methods("POST")
	admin.HandleFunc("/minstake", ws.handleSetMinStake).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return ws.server.ListenAndServe()
}

// Shutdown stops the web server gracefully.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}

// --- Read handlers ---

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbHealthy := state.TestDBConnection() == nil

	status := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		status = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, map[string]interface{}{
		"status":           status,
		"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
		"paused":           ws.vault.Paused(),
		"database_healthy": dbHealthy,
	})
}

func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := ws.vault.PoolBalance()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to read pool balance")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to read pool balance")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"available_rewards": pool.String(),
		"total_staked":      ws.vault.TotalStaked().String(),
	})
}

func (ws *WebServer) handleGetParams(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.vault.Parameters())
}

func (ws *WebServer) handleGetRate(w http.ResponseWriter, r *http.Request) {
	tier, err := types.ParseLockTier(mux.Vars(r)["tier"])
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rate, err := ws.vault.EffectiveRate(tier)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"tier":                   tier.String(),
		"effective_rate_bps":     rate.String(),
		"effective_rate_percent": utils.EffectiveRatePercent(rate),
	})
}

func (ws *WebServer) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account":   account,
		"positions": ws.vault.GetPositions(account),
	})
}

func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account := vars["account"]
	tier, err := types.ParseLockTier(vars["tier"])
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, ok := ws.vault.GetPosition(account, tier)
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, "no active position")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account":   account,
		"position":  pos,
		"claimable": ws.vault.ClaimableReward(account, tier).String(),
	})
}

func (ws *WebServer) handleGetRewards(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account":         account,
		"total_claimable": ws.vault.TotalClaimable(account).String(),
	})
}

func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"receipts": receipts,
	})
}

// --- Write handlers ---

type stakeRequest struct {
	Tier   string `json:"tier"`
	Amount string `json:"amount"`
}

func (ws *WebServer) handleStake(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}

	var req stakeRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	tier, err := types.ParseLockTier(req.Tier)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.respondToOperation(w, ws.vault.Stake(account, tier, amount))
}

type tierRequest struct {
	Tier string `json:"tier"`
}

func (ws *WebServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	ws.handleTierOperation(w, r, ws.vault.Claim)
}

func (ws *WebServer) handleCompound(w http.ResponseWriter, r *http.Request) {
	ws.handleTierOperation(w, r, ws.vault.Compound)
}

func (ws *WebServer) handleUnstake(w http.ResponseWriter, r *http.Request) {
	ws.handleTierOperation(w, r, ws.vault.Unstake)
}

func (ws *WebServer) handleTierOperation(w http.ResponseWriter, r *http.Request, op func(string, types.LockTier) error) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}

	var req tierRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	tier, err := types.ParseLockTier(req.Tier)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.respondToOperation(w, op(account, tier))
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (ws *WebServer) handleDepositRewards(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.respondToOperation(w, ws.vault.DepositRewards(account, amount))
}

func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}
	ws.respondToOperation(w, ws.vault.Pause(account))
}

func (ws *WebServer) handleUnpause(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}
	ws.respondToOperation(w, ws.vault.Unpause(account))
}

type recoverRequest struct {
	Denom  string `json:"denom"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (ws *WebServer) handleRecoverAsset(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}

	var req recoverRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ws.respondToOperation(w, ws.vault.RecoverForeignAsset(account, req.Denom, req.To, amount))
}

type rateRequest struct {
	Bps uint64 `json:"bps"`
}

func (ws *WebServer) handleSetBaseRate(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}

	var req rateRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	ws.respondToOperation(w, ws.vault.SetBaseRate(account, req.Bps))
}

type multiplierRequest struct {
	Tier string `json:"tier"`
	Bps  uint64 `json:"bps"`
}

func (ws *WebServer) handleSetMultiplier(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}

	var req multiplierRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	tier, err := types.ParseLockTier(req.Tier)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	ws.respondToOperation(w, ws.vault.SetTierMultiplier(account, tier, req.Bps))
}

func (ws *WebServer) handleSetMinStake(w http.ResponseWriter, r *http.Request) {
	account, ok := ws.requireAccount(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	ws.respondToOperation(w, ws.vault.SetMinStake(account, amount))
}

// --- Helpers ---

func (ws *WebServer) requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	account := r.Header.Get(accountHeader)
	if account == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "missing "+accountHeader+" header")
		return "", false
	}
	return account, true
}

func (ws *WebServer) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondToOperation maps a vault error to an HTTP status. Every failure kind
// keeps its own status so front-ends can distinguish causes.
func (ws *WebServer) respondToOperation(w http.ResponseWriter, err error) {
	if err == nil {
		ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}

	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInvalidRate),
		errors.Is(err, types.ErrInvalidTier):
		statusCode = http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		statusCode = http.StatusForbidden
	case errors.Is(err, types.ErrNoActivePosition):
		statusCode = http.StatusNotFound
	case errors.Is(err, types.ErrPositionExists),
		errors.Is(err, types.ErrInsufficientRewards),
		errors.Is(err, types.ErrCannotRecoverStakedAsset):
		statusCode = http.StatusConflict
	case errors.Is(err, types.ErrStillLocked):
		statusCode = http.StatusLocked
	case errors.Is(err, types.ErrPaused):
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeErrorResponse(w, statusCode, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+accountHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
