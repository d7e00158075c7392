/*

This file contains the StakingVault: the orchestrator for the four user
operations (stake, claim, compound, unstake) and the administrator operations,
wired together from the ledger, the accrual math, the pool accounting and the
external token bank.

Ordering discipline: every disbursing operation applies all internal state
mutations before issuing the outbound transfer, and rolls the mutation back if
the transfer itself fails. Inflowing operations (stake, deposit) pull funds in
first and mutate after. A single vault-wide lock serializes all
state-changing calls, so no operation can observe another mid-flight.

*/

package staking

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/svm/internal/logger"
	"github.com/elys-network/svm/internal/token"
	"github.com/elys-network/svm/internal/types"
)

// Config holds the dependencies for creating a StakingVault.
type Config struct {
	Bank          token.Bank
	StakingDenom  string
	Administrator string
	Params        types.StakingParameters
	ConfigName    string
	ConfigVersion int

	// Optional durability hooks. The in-memory ledger is authoritative; nil
	// stores disable persistence.
	Positions  PositionStore
	Parameters ParameterStore
	Receipts   ReceiptStore

	// Clock overrides the wall clock, for tests. Defaults to time.Now.
	Clock func() time.Time
}

// StakingVault is the position ledger and reward engine behind the service.
type StakingVault struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	ledger *ledger
	params types.StakingParameters
	paused bool

	bank  token.Bank
	denom string
	admin string

	positions  PositionStore
	parameters ParameterStore
	receipts   ReceiptStore

	configName    string
	configVersion int

	clock func() time.Time
}

// NewStakingVault validates the configuration, checks the administrator is a
// multi-party account and restores any persisted positions.
func NewStakingVault(cfg Config) (*StakingVault, error) {
	if err := validateVaultConfig(cfg); err != nil {
		return nil, fmt.Errorf("staking vault configuration validation failed: %w", err)
	}
	if !cfg.Bank.IsMultiPartyAccount(cfg.Administrator) {
		return nil, fmt.Errorf("%w: %s", types.ErrAdminNotMultiParty, cfg.Administrator)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	v := &StakingVault{
		logger:        logger.GetForComponent("staking_vault"),
		ledger:        newLedger(),
		params:        cfg.Params,
		bank:          cfg.Bank,
		denom:         cfg.StakingDenom,
		admin:         cfg.Administrator,
		positions:     cfg.Positions,
		parameters:    cfg.Parameters,
		receipts:      cfg.Receipts,
		configName:    cfg.ConfigName,
		configVersion: cfg.ConfigVersion,
		clock:         clock,
	}

	if err := v.restorePositions(); err != nil {
		return nil, fmt.Errorf("failed to restore persisted positions: %w", err)
	}

	v.logger.Info().
		Str("denom", v.denom).
		Str("administrator", v.admin).
		Str("configName", v.configName).
		Int("configVersion", v.configVersion).
		Msg("Staking vault created")
	return v, nil
}

func validateVaultConfig(cfg Config) error {
	if cfg.Bank == nil {
		return fmt.Errorf("token bank cannot be nil")
	}
	if cfg.StakingDenom == "" {
		return fmt.Errorf("staking denom cannot be empty")
	}
	if cfg.Administrator == "" {
		return fmt.Errorf("administrator cannot be empty")
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if cfg.ConfigVersion <= 0 {
		return fmt.Errorf("config version must be positive")
	}
	return cfg.Params.Validate()
}

func (v *StakingVault) restorePositions() error {
	if v.positions == nil {
		return nil
	}
	stored, err := v.positions.LoadPositions()
	if err != nil {
		return err
	}
	count := 0
	for account, positions := range stored {
		for _, pos := range positions {
			v.ledger.restore(account, pos, pos.Principal)
			count++
		}
	}
	if count > 0 {
		v.logger.Info().
			Int("positions", count).
			Str("totalStaked", v.ledger.totalStaked.String()).
			Msg("Restored positions from store")
	}
	return nil
}

// --- User operations ---

// Stake pulls amount from the caller into custody and opens a position in the
// given tier. The (caller, tier) slot must be empty and amount must meet the
// configured minimum.
func (v *StakingVault) Stake(caller string, tier types.LockTier, amount sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.paused {
		return types.ErrPaused
	}
	if !tier.Valid() {
		return fmt.Errorf("%w: tier %d", types.ErrInvalidTier, int(tier))
	}
	if amount.IsNil() || amount.LT(v.params.MinStakeAmount) {
		return fmt.Errorf("%w: stake of %s is below the minimum of %s", types.ErrInvalidAmount, amount, v.params.MinStakeAmount)
	}
	if v.ledger.has(caller, tier) {
		return fmt.Errorf("%w: account %s, tier %s", types.ErrPositionExists, caller, tier)
	}

	// Inflow: pull funds first, then apply effects.
	if err := v.bank.TransferIn(caller, sdktypes.NewCoin(v.denom, amount)); err != nil {
		return fmt.Errorf("stake transfer failed: %w", err)
	}

	now := v.clock().Unix()
	pos := types.Position{
		Tier:               tier,
		Principal:          amount,
		UnlockTime:         now + tier.LockDurationSeconds(),
		LastSettlementTime: now,
		Active:             true,
	}
	v.ledger.open(caller, pos)

	v.persistPosition(caller, pos)
	v.recordReceipt(types.OpStake, caller, tier, amount)
	v.logger.Info().
		Str("account", caller).
		Str("tier", tier.String()).
		Str("principal", amount.String()).
		Int64("unlockTime", pos.UnlockTime).
		Msg("Position opened")
	return nil
}

// Claim pays out the reward accrued since the last settlement and resets the
// settlement clock. Principal and unlock time are untouched. A zero accrual
// is a legal no-op. On an insufficient pool the position is left unmodified,
// so retrying after a deposit pays the larger amount accrued from the
// original settlement point.
func (v *StakingVault) Claim(caller string, tier types.LockTier) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.paused {
		return types.ErrPaused
	}
	pos, ok := v.ledger.get(caller, tier)
	if !ok {
		return fmt.Errorf("%w: account %s, tier %s", types.ErrNoActivePosition, caller, tier)
	}

	now := v.clock().Unix()
	reward := AccruedReward(pos, now, v.params.BaseRateBps, v.params.TierMultiplierBps[tier])
	if reward.IsZero() {
		return nil
	}
	if err := v.checkPool(reward); err != nil {
		return err
	}

	// Effects before the outbound transfer.
	previousSettlement := pos.LastSettlementTime
	updated := v.ledger.settle(caller, tier, now)
	v.persistPosition(caller, updated)

	if err := v.bank.TransferOut(caller, sdktypes.NewCoin(v.denom, reward)); err != nil {
		reverted := v.ledger.settle(caller, tier, previousSettlement)
		v.persistPosition(caller, reverted)
		return fmt.Errorf("reward transfer failed: %w", err)
	}

	v.recordReceipt(types.OpClaim, caller, tier, reward)
	v.logger.Info().
		Str("account", caller).
		Str("tier", tier.String()).
		Str("reward", reward.String()).
		Msg("Reward claimed")
	return nil
}

// Compound settles the accrued reward into the position's principal instead
// of paying it out. No external transfer happens; the pool shrinks because
// totalStaked grows by the reward. Available while the position is still
// time-locked.
func (v *StakingVault) Compound(caller string, tier types.LockTier) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.paused {
		return types.ErrPaused
	}
	pos, ok := v.ledger.get(caller, tier)
	if !ok {
		return fmt.Errorf("%w: account %s, tier %s", types.ErrNoActivePosition, caller, tier)
	}

	now := v.clock().Unix()
	reward := AccruedReward(pos, now, v.params.BaseRateBps, v.params.TierMultiplierBps[tier])
	if reward.IsZero() {
		return nil
	}
	if err := v.checkPool(reward); err != nil {
		return err
	}

	updated := v.ledger.addPrincipal(caller, tier, reward, now)
	v.persistPosition(caller, updated)

	v.recordReceipt(types.OpCompound, caller, tier, reward)
	v.logger.Info().
		Str("account", caller).
		Str("tier", tier.String()).
		Str("reward", reward.String()).
		Str("principal", updated.Principal.String()).
		Msg("Reward compounded")
	return nil
}

// Unstake closes the position after its lock has expired, paying out
// principal plus any pending reward in a single transfer. Permitted even
// while paused, so users can always exit. The pool check covers the reward
// portion only; principal is always backed by custody.
func (v *StakingVault) Unstake(caller string, tier types.LockTier) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	pos, ok := v.ledger.get(caller, tier)
	if !ok {
		return fmt.Errorf("%w: account %s, tier %s", types.ErrNoActivePosition, caller, tier)
	}

	now := v.clock().Unix()
	if now < pos.UnlockTime {
		return fmt.Errorf("%w: unlocks at %d, now %d", types.ErrStillLocked, pos.UnlockTime, now)
	}

	reward := AccruedReward(pos, now, v.params.BaseRateBps, v.params.TierMultiplierBps[tier])
	if !reward.IsZero() {
		if err := v.checkPool(reward); err != nil {
			return err
		}
	}

	// Effects before the outbound transfer: the slot is cleared first.
	closed := v.ledger.close(caller, tier)
	v.deletePersistedPosition(caller, tier)

	payout := closed.Principal.Add(reward)
	if err := v.bank.TransferOut(caller, sdktypes.NewCoin(v.denom, payout)); err != nil {
		v.ledger.restore(caller, closed, closed.Principal)
		v.persistPosition(caller, closed)
		return fmt.Errorf("unstake transfer failed: %w", err)
	}

	v.recordReceipt(types.OpUnstake, caller, tier, payout)
	v.logger.Info().
		Str("account", caller).
		Str("tier", tier.String()).
		Str("principal", closed.Principal.String()).
		Str("reward", reward.String()).
		Msg("Position closed")
	return nil
}

// checkPool reads the custody balance immediately before the paying mutation
// and gates the requested reward against the derived pool.
func (v *StakingVault) checkPool(reward sdkmath.Int) error {
	balance, err := v.bank.BalanceOf(v.denom)
	if err != nil {
		return fmt.Errorf("failed to read custody balance: %w", err)
	}
	return assertSufficient(reward, AvailableRewards(balance, v.ledger.totalStaked))
}

// --- Administrator operations ---

// DepositRewards pulls amount of the staking token from the administrator
// into custody, growing the reward pool. Strictly additive; the ledger is not
// touched. Allowed while paused so the pool can be replenished before users
// retry claims.
func (v *StakingVault) DepositRewards(caller string, amount sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: deposit must be positive", types.ErrInvalidAmount)
	}
	if err := v.bank.TransferIn(caller, sdktypes.NewCoin(v.denom, amount)); err != nil {
		return fmt.Errorf("reward deposit transfer failed: %w", err)
	}

	v.recordReceipt(types.OpDepositRewards, caller, types.TierFlex, amount)
	v.logger.Info().
		Str("amount", amount.String()).
		Msg("Reward pool funded")
	return nil
}

// Pause closes the gate for stake, claim and compound. Unstake and reads
// stay available.
func (v *StakingVault) Pause(caller string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	v.paused = true
	v.logger.Warn().Msg("Vault paused")
	return nil
}

// Unpause reopens the gate.
func (v *StakingVault) Unpause(caller string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	v.paused = false
	v.logger.Info().Msg("Vault unpaused")
	return nil
}

// RecoverForeignAsset transfers out a custody balance of any denom other than
// the staking token. Refusing the staking token is what keeps an
// administrator action from ever touching user principal or the reward pool.
func (v *StakingVault) RecoverForeignAsset(caller, denom, to string, amount sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if denom == v.denom {
		return fmt.Errorf("%w: %s", types.ErrCannotRecoverStakedAsset, denom)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: recovery amount must be positive", types.ErrInvalidAmount)
	}
	if err := v.bank.TransferOut(to, sdktypes.NewCoin(denom, amount)); err != nil {
		return fmt.Errorf("asset recovery transfer failed: %w", err)
	}

	v.recordReceipt(types.OpRecoverAsset, caller, types.TierFlex, amount)
	v.logger.Info().
		Str("denom", denom).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("Foreign asset recovered")
	return nil
}

// SetBaseRate replaces the global annual rate. Applies to every position's
// future accrual from its current settlement point; settled rewards are never
// rewritten.
func (v *StakingVault) SetBaseRate(caller string, bps uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if bps > types.MaxBaseRateBps {
		return fmt.Errorf("%w: base rate %d bps exceeds %d", types.ErrInvalidRate, bps, types.MaxBaseRateBps)
	}
	v.params.BaseRateBps = bps
	v.persistParameters()
	v.logger.Info().Uint64("baseRateBps", bps).Msg("Base rate updated")
	return nil
}

// SetTierMultiplier replaces one tier's multiplier. Multipliers can only
// amplify the base rate, never discount it.
func (v *StakingVault) SetTierMultiplier(caller string, tier types.LockTier, bps uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if !tier.Valid() {
		return fmt.Errorf("%w: tier %d", types.ErrInvalidTier, int(tier))
	}
	if bps < types.MinTierMultiplierBps {
		return fmt.Errorf("%w: multiplier %d bps is below %d", types.ErrInvalidRate, bps, types.MinTierMultiplierBps)
	}
	v.params.TierMultiplierBps[tier] = bps
	v.persistParameters()
	v.logger.Info().Str("tier", tier.String()).Uint64("multiplierBps", bps).Msg("Tier multiplier updated")
	return nil
}

// SetMinStake replaces the minimum stake amount.
func (v *StakingVault) SetMinStake(caller string, amount sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireAdmin(caller); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: minimum stake must be positive", types.ErrInvalidAmount)
	}
	v.params.MinStakeAmount = amount
	v.persistParameters()
	v.logger.Info().Str("minStakeAmount", amount.String()).Msg("Minimum stake updated")
	return nil
}

func (v *StakingVault) requireAdmin(caller string) error {
	if caller != v.admin {
		return fmt.Errorf("%w: %s", types.ErrUnauthorized, caller)
	}
	return nil
}

// --- Read operations ---

// GetPosition returns the open position for (account, tier), if any.
func (v *StakingVault) GetPosition(account string, tier types.LockTier) (types.Position, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ledger.get(account, tier)
}

// GetPositions returns all open positions for an account in tier order.
func (v *StakingVault) GetPositions(account string) []types.Position {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ledger.positionsFor(account)
}

// ClaimableReward computes the reward accrued to one position as of now.
// Zero for an empty slot.
func (v *StakingVault) ClaimableReward(account string, tier types.LockTier) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	pos, ok := v.ledger.get(account, tier)
	if !ok {
		return sdkmath.ZeroInt()
	}
	return AccruedReward(pos, v.clock().Unix(), v.params.BaseRateBps, v.params.TierMultiplierBps[tier])
}

// TotalClaimable sums the claimable reward across all of an account's
// positions as of now.
func (v *StakingVault) TotalClaimable(account string) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	now := v.clock().Unix()
	total := sdkmath.ZeroInt()
	for _, pos := range v.ledger.positionsFor(account) {
		total = total.Add(AccruedReward(pos, now, v.params.BaseRateBps, v.params.TierMultiplierBps[pos.Tier]))
	}
	return total
}

// PoolBalance returns the currently available reward pool.
func (v *StakingVault) PoolBalance() (sdkmath.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	balance, err := v.bank.BalanceOf(v.denom)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to read custody balance: %w", err)
	}
	return AvailableRewards(balance, v.ledger.totalStaked), nil
}

// EffectiveRate returns base * multiplier / 10000 for a tier, in bps.
func (v *StakingVault) EffectiveRate(tier types.LockTier) (sdkmath.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !tier.Valid() {
		return sdkmath.Int{}, fmt.Errorf("%w: tier %d", types.ErrInvalidTier, int(tier))
	}
	return EffectiveRateBps(v.params.BaseRateBps, v.params.TierMultiplierBps[tier]), nil
}

// TotalStaked returns the sum of principal over all open positions.
func (v *StakingVault) TotalStaked() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ledger.totalStaked
}

// Paused reports the pause gate.
func (v *StakingVault) Paused() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paused
}

// Parameters returns a copy of the current staking parameters.
func (v *StakingVault) Parameters() types.StakingParameters {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.params
}

// --- Durability write-through ---
//
// The in-memory ledger is authoritative. Store failures are logged and do not
// fail the operation: by the time persistence runs, the token transfer has
// already settled and aborting would desynchronize custody from the ledger.

func (v *StakingVault) persistPosition(account string, pos types.Position) {
	if v.positions == nil {
		return
	}
	if err := v.positions.UpsertPosition(account, pos); err != nil {
		v.logger.Error().Err(err).
			Str("account", account).
			Str("tier", pos.Tier.String()).
			Msg("Failed to persist position")
	}
}

func (v *StakingVault) deletePersistedPosition(account string, tier types.LockTier) {
	if v.positions == nil {
		return
	}
	if err := v.positions.DeletePosition(account, tier); err != nil {
		v.logger.Error().Err(err).
			Str("account", account).
			Str("tier", tier.String()).
			Msg("Failed to delete persisted position")
	}
}

func (v *StakingVault) persistParameters() {
	if v.parameters == nil {
		return
	}
	v.configVersion++
	if _, err := v.parameters.SaveStakingParameters(v.params, v.configName, v.configVersion, true); err != nil {
		v.logger.Error().Err(err).
			Int("version", v.configVersion).
			Msg("Failed to persist staking parameters")
	}
}

func (v *StakingVault) recordReceipt(op types.OperationKind, account string, tier types.LockTier, amount sdkmath.Int) {
	if v.receipts == nil {
		return
	}
	receipt := types.OperationReceipt{
		ReceiptID: uuid.NewString(),
		Operation: op,
		Account:   account,
		Tier:      tier,
		Amount:    amount,
		Timestamp: v.clock().UTC(),
	}
	if err := v.receipts.InsertOperationReceipt(receipt); err != nil {
		v.logger.Error().Err(err).
			Str("operation", string(op)).
			Str("account", account).
			Msg("Failed to record operation receipt")
	}
}
