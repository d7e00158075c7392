package staking

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/svm/internal/token"
	"github.com/elys-network/svm/internal/types"
)

const (
	testDenom   = "ustake"
	testCustody = "vault-custody"
	testAdmin   = "admin-multisig"
	alice       = "alice"
	bob         = "bob"
)

func testParams() types.StakingParameters {
	return types.StakingParameters{
		BaseRateBps: 1200,
		TierMultiplierBps: [types.NumLockTiers]uint64{
			types.TierFlex:        10000,
			types.TierOneMonth:    12500,
			types.TierThreeMonths: 15000,
			types.TierSixMonths:   20000,
		},
		MinStakeAmount: sdkmath.NewInt(1_000),
	}
}

// fixture wires a vault against an in-memory bank with a controllable clock.
type fixture struct {
	vault *StakingVault
	bank  *token.MemoryBank
	now   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{now: baseTime}
	f.bank = token.NewMemoryBank(testCustody)
	f.bank.SetMultiParty(testAdmin, true)

	vault, err := NewStakingVault(Config{
		Bank:          f.bank,
		StakingDenom:  testDenom,
		Administrator: testAdmin,
		Params:        testParams(),
		ConfigName:    "test",
		ConfigVersion: 1,
		Clock:         func() time.Time { return time.Unix(f.now, 0) },
	})
	require.NoError(t, err)
	f.vault = vault
	return f
}

func (f *fixture) fund(account string, amount int64) {
	f.bank.Mint(account, sdktypes.NewCoin(testDenom, sdkmath.NewInt(amount)))
}

// fundPool deposits surplus into custody through the administrator.
func (f *fixture) fundPool(t *testing.T, amount int64) {
	t.Helper()
	f.fund(testAdmin, amount)
	require.NoError(t, f.vault.DepositRewards(testAdmin, sdkmath.NewInt(amount)))
}

func (f *fixture) advance(seconds int64) {
	f.now += seconds
}

func TestNewStakingVault_AdminMustBeMultiParty(t *testing.T) {
	bank := token.NewMemoryBank(testCustody)
	// Administrator deliberately not marked multi-party.
	_, err := NewStakingVault(Config{
		Bank:          bank,
		StakingDenom:  testDenom,
		Administrator: "single-key-admin",
		Params:        testParams(),
		ConfigName:    "test",
		ConfigVersion: 1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrAdminNotMultiParty)
}

func TestStake_OpensPosition(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 50_000)

	require.NoError(t, f.vault.Stake(alice, types.TierOneMonth, sdkmath.NewInt(10_000)))

	pos, ok := f.vault.GetPosition(alice, types.TierOneMonth)
	require.True(t, ok)
	assert.True(t, pos.Active)
	assert.Equal(t, sdkmath.NewInt(10_000), pos.Principal)
	assert.Equal(t, f.now, pos.LastSettlementTime)
	assert.Equal(t, f.now+30*86400, pos.UnlockTime)

	assert.Equal(t, sdkmath.NewInt(10_000), f.vault.TotalStaked())
	assert.Equal(t, sdkmath.NewInt(40_000), f.bank.AccountBalance(alice, testDenom))
	assert.Equal(t, sdkmath.NewInt(10_000), f.bank.AccountBalance(testCustody, testDenom))
}

func TestStake_FlexUnlocksImmediately(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))
	pos, ok := f.vault.GetPosition(alice, types.TierFlex)
	require.True(t, ok)
	assert.Equal(t, f.now, pos.UnlockTime)

	// Flex can exit in the same instant.
	require.NoError(t, f.vault.Unstake(alice, types.TierFlex))
}

func TestStake_BelowMinimum(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)

	err := f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(999))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestStake_OneSlotPerTier(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 100_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(1_000)))
	err := f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(1_000))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPositionExists)

	// All four tiers for one account are independent slots.
	require.NoError(t, f.vault.Stake(alice, types.TierOneMonth, sdkmath.NewInt(2_000)))
	require.NoError(t, f.vault.Stake(alice, types.TierThreeMonths, sdkmath.NewInt(3_000)))
	require.NoError(t, f.vault.Stake(alice, types.TierSixMonths, sdkmath.NewInt(4_000)))

	assert.Len(t, f.vault.GetPositions(alice), 4)
	assert.Equal(t, sdkmath.NewInt(10_000), f.vault.TotalStaked())
}

func TestStake_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 500)

	err := f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(1_000))
	require.Error(t, err)
	_, ok := f.vault.GetPosition(alice, types.TierFlex)
	assert.False(t, ok)
	assert.True(t, f.vault.TotalStaked().IsZero())
}

func TestClaim_PaysExactAccrual(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)
	f.fundPool(t, 5_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))
	f.advance(SecondsPerYear)

	// 12%/year at 1.00x over one year on 10,000.
	assert.Equal(t, sdkmath.NewInt(1_200), f.vault.ClaimableReward(alice, types.TierFlex))
	require.NoError(t, f.vault.Claim(alice, types.TierFlex))
	assert.Equal(t, sdkmath.NewInt(1_200), f.bank.AccountBalance(alice, testDenom))

	// Settlement reset: immediately claiming again accrues nothing and moves
	// no funds.
	assert.True(t, f.vault.ClaimableReward(alice, types.TierFlex).IsZero())
	require.NoError(t, f.vault.Claim(alice, types.TierFlex))
	assert.Equal(t, sdkmath.NewInt(1_200), f.bank.AccountBalance(alice, testDenom))

	// Principal and unlock time untouched.
	pos, ok := f.vault.GetPosition(alice, types.TierFlex)
	require.True(t, ok)
	assert.Equal(t, sdkmath.NewInt(10_000), pos.Principal)
	assert.Equal(t, baseTime, pos.UnlockTime)
	assert.Equal(t, f.now, pos.LastSettlementTime)
}

func TestClaim_NoPosition(t *testing.T) {
	f := newFixture(t)
	err := f.vault.Claim(alice, types.TierFlex)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoActivePosition)
}

func TestClaim_InsufficientPoolThenRetry(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))
	f.advance(SecondsPerYear)

	// Custody holds exactly totalStaked: zero surplus, any claim must fail.
	err := f.vault.Claim(alice, types.TierFlex)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInsufficientRewards)

	// The position is untouched on failure, so the accrued amount is not
	// lost.
	pos, ok := f.vault.GetPosition(alice, types.TierFlex)
	require.True(t, ok)
	assert.Equal(t, baseTime, pos.LastSettlementTime)

	// Replenishing the pool makes the identical claim succeed for the same
	// originally-accrued amount.
	f.fundPool(t, 5_000)
	require.NoError(t, f.vault.Claim(alice, types.TierFlex))
	assert.Equal(t, sdkmath.NewInt(1_200), f.bank.AccountBalance(alice, testDenom))
}

func TestCompound_ReinvestsReward(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)
	f.fundPool(t, 5_000)

	// SixMonths tier is still locked at compound time: compounding is
	// available regardless of the lock.
	require.NoError(t, f.vault.Stake(alice, types.TierSixMonths, sdkmath.NewInt(10_000)))
	f.advance(90 * 86400)

	claimable := f.vault.ClaimableReward(alice, types.TierSixMonths)
	require.True(t, claimable.IsPositive())

	poolBefore, err := f.vault.PoolBalance()
	require.NoError(t, err)

	require.NoError(t, f.vault.Compound(alice, types.TierSixMonths))

	pos, ok := f.vault.GetPosition(alice, types.TierSixMonths)
	require.True(t, ok)
	assert.Equal(t, sdkmath.NewInt(10_000).Add(claimable), pos.Principal)
	assert.Equal(t, f.now, pos.LastSettlementTime)
	assert.Equal(t, pos.Principal, f.vault.TotalStaked())

	// No external transfer: the caller's balance is unchanged and the pool
	// shrank by exactly the compounded reward.
	assert.True(t, f.bank.AccountBalance(alice, testDenom).IsZero())
	poolAfter, err := f.vault.PoolBalance()
	require.NoError(t, err)
	assert.Equal(t, poolBefore.Sub(claimable), poolAfter)
}

func TestCompound_InsufficientPool(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))
	f.advance(SecondsPerYear)

	err := f.vault.Compound(alice, types.TierFlex)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInsufficientRewards)
}

func TestUnstake_LockBoundary(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)
	f.fundPool(t, 5_000)

	require.NoError(t, f.vault.Stake(alice, types.TierOneMonth, sdkmath.NewInt(10_000)))
	lockSeconds := types.TierOneMonth.LockDurationSeconds()

	// One second before unlock: rejected.
	f.advance(lockSeconds - 1)
	err := f.vault.Unstake(alice, types.TierOneMonth)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStillLocked)

	// At exactly the unlock time: accepted, principal plus reward in one
	// transfer.
	f.advance(1)
	reward := f.vault.ClaimableReward(alice, types.TierOneMonth)
	require.NoError(t, f.vault.Unstake(alice, types.TierOneMonth))

	assert.Equal(t, sdkmath.NewInt(10_000).Add(reward), f.bank.AccountBalance(alice, testDenom))
	_, ok := f.vault.GetPosition(alice, types.TierOneMonth)
	assert.False(t, ok)
	assert.True(t, f.vault.TotalStaked().IsZero())
}

func TestUnstake_NoPosition(t *testing.T) {
	f := newFixture(t)
	err := f.vault.Unstake(alice, types.TierFlex)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoActivePosition)
}

func TestUnstake_InsufficientPoolForReward(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))
	f.advance(SecondsPerYear)

	// Pool cannot cover the pending reward, so even the unlocked principal
	// stays put until the pool is funded.
	err := f.vault.Unstake(alice, types.TierFlex)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInsufficientRewards)

	_, ok := f.vault.GetPosition(alice, types.TierFlex)
	assert.True(t, ok)
}

func TestPauseGating(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 50_000)
	f.fundPool(t, 5_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))

	assert.ErrorIs(t, f.vault.Pause(alice), types.ErrUnauthorized)
	require.NoError(t, f.vault.Pause(testAdmin))
	assert.True(t, f.vault.Paused())

	f.advance(86400)
	assert.ErrorIs(t, f.vault.Stake(alice, types.TierOneMonth, sdkmath.NewInt(10_000)), types.ErrPaused)
	assert.ErrorIs(t, f.vault.Claim(alice, types.TierFlex), types.ErrPaused)
	assert.ErrorIs(t, f.vault.Compound(alice, types.TierFlex), types.ErrPaused)

	// Unstake is exempt: users can always exit.
	require.NoError(t, f.vault.Unstake(alice, types.TierFlex))

	require.NoError(t, f.vault.Unpause(testAdmin))
	require.NoError(t, f.vault.Stake(alice, types.TierOneMonth, sdkmath.NewInt(10_000)))
}

func TestDepositRewards(t *testing.T) {
	f := newFixture(t)
	f.fund(testAdmin, 10_000)
	f.fund(alice, 10_000)

	assert.ErrorIs(t, f.vault.DepositRewards(alice, sdkmath.NewInt(1_000)), types.ErrUnauthorized)
	assert.ErrorIs(t, f.vault.DepositRewards(testAdmin, sdkmath.ZeroInt()), types.ErrInvalidAmount)

	require.NoError(t, f.vault.DepositRewards(testAdmin, sdkmath.NewInt(10_000)))
	pool, err := f.vault.PoolBalance()
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10_000), pool)
}

func TestRecoverForeignAsset(t *testing.T) {
	f := newFixture(t)
	// Some other token ends up stranded in custody.
	f.bank.Mint(testCustody, sdktypes.NewCoin("uatom", sdkmath.NewInt(777)))

	assert.ErrorIs(t, f.vault.RecoverForeignAsset(alice, "uatom", bob, sdkmath.NewInt(777)), types.ErrUnauthorized)
	assert.ErrorIs(t, f.vault.RecoverForeignAsset(testAdmin, testDenom, bob, sdkmath.NewInt(1)), types.ErrCannotRecoverStakedAsset)
	assert.ErrorIs(t, f.vault.RecoverForeignAsset(testAdmin, "uatom", bob, sdkmath.ZeroInt()), types.ErrInvalidAmount)

	require.NoError(t, f.vault.RecoverForeignAsset(testAdmin, "uatom", bob, sdkmath.NewInt(777)))
	assert.Equal(t, sdkmath.NewInt(777), f.bank.AccountBalance(bob, "uatom"))
}

func TestParameterSetters(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.vault.SetBaseRate(alice, 1000), types.ErrUnauthorized)
	assert.ErrorIs(t, f.vault.SetBaseRate(testAdmin, 10001), types.ErrInvalidRate)
	assert.ErrorIs(t, f.vault.SetTierMultiplier(testAdmin, types.TierOneMonth, 9999), types.ErrInvalidRate)
	assert.ErrorIs(t, f.vault.SetMinStake(testAdmin, sdkmath.ZeroInt()), types.ErrInvalidAmount)

	require.NoError(t, f.vault.SetBaseRate(testAdmin, 2400))
	require.NoError(t, f.vault.SetTierMultiplier(testAdmin, types.TierOneMonth, 30000))
	require.NoError(t, f.vault.SetMinStake(testAdmin, sdkmath.NewInt(5_000)))

	params := f.vault.Parameters()
	assert.Equal(t, uint64(2400), params.BaseRateBps)
	assert.Equal(t, uint64(30000), params.TierMultiplierBps[types.TierOneMonth])
	assert.Equal(t, sdkmath.NewInt(5_000), params.MinStakeAmount)

	rate, err := f.vault.EffectiveRate(types.TierOneMonth)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(7200), rate)
}

func TestRateChange_AffectsFutureAccrualOnly(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 10_000)
	f.fundPool(t, 10_000)

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))
	f.advance(SecondsPerYear)

	// Claim fixes one year at 12%.
	require.NoError(t, f.vault.Claim(alice, types.TierFlex))
	assert.Equal(t, sdkmath.NewInt(1_200), f.bank.AccountBalance(alice, testDenom))

	// Doubling the rate changes only accrual after the settlement point.
	require.NoError(t, f.vault.SetBaseRate(testAdmin, 2400))
	f.advance(SecondsPerYear)
	assert.Equal(t, sdkmath.NewInt(2_400), f.vault.ClaimableReward(alice, types.TierFlex))
}

func TestConservation_TotalStakedMatchesPositions(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 100_000)
	f.fund(bob, 100_000)
	f.fundPool(t, 50_000)

	sumPrincipals := func() sdkmath.Int {
		total := sdkmath.ZeroInt()
		for _, account := range []string{alice, bob} {
			for _, pos := range f.vault.GetPositions(account) {
				total = total.Add(pos.Principal)
			}
		}
		return total
	}

	require.NoError(t, f.vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))
	require.NoError(t, f.vault.Stake(alice, types.TierSixMonths, sdkmath.NewInt(20_000)))
	require.NoError(t, f.vault.Stake(bob, types.TierFlex, sdkmath.NewInt(30_000)))
	assert.Equal(t, sumPrincipals(), f.vault.TotalStaked())

	f.advance(200 * 86400)
	require.NoError(t, f.vault.Claim(alice, types.TierFlex))
	assert.Equal(t, sumPrincipals(), f.vault.TotalStaked())

	require.NoError(t, f.vault.Compound(alice, types.TierSixMonths))
	assert.Equal(t, sumPrincipals(), f.vault.TotalStaked())

	require.NoError(t, f.vault.Unstake(bob, types.TierFlex))
	assert.Equal(t, sumPrincipals(), f.vault.TotalStaked())

	f.advance(200 * 86400)
	require.NoError(t, f.vault.Unstake(alice, types.TierFlex))
	require.NoError(t, f.vault.Unstake(alice, types.TierSixMonths))
	assert.True(t, sumPrincipals().Equal(f.vault.TotalStaked()))
	assert.True(t, f.vault.TotalStaked().IsZero())
}

// failingOutBank simulates a token ledger whose outbound transfers revert.
type failingOutBank struct {
	*token.MemoryBank
	failOut bool
}

func (b *failingOutBank) TransferOut(to string, coin sdktypes.Coin) error {
	if b.failOut {
		return errors.New("simulated transfer revert")
	}
	return b.MemoryBank.TransferOut(to, coin)
}

func TestClaim_RollsBackOnTransferFailure(t *testing.T) {
	bank := &failingOutBank{MemoryBank: token.NewMemoryBank(testCustody)}
	bank.SetMultiParty(testAdmin, true)

	now := int64(baseTime)
	vault, err := NewStakingVault(Config{
		Bank:          bank,
		StakingDenom:  testDenom,
		Administrator: testAdmin,
		Params:        testParams(),
		ConfigName:    "test",
		ConfigVersion: 1,
		Clock:         func() time.Time { return time.Unix(now, 0) },
	})
	require.NoError(t, err)

	bank.Mint(alice, sdktypes.NewCoin(testDenom, sdkmath.NewInt(10_000)))
	bank.Mint(testAdmin, sdktypes.NewCoin(testDenom, sdkmath.NewInt(5_000)))
	require.NoError(t, vault.DepositRewards(testAdmin, sdkmath.NewInt(5_000)))
	require.NoError(t, vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))

	now += SecondsPerYear
	bank.failOut = true

	err = vault.Claim(alice, types.TierFlex)
	require.Error(t, err)

	// The settlement clock was rolled back, so nothing accrued is lost.
	pos, ok := vault.GetPosition(alice, types.TierFlex)
	require.True(t, ok)
	assert.Equal(t, baseTime, pos.LastSettlementTime)
	assert.Equal(t, sdkmath.NewInt(1_200), vault.ClaimableReward(alice, types.TierFlex))

	bank.failOut = false
	require.NoError(t, vault.Claim(alice, types.TierFlex))
	assert.Equal(t, sdkmath.NewInt(1_200), bank.AccountBalance(alice, testDenom))
}

func TestUnstake_RollsBackOnTransferFailure(t *testing.T) {
	bank := &failingOutBank{MemoryBank: token.NewMemoryBank(testCustody)}
	bank.SetMultiParty(testAdmin, true)

	now := int64(baseTime)
	vault, err := NewStakingVault(Config{
		Bank:          bank,
		StakingDenom:  testDenom,
		Administrator: testAdmin,
		Params:        testParams(),
		ConfigName:    "test",
		ConfigVersion: 1,
		Clock:         func() time.Time { return time.Unix(now, 0) },
	})
	require.NoError(t, err)

	bank.Mint(alice, sdktypes.NewCoin(testDenom, sdkmath.NewInt(10_000)))
	require.NoError(t, vault.Stake(alice, types.TierFlex, sdkmath.NewInt(10_000)))

	bank.failOut = true
	err = vault.Unstake(alice, types.TierFlex)
	require.Error(t, err)

	// The slot and total staked were restored.
	pos, ok := vault.GetPosition(alice, types.TierFlex)
	require.True(t, ok)
	assert.Equal(t, sdkmath.NewInt(10_000), pos.Principal)
	assert.Equal(t, sdkmath.NewInt(10_000), vault.TotalStaked())

	bank.failOut = false
	require.NoError(t, vault.Unstake(alice, types.TierFlex))
	assert.Equal(t, sdkmath.NewInt(10_000), bank.AccountBalance(alice, testDenom))
}
