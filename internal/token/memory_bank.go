/*

This file contains an in-process implementation of the Bank interface: a
multi-denom balance table with a designated custody account.

It backs the single-process deployment mode and every test double in the
repository. All methods are safe for concurrent use.

*/

package token

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/svm/internal/logger"
)

var bankLogger = logger.GetForComponent("token_bank")

// MemoryBank holds balances per (account, denom) in memory. The custody
// account is fixed at construction; TransferIn/TransferOut move funds to and
// from it.
type MemoryBank struct {
	mu         sync.Mutex
	custody    string
	balances   map[string]map[string]sdkmath.Int // account -> denom -> amount
	multiParty map[string]bool
}

// NewMemoryBank creates an empty bank with the given custody account.
func NewMemoryBank(custodyAccount string) *MemoryBank {
	return &MemoryBank{
		custody:    custodyAccount,
		balances:   make(map[string]map[string]sdkmath.Int),
		multiParty: make(map[string]bool),
	}
}

// Mint credits coin to an account out of thin air. Intended for funding
// accounts in tests and local runs.
func (b *MemoryBank) Mint(account string, coin sdktypes.Coin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(account, coin)
}

// SetMultiParty marks an account as multi-party controlled.
func (b *MemoryBank) SetMultiParty(account string, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.multiParty[account] = on
}

// AccountBalance returns the balance of an arbitrary account for one denom.
func (b *MemoryBank) AccountBalance(account, denom string) sdkmath.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balanceOf(account, denom)
}

// TransferIn moves coin from the given account into custody.
func (b *MemoryBank) TransferIn(from string, coin sdktypes.Coin) error {
	return b.transfer(from, b.custody, coin)
}

// TransferOut moves coin from custody to the given account.
func (b *MemoryBank) TransferOut(to string, coin sdktypes.Coin) error {
	return b.transfer(b.custody, to, coin)
}

// BalanceOf returns the custody balance for one denom.
func (b *MemoryBank) BalanceOf(denom string) (sdkmath.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balanceOf(b.custody, denom), nil
}

// IsMultiPartyAccount reports whether the account was marked multi-party.
func (b *MemoryBank) IsMultiPartyAccount(account string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.multiParty[account]
}

func (b *MemoryBank) transfer(from, to string, coin sdktypes.Coin) error {
	if err := coin.Validate(); err != nil {
		return fmt.Errorf("invalid coin: %w", err)
	}
	if !coin.Amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive, got %s", coin.Amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	balance := b.balanceOf(from, coin.Denom)
	if balance.LT(coin.Amount) {
		return fmt.Errorf("insufficient funds: %s has %s%s, needs %s", from, balance, coin.Denom, coin.Amount)
	}

	b.balances[from][coin.Denom] = balance.Sub(coin.Amount)
	b.credit(to, coin)

	bankLogger.Debug().
		Str("from", from).
		Str("to", to).
		Str("amount", coin.String()).
		Msg("Transfer executed")
	return nil
}

// balanceOf reads a balance; callers hold b.mu.
func (b *MemoryBank) balanceOf(account, denom string) sdkmath.Int {
	denoms, ok := b.balances[account]
	if !ok {
		b.balances[account] = make(map[string]sdkmath.Int)
		return sdkmath.ZeroInt()
	}
	amount, ok := denoms[denom]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return amount
}

// credit adds coin to an account; callers hold b.mu.
func (b *MemoryBank) credit(account string, coin sdktypes.Coin) {
	current := b.balanceOf(account, coin.Denom)
	b.balances[account][coin.Denom] = current.Add(coin.Amount)
}
