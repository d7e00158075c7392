package token

import (
	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

// Bank is the custody-side view of the external fungible-token ledger.
// This interface abstracts away the specific ledger implementation (in-process
// bank, chain-backed client, test double) so the staking vault never depends
// on how balances are actually held.
//
// Every method either completes exactly as requested or returns an error with
// no partial effect; there are no partial transfers.
type Bank interface {
	// TransferIn moves coin from the given account into vault custody.
	TransferIn(from string, coin sdktypes.Coin) error

	// TransferOut moves coin from vault custody to the given account.
	TransferOut(to string, coin sdktypes.Coin) error

	// BalanceOf returns the custody balance for one denom.
	BalanceOf(denom string) (sdkmath.Int, error)

	// IsMultiPartyAccount reports whether the account is controlled by more
	// than one key (e.g. a multisig). Checked once at vault construction for
	// the administrator identity.
	IsMultiPartyAccount(account string) bool
}
