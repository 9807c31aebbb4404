package payment

import (
	"github.com/btcsuite/btcutil"

	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/wallet"
)

// Identity is who we are: the public key of our node and our username.
type Identity struct {
	PubKey   string
	Username string
}

// Environment is a read-only snapshot of everything outside the session
// that the session and its guard consult. Callers build a fresh one from
// their stores for every call instead of the session reaching out for
// them.
type Environment struct {
	Parser   *destination.Parser
	Identity Identity

	// Source is the wallet payments are made from.
	Source wallet.Type

	// Balances are in the wallet's minor unit: sats for BTC wallets,
	// cents for USD wallets. A missing entry means not loaded yet.
	Balances map[wallet.Type]int64

	Price    wallet.Price
	Currency wallet.Currency
}

// balance returns the source wallet balance, if known.
func (e *Environment) balance() (int64, bool) {
	if e == nil || e.Balances == nil {
		return 0, false
	}

	b, ok := e.Balances[e.source()]
	return b, ok
}

func (e *Environment) source() wallet.Type {
	if e.Source == "" {
		return wallet.BTC
	}

	return e.Source
}

// total is the amount plus the fee when the fee is known.
func total(snap Snapshot) btcutil.Amount {
	if snap.Fee.Numeric() {
		return snap.Amount + snap.Fee.Fee
	}

	return snap.Amount
}
