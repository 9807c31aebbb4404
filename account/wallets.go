package account

import (
	"errors"

	"github.com/ellemouton/lnsend/history"
	"github.com/ellemouton/lnsend/wallet"
)

// ErrMissingBTCWallet is returned when a logged in account has no BTC
// wallet once loading completed.
var ErrMissingBTCWallet = errors.New("account has no BTC wallet")

// Wallet is a wallet of the account as returned by the main query.
type Wallet struct {
	ID       string      `json:"id"`
	Currency wallet.Type `json:"walletCurrency"`

	// Balance is in the minor unit of the wallet.
	Balance      int64          `json:"balance"`
	Transactions []history.Edge `json:"transactions"`
}

// MainData is the data of the main query.
type MainData struct {
	Username        string   `json:"username"`
	Phone           string   `json:"phone"`
	Language        string   `json:"language"`
	DefaultWalletID string   `json:"defaultWalletId"`
	Wallets         []Wallet `json:"wallets"`
	NodeIDs         []string `json:"nodesIds"`
}

// PubKey returns the public key of the first node of the service.
func (d *MainData) PubKey() string {
	if d == nil || len(d.NodeIDs) == 0 {
		return ""
	}

	return d.NodeIDs[0]
}

// Wallets are the wallets of the account by role. Any of them may be nil.
type Wallets struct {
	BTC     *Wallet
	USD     *Wallet
	Default *Wallet
}

// ResolveWallets picks the BTC, USD and default wallets out of data. Data
// may be nil while nothing is loaded. A logged in account that finished
// loading without a BTC wallet cannot be used and yields
// ErrMissingBTCWallet.
func ResolveWallets(data *MainData, loggedIn, loading bool) (Wallets,
	error) {

	var w Wallets
	if data != nil {
		for i := range data.Wallets {
			wal := &data.Wallets[i]

			switch {
			case wal.Currency == wallet.BTC && w.BTC == nil:
				w.BTC = wal
			case wal.Currency == wallet.USD && w.USD == nil:
				w.USD = wal
			}

			if wal.ID == data.DefaultWalletID && w.Default == nil {
				w.Default = wal
			}
		}
	}

	if loggedIn && !loading && w.BTC == nil {
		return w, ErrMissingBTCWallet
	}

	return w, nil
}
