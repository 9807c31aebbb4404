// Package history merges the per-wallet transaction lists of an account
// into a single feed.
package history

import (
	"sort"

	"github.com/ellemouton/lnsend/wallet"
)

// Direction is the direction of a transaction relative to the wallet.
type Direction string

const (
	DirectionSend    Direction = "SEND"
	DirectionReceive Direction = "RECEIVE"
)

// Transaction is a ledger entry as returned by the main query.
type Transaction struct {
	ID        string    `json:"id"`
	CreatedAt int64     `json:"createdAt"`
	Direction Direction `json:"direction"`
	Status    string    `json:"status"`
	Memo      string    `json:"memo"`

	// Amount and Fee are in the minor unit of the wallet.
	Amount int64 `json:"settlementAmount"`
	Fee    int64 `json:"settlementFee"`
}

// Edge is one element of a transaction connection.
type Edge struct {
	Cursor string      `json:"cursor"`
	Node   Transaction `json:"node"`
}

// Entry is a transaction tagged with the wallet it belongs to.
type Entry struct {
	Transaction
	WalletType wallet.Type `json:"walletType"`
}

// Merge returns the BTC and USD transactions as one feed ordered newest
// first. Either list may be nil. The inputs are not modified. Entries with
// equal timestamps keep their relative order, BTC before USD.
func Merge(btc, usd []Edge) []Entry {
	entries := make([]Entry, 0, len(btc)+len(usd))
	entries = tag(entries, btc, wallet.BTC)
	entries = tag(entries, usd, wallet.USD)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt > entries[j].CreatedAt
	})

	return entries
}

func tag(dst []Entry, edges []Edge, walletType wallet.Type) []Entry {
	for _, e := range edges {
		dst = append(dst, Entry{
			Transaction: e.Node,
			WalletType:  walletType,
		})
	}

	return dst
}
