package lnd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil"
	"golang.org/x/sync/errgroup"

	"github.com/ellemouton/lnsend/account"
	"github.com/ellemouton/lnsend/wallet"
)

// Snapshot is the identity and balances of the node.
type Snapshot struct {
	PubKey string
	Alias  string

	// Lightning is the spendable channel balance, OnChain the confirmed
	// wallet balance.
	Lightning btcutil.Amount
	OnChain   btcutil.Amount
}

// Snapshot queries the node info and balances concurrently.
func (b *Backend) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		info, err := b.cfg.Lightning.GetInfo(ctx)
		if err != nil {
			return fmt.Errorf("could not get node info: %w", err)
		}

		snap.PubKey = hex.EncodeToString(info.IdentityPubkey[:])
		snap.Alias = info.Alias
		return nil
	})

	g.Go(func() error {
		balance, err := b.cfg.Lightning.ChannelBalance(ctx)
		if err != nil {
			return fmt.Errorf("could not get channel balance: %w",
				err)
		}

		snap.Lightning = balance.Balance
		return nil
	})

	g.Go(func() error {
		balance, err := b.cfg.Lightning.WalletBalance(ctx)
		if err != nil {
			return fmt.Errorf("could not get wallet balance: %w",
				err)
		}

		snap.OnChain = balance.Confirmed
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// FetchMain answers the main query from the node: a single BTC wallet
// holding the channel balance. The node has no notion of accounts, so
// loggedIn is ignored and no server errors are ever reported.
func (b *Backend) FetchMain(ctx context.Context,
	_ bool) (*account.Result, error) {

	snap, err := b.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	const walletID = "lnd"

	return &account.Result{
		Data: &account.MainData{
			DefaultWalletID: walletID,
			NodeIDs:         []string{snap.PubKey},
			Wallets: []account.Wallet{{
				ID:       walletID,
				Currency: wallet.BTC,
				Balance:  int64(snap.Lightning),
			}},
		},
	}, nil
}
