package account

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ellemouton/lnsend/wallet"
)

func TestResolveWallets(t *testing.T) {
	data := &MainData{
		DefaultWalletID: "usd-1",
		Wallets: []Wallet{
			{ID: "btc-1", Currency: wallet.BTC, Balance: 10},
			{ID: "usd-1", Currency: wallet.USD, Balance: 20},
		},
	}

	w, err := ResolveWallets(data, true, false)
	require.NoError(t, err)
	require.Equal(t, "btc-1", w.BTC.ID)
	require.Equal(t, "usd-1", w.USD.ID)
	require.Same(t, w.USD, w.Default)

	usdOnly := &MainData{Wallets: []Wallet{
		{ID: "usd-1", Currency: wallet.USD},
	}}

	_, err = ResolveWallets(usdOnly, true, false)
	require.ErrorIs(t, err, ErrMissingBTCWallet)

	// Still loading or logged out is not an error.
	_, err = ResolveWallets(usdOnly, true, true)
	require.NoError(t, err)
	_, err = ResolveWallets(nil, false, false)
	require.NoError(t, err)

	_, err = ResolveWallets(nil, true, false)
	require.ErrorIs(t, err, ErrMissingBTCWallet)
}
