package wallet

import (
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSatsToCents(t *testing.T) {
	price := Price{USDPerBTC: decimal.NewFromInt(20_000)}

	tests := []struct {
		sats btcutil.Amount
		want int64
	}{
		{sats: 0, want: 0},
		{sats: 5000, want: 100},
		{sats: 5001, want: 101},
		{sats: btcutil.SatoshiPerBitcoin, want: 2_000_000},
	}

	for _, tt := range tests {
		got, err := price.SatsToCents(tt.sats)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "sats=%d", tt.sats)
	}

	_, err := Price{}.SatsToCents(1)
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	price := Price{USDPerBTC: decimal.NewFromInt(30_000)}

	require.Equal(t, "1500 sats", Format(1500, price, CurrencySats))
	require.Equal(t, "0.00001500 BTC", Format(1500, price, CurrencyBTC))
	require.Equal(t, "$0.45", Format(1500, price, CurrencyUSD))
	require.Equal(t, "1500 sats", Format(1500, Price{}, CurrencyUSD))
	require.Equal(t, "$12.05", FormatCents(1205))
}
