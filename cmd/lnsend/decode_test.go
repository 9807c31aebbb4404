package main

import (
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/ellemouton/lnsend/destination"
)

func TestDescribe(t *testing.T) {
	amt := btcutil.Amount(1500)
	memo := "coffee"

	tests := []struct {
		name string
		kind destination.Kind
		want string
	}{
		{
			name: "address with amount and memo",
			kind: destination.OnChainAddress{
				Address: "bcrt1qaddr",
				Network: "regtest",
				Amount:  &amt,
				Memo:    &memo,
			},
			want: `on-chain address bcrt1qaddr (regtest), amount ` +
				`1500 sats, memo "coffee"`,
		},
		{
			name: "amountless invoice",
			kind: destination.LightningInvoice{
				DestinationNode: "02ab",
				Amountless:      true,
			},
			want: "lightning invoice to 02ab, no amount",
		},
		{
			name: "same node invoice",
			kind: destination.LightningInvoice{
				DestinationNode: "02ab",
				Amount:          &amt,
				SameNode:        true,
			},
			want: "lightning invoice to 02ab, amount 1500 sats, same node",
		},
		{
			name: "username",
			kind: destination.Username{Handle: "alice"},
			want: "username alice",
		},
		{
			name: "lightning address",
			kind: destination.LNURLPay{LightningAddress: "bob@example.com"},
			want: "lightning address bob@example.com",
		},
		{
			name: "lnurl",
			kind: destination.LNURLPay{URL: "https://example.com/pay"},
			want: "LNURL-pay https://example.com/pay",
		},
		{
			name: "invalid",
			kind: destination.Invalid{Reason: "destination is empty"},
			want: "invalid: destination is empty",
		},
		{
			name: "nothing",
			want: "no destination",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, describe(test.kind))
		})
	}
}
