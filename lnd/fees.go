package lnd

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/input"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
	"github.com/lightningnetwork/lnd/zpay32"
)

// LightningFee asks the router for a route to the invoice destination and
// returns its fee. amount is used for amountless invoices.
func (b *Backend) LightningFee(ctx context.Context, invoice string,
	amount btcutil.Amount) (btcutil.Amount, error) {

	inv, err := zpay32.Decode(invoice, b.cfg.Params)
	if err != nil {
		return 0, fmt.Errorf("could not decode invoice: %w", err)
	}

	amt := lnwire.NewMSatFromSatoshis(amount)
	if inv.MilliSat != nil && *inv.MilliSat > 0 {
		amt = *inv.MilliSat
	}
	if amt == 0 {
		return 0, fmt.Errorf("no amount to route")
	}

	resp, err := b.cfg.Lightning.QueryRoutes(
		ctx, lndclient.QueryRoutesRequest{
			PubKey:     route.NewVertex(inv.Destination),
			AmtMsat:    amt,
			RouteHints: inv.RouteHints,
		},
	)
	if err != nil {
		return 0, fmt.Errorf("could not query routes: %w", err)
	}

	// Round up so the quote never understates the fee.
	return (resp.TotalFeesMsat + 999).ToSatoshis(), nil
}

// OnChainFee estimates the fee of a transaction spending one segwit input
// to address plus change at the configured confirmation target.
func (b *Backend) OnChainFee(ctx context.Context, address string,
	_ btcutil.Amount) (btcutil.Amount, error) {

	addr, err := btcutil.DecodeAddress(address, b.cfg.Params)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}

	feeRate, err := b.cfg.WalletKit.EstimateFee(ctx, b.cfg.ConfTarget)
	if err != nil {
		return 0, fmt.Errorf("could not estimate fee rate: %w", err)
	}

	return feeRate.FeeForWeight(int64(sendWeight(addr))), nil
}

// sendWeight is the weight of a transaction with one P2WKH input, an
// output to addr and a P2WKH change output.
func sendWeight(addr btcutil.Address) int {
	var est input.TxWeightEstimator
	est.AddP2WKHInput()
	est.AddP2WKHOutput()

	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		est.AddP2PKHOutput()

	case *btcutil.AddressScriptHash:
		est.AddP2SHOutput()

	case *btcutil.AddressWitnessPubKeyHash:
		est.AddP2WKHOutput()

	default:
		// Witness script hashes and anything newer are at most as
		// large as a P2WSH output.
		est.AddP2WSHOutput()
	}

	return est.Weight()
}
