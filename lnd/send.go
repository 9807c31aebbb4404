package lnd

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/zpay32"
	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/payment"
)

const defaultLabel = "lnsend"

// Send pays req through lnd. Payment failures are part of the result;
// only failures to reach lnd are returned as errors.
func (b *Backend) Send(ctx context.Context,
	req *payment.SendRequest) (*payment.SendResult, error) {

	switch req.Kind {
	case destination.TypeInvoice:
		return b.payInvoice(ctx, req)

	case destination.TypeOnChain:
		return b.sendOnChain(ctx, req)

	case destination.TypeUsername:
		return failed(ErrUsernameUnsupported.Error()), nil

	default:
		return nil, fmt.Errorf("unsupported payment kind %q", req.Kind)
	}
}

func (b *Backend) payInvoice(ctx context.Context,
	req *payment.SendRequest) (*payment.SendResult, error) {

	inv, err := zpay32.Decode(req.Invoice, b.cfg.Params)
	if err != nil {
		return failed(fmt.Sprintf("invalid invoice: %v", err)), nil
	}

	var hash string
	if inv.PaymentHash != nil {
		hash = hex.EncodeToString(inv.PaymentHash[:])
	}

	sendReq := lndclient.SendPaymentRequest{
		Invoice: req.Invoice,
		MaxFee:  b.cfg.MaxFee,
		Timeout: b.cfg.PayTimeout,
	}
	if req.Amountless {
		sendReq.Amount = req.Amount
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	statusChan, errChan, err := b.cfg.Router.SendPayment(ctx, sendReq)
	if err != nil {
		return nil, fmt.Errorf("could not send payment: %w", err)
	}

	timeout := time.NewTimer(b.cfg.PayTimeout)
	defer timeout.Stop()

	for {
		select {
		case status := <-statusChan:
			switch status.State {
			case lnrpc.Payment_SUCCEEDED:
				b.log.Info("payment succeeded",
					zap.String("hash", hash),
					zap.Int64("fee_msat", int64(status.Fee)))

				return &payment.SendResult{Success: true}, nil

			case lnrpc.Payment_FAILED:
				reason := status.FailureReason.String()
				b.log.Warn("payment failed",
					zap.String("hash", hash),
					zap.String("reason", reason))

				return failed(fmt.Sprintf("payment failed: %s",
					reason)), nil
			}

		case err := <-errChan:
			return nil, fmt.Errorf("payment error: %w", err)

		case <-timeout.C:
			b.log.Info("payment still in flight",
				zap.Duration("timeout", b.cfg.PayTimeout))

			return &payment.SendResult{Pending: true}, nil

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Backend) sendOnChain(ctx context.Context,
	req *payment.SendRequest) (*payment.SendResult, error) {

	addr, err := btcutil.DecodeAddress(req.Address, b.cfg.Params)
	if err != nil {
		return failed(fmt.Sprintf("invalid address: %v", err)), nil
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return failed(fmt.Sprintf("invalid address: %v", err)), nil
	}

	feeRate, err := b.cfg.WalletKit.EstimateFee(ctx, b.cfg.ConfTarget)
	if err != nil {
		return nil, fmt.Errorf("could not estimate fee rate: %w", err)
	}

	label := defaultLabel
	if req.Memo != nil && *req.Memo != "" {
		label = *req.Memo
	}

	tx, err := b.cfg.WalletKit.SendOutputs(ctx, []*wire.TxOut{{
		Value:    int64(req.Amount),
		PkScript: pkScript,
	}}, feeRate, label)
	if err != nil {
		return failed(fmt.Sprintf("could not send: %v", err)), nil
	}

	b.log.Info("published transaction",
		zap.String("txid", tx.TxHash().String()),
		zap.Int64("amt_sat", int64(req.Amount)))

	return &payment.SendResult{Success: true}, nil
}

func failed(msg string) *payment.SendResult {
	return &payment.SendResult{
		Errors: []payment.Error{{Message: msg}},
	}
}
