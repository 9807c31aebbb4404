// Package testinvoice builds signed BOLT 11 invoices for tests.
package testinvoice

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

var (
	nodeKeyBytes = [32]byte{
		0xe1, 0x26, 0xf6, 0x8f, 0x7e, 0xaf, 0xcc, 0x8b,
		0x74, 0xf5, 0x4d, 0x26, 0x9f, 0xe2, 0x06, 0xbe,
		0x71, 0x50, 0x00, 0xf9, 0x4d, 0xac, 0x06, 0x7d,
		0x1c, 0x04, 0xa8, 0xca, 0x3b, 0x2d, 0xb7, 0x34,
	}

	nodeKey, _ = btcec.PrivKeyFromBytes(btcec.S256(), nodeKeyBytes[:])

	paymentHash = [32]byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05,
		0x06, 0x07, 0x08, 0x09, 0x00, 0x01, 0x02, 0x03,
		0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x01, 0x02,
	}

	timestamp = time.Unix(1496314658, 0)

	signer = zpay32.MessageSigner{
		SignCompact: func(hash []byte) ([]byte, error) {
			return btcec.SignCompact(btcec.S256(), nodeKey, hash, true)
		},
	}
)

// New returns an invoice for params paying amt satoshis (amountless when
// zero) with memo as its description.
func New(params *chaincfg.Params, amt btcutil.Amount,
	memo string) (string, error) {

	// An invoice without a memo commits to a description hash instead.
	opts := []func(*zpay32.Invoice){
		zpay32.DescriptionHash(sha256.Sum256(nil)),
	}
	if memo != "" {
		opts[0] = zpay32.Description(memo)
	}
	if amt > 0 {
		opts = append(opts, zpay32.Amount(lnwire.NewMSatFromSatoshis(amt)))
	}

	return NewWithOptions(params, opts...)
}

// NewWithOptions returns a signed invoice built from the given options.
// One of zpay32.Description or zpay32.DescriptionHash must be present.
func NewWithOptions(params *chaincfg.Params,
	opts ...func(*zpay32.Invoice)) (string, error) {

	inv, err := zpay32.NewInvoice(params, paymentHash, timestamp, opts...)
	if err != nil {
		return "", err
	}

	return inv.Encode(signer)
}

// NodeID returns the hex encoded node key an invoice pays to.
func NodeID(invoice string, params *chaincfg.Params) (string, error) {
	inv, err := zpay32.Decode(invoice, params)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(inv.Destination.SerializeCompressed()), nil
}
