// Package lnd pays through a local lnd node instead of the wallet service.
// It quotes fees from the node's router and wallet, sends payments and
// reports the node identity and balances.
package lnd

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/lightninglabs/lndclient"
	"go.uber.org/zap"
)

// ErrUsernameUnsupported is reported for username payments, which only
// the wallet service can resolve.
var ErrUsernameUnsupported = errors.New("usernames cannot be paid " +
	"through lnd")

const (
	defaultPayTimeout = time.Minute
	defaultConfTarget = 6
	defaultMaxFee     = btcutil.Amount(1000)
)

// Config holds the lnd clients used by a Backend.
type Config struct {
	Lightning lndclient.LightningClient
	WalletKit lndclient.WalletKitClient
	Router    lndclient.RouterClient
	Params    *chaincfg.Params

	// PayTimeout bounds how long Send waits for a lightning payment to
	// settle. Payments still in flight afterwards are reported pending.
	PayTimeout time.Duration

	// ConfTarget is the confirmation target for on-chain sends.
	ConfTarget int32

	// MaxFee caps the routing fee of lightning payments.
	MaxFee btcutil.Amount

	Logger *zap.Logger
}

// Backend implements the fee estimator and payment sender on top of lnd.
type Backend struct {
	cfg *Config
	log *zap.Logger
}

func NewBackend(cfg *Config) *Backend {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.PayTimeout <= 0 {
		cfg.PayTimeout = defaultPayTimeout
	}
	if cfg.ConfTarget <= 0 {
		cfg.ConfTarget = defaultConfTarget
	}
	if cfg.MaxFee <= 0 {
		cfg.MaxFee = defaultMaxFee
	}

	return &Backend{
		cfg: cfg,
		log: log.Named("lnd"),
	}
}

// Connect dials lnd with the given connection details and returns the
// services a Backend needs. Callers close the services when done.
func Connect(host, network, macaroonDir,
	tlsPath string) (*lndclient.GrpcLndServices, error) {

	services, err := lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  host,
		Network:     lndclient.Network(network),
		MacaroonDir: macaroonDir,
		TLSPath:     tlsPath,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to LND: %w", err)
	}

	return services, nil
}
