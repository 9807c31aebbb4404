package fee

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/btcsuite/btcutil"
	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/metrics"
)

// Estimator asks a backend for the fee of a payment.
type Estimator interface {
	// LightningFee estimates the routing fee for paying invoice. amount
	// is only set for amountless invoices.
	LightningFee(ctx context.Context, invoice string,
		amount btcutil.Amount) (btcutil.Amount, error)

	// OnChainFee estimates the miner fee for sending amount to address.
	OnChainFee(ctx context.Context, address string,
		amount btcutil.Amount) (btcutil.Amount, error)
}

// Config configures a Quoter.
type Config struct {
	Estimator Estimator

	// Timeout bounds a single remote quote. Zero means no timeout.
	Timeout time.Duration

	Logger  *zap.Logger
	Metrics metrics.Recorder
}

// Quoter issues fee requests. Every call to Quote issues a new token and
// supersedes all earlier ones.
type Quoter struct {
	cfg *Config
	log *zap.Logger
	rec metrics.Recorder

	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

func NewQuoter(cfg *Config) *Quoter {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics != nil {
		rec = cfg.Metrics
	}

	return &Quoter{
		cfg: cfg,
		log: log.Named("quoter"),
		rec: rec,
	}
}

// Local returns the quote for destinations that never need a remote call.
// The boolean is false when a remote request is required.
func Local(kind destination.Kind, amount btcutil.Amount) (Quote, bool) {
	switch d := kind.(type) {
	case destination.LightningInvoice:
		// Payments to our own node are settled internally.
		if d.SameNode {
			return Resolved(0, 0), true
		}

		if d.Amountless && amount == 0 {
			return Unknown(0), true
		}

		return Quote{}, false

	case destination.OnChainAddress:
		return Quote{}, false

	default:
		return Unknown(0), true
	}
}

// Quote starts a quote for kind and amount under a new token. The returned
// quote is final unless its state is StatePending, in which case deliver is
// called exactly once, from another goroutine, with the outcome. Callers
// must check IsLatest before applying a delivered quote.
func (q *Quoter) Quote(ctx context.Context, kind destination.Kind,
	amount btcutil.Amount, deliver func(Quote)) Quote {

	q.mu.Lock()
	q.latest++
	token := q.latest

	// The superseded request may still complete, but nobody is waiting
	// for it anymore.
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}

	if local, ok := Local(kind, amount); ok {
		q.mu.Unlock()

		local.Token = token
		return local
	}

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if q.cfg.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, q.cfg.Timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	q.cancel = cancel
	q.mu.Unlock()

	labels := map[string]string{"kind": string(kind.Type())}
	q.rec.IncCounter(metrics.QuoteRequested, labels)

	go func() {
		defer cancel()

		start := time.Now()
		fee, err := q.estimate(reqCtx, kind, amount)
		q.rec.ObserveLatency(metrics.QuoteLatency, time.Since(start), labels)

		if err != nil && errors.Is(err, context.Canceled) &&
			!q.IsLatest(token) {

			q.log.Debug("superseded fee request cancelled",
				zap.Uint64("token", token))

			deliver(Failed(token, err))
			return
		}

		if err != nil {
			q.log.Warn("error getting fees",
				zap.Uint64("token", token),
				zap.String("kind", string(kind.Type())),
				zap.Error(err))
			q.rec.IncCounter(metrics.QuoteFailed, labels)

			deliver(Failed(token, err))
			return
		}

		q.rec.IncCounter(metrics.QuoteResolved, labels)
		deliver(Resolved(token, fee))
	}()

	return Pending(token)
}

func (q *Quoter) estimate(ctx context.Context, kind destination.Kind,
	amount btcutil.Amount) (btcutil.Amount, error) {

	switch d := kind.(type) {
	case destination.LightningInvoice:
		// Fixed amount invoices are quoted for the invoice amount.
		if !d.Amountless {
			amount = 0
		}

		return q.cfg.Estimator.LightningFee(ctx, d.Raw, amount)

	case destination.OnChainAddress:
		return q.cfg.Estimator.OnChainFee(ctx, d.Address, amount)

	default:
		// Local answers every other kind.
		return 0, nil
	}
}

// IsLatest reports whether token belongs to the most recent request.
func (q *Quoter) IsLatest(token uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return token == q.latest
}

// Latest returns the most recently issued token.
func (q *Quoter) Latest() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.latest
}

// Stop cancels the in-flight request, if any. A stopped quoter can still
// be used.
func (q *Quoter) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}
