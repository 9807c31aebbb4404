// Package payment drives a single send: it classifies what the payer
// typed, keeps the fee quote in step with the destination and amount, and
// reduces the submission into a lifecycle status.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/fee"
	"github.com/ellemouton/lnsend/metrics"
)

var (
	// ErrTerminal is returned for actions on a session whose payment
	// already succeeded or is pending.
	ErrTerminal = errors.New("payment already completed")

	// ErrPaymentInFlight is returned while a payment is being sent.
	ErrPaymentInFlight = errors.New("payment in flight")

	// ErrAmountFixed is returned when setting the amount of an invoice
	// that encodes one.
	ErrAmountFixed = errors.New("amount is fixed by the invoice")

	// ErrClosed is returned for actions on a closed session.
	ErrClosed = errors.New("session closed")
)

const defaultNoAmountMessage = "an amount is required to send this payment"

// Config holds the collaborators of a session. Estimator and Sender are
// required; everything else is optional.
type Config struct {
	Estimator fee.Estimator
	Sender    Sender

	Refresher Refresher
	Invoices  InvoiceResolver
	Usernames UsernameResolver
	Notifier  Notifier
	Observer  Observer

	// QuoteTimeout bounds every fee request.
	QuoteTimeout time.Duration

	// NoAmountMessage is shown when paying without a required amount.
	NoAmountMessage string

	Logger  *zap.Logger
	Metrics metrics.Recorder
}

// Seed pre-fills a session. A valid Payment wins over Username; with
// neither the destination is typed in by the payer.
type Seed struct {
	Payment  string
	Username string
}

// UsernameCheck is the state of the existence lookup for a username
// destination.
type UsernameCheck int

const (
	UsernameUnchecked UsernameCheck = iota
	UsernameChecking
	UsernameExists
	UsernameMissing
	UsernameCheckFailed
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	ID              string
	Version         uint64
	DestinationText string
	Kind            destination.Kind
	Amount          btcutil.Amount
	Memo            string
	InitialMemo     string
	Fee             fee.Quote
	Status          Status
	Errors          []Error
	Interactive     bool
	Username        UsernameCheck
}

// Session is the state of one send. All state changes go through its
// methods, which serialize on an internal lock; asynchronous fee and
// username answers are applied only if they still belong to the current
// destination.
type Session struct {
	cfg    *Config
	id     string
	log    *zap.Logger
	rec    metrics.Recorder
	quoter *fee.Quoter

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	version         uint64
	destinationText string
	kind            destination.Kind
	amount          btcutil.Amount
	memo            string
	initialMemo     string
	fee             fee.Quote
	status          Status
	errs            []Error
	interactive     bool
	username        UsernameCheck
	closed          bool
}

// NewSession opens a session. ctx bounds the lifetime of its background
// fee and username lookups; Close ends them earlier.
func NewSession(ctx context.Context, cfg *Config, env *Environment,
	seed Seed) *Session {

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics != nil {
		rec = cfg.Metrics
	}

	id := uuid.New().String()
	log = log.Named("session").With(zap.String("session_id", id))

	sessionCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		cfg: cfg,
		id:  id,
		log: log,
		rec: rec,
		quoter: fee.NewQuoter(&fee.Config{
			Estimator: cfg.Estimator,
			Timeout:   cfg.QuoteTimeout,
			Logger:    log,
			Metrics:   rec,
		}),
		ctx:    sessionCtx,
		cancel: cancel,
	}

	switch {
	case seed.Payment != "" && destination.IsValid(env.Parser.Parse(
		seed.Payment, env.Identity.PubKey, env.Identity.Username,
	)):
		s.update(func() {
			s.applyDestination(seed.Payment, env)
		})

	case seed.Username != "":
		s.update(func() {
			s.applyDestination(seed.Username, env)
			s.interactive = false
		})

	default:
		s.update(func() {
			s.interactive = true
		})
	}

	return s
}

// ID identifies the session in logs and diagnostics.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// SetDestination classifies text and re-quotes the fee. A failed payment
// goes back to idle.
func (s *Session) SetDestination(text string, env *Environment) error {
	var err error
	s.update(func() {
		if err = s.editable(); err != nil {
			return
		}

		s.applyDestination(text, env)
	})

	return err
}

// SetAmount changes the amount and re-quotes the fee. A failed payment goes
// back to idle.
func (s *Session) SetAmount(amount btcutil.Amount) error {
	var err error
	s.update(func() {
		if err = s.editable(); err != nil {
			return
		}

		if inv, ok := s.kind.(destination.LightningInvoice); ok &&
			!inv.Amountless {

			err = ErrAmountFixed
			return
		}

		s.amount = amount
		s.resetError()
		s.requote()
	})

	return err
}

// SetMemo changes the memo. It does not affect the fee.
func (s *Session) SetMemo(memo string) error {
	var err error
	s.update(func() {
		if err = s.editable(); err != nil {
			return
		}

		s.memo = memo
	})

	return err
}

// Clear forgets the destination and lets the payer type a new one.
func (s *Session) Clear() error {
	var err error
	s.update(func() {
		if err = s.editable(); err != nil {
			return
		}

		s.destinationText = ""
		s.kind = nil
		s.interactive = true
		s.username = UsernameUnchecked
		s.resetError()
		s.requote()
	})

	return err
}

// Close stops all background work. A closed session ignores late answers.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.quoter.Stop()
	s.cancel()
}

// Pay sends the payment and returns the status it settled in. Payment
// failures are reported through the status and the snapshot's errors; the
// returned error is only set when paying is not possible at all.
func (s *Session) Pay(ctx context.Context) (Status, error) {
	var (
		kind destination.Kind
		req  *SendRequest
		err  error
	)
	s.update(func() {
		kind, req, err = s.prepare()
	})
	if err != nil {
		return s.Snapshot().Status, err
	}
	if req == nil {
		return StatusError, nil
	}

	start := time.Now()
	s.log.Info("sending payment",
		zap.String("kind", string(kind.Type())),
		zap.Int64("amt_sat", int64(req.Amount)),
		zap.Bool("memo_override", req.Memo != nil))

	res, err := s.send(ctx, kind, req)

	var status Status
	s.update(func() {
		status = s.reduce(res, err)
	})

	labels := map[string]string{
		"kind":    string(kind.Type()),
		"outcome": status.String(),
	}
	s.rec.IncCounter(metrics.PaymentOutcome, labels)
	s.rec.ObserveLatency(metrics.PaymentLatency, time.Since(start), labels)

	if status == StatusSuccess && s.cfg.Refresher != nil {
		if err := s.cfg.Refresher.Refresh(ctx); err != nil {
			s.log.Warn("unable to refresh wallets", zap.Error(err))
		}
	}

	return status, nil
}

// prepare checks that the payment can be sent and moves to loading. A nil
// request without error means the payment failed its preconditions. Must
// be called with the lock held.
func (s *Session) prepare() (destination.Kind, *SendRequest, error) {
	switch {
	case s.closed:
		return nil, nil, ErrClosed

	case s.status == StatusLoading:
		return nil, nil, ErrPaymentInFlight

	case s.status.Terminal():
		return nil, nil, ErrTerminal
	}

	if !destination.IsValid(s.kind) {
		reason := "no destination"
		if invalid, ok := s.kind.(destination.Invalid); ok {
			reason = invalid.Reason
		}
		s.fail([]Error{{Message: reason}})

		return nil, nil, nil
	}

	if destination.RequiresAmount(s.kind) && s.amount == 0 {
		msg := s.cfg.NoAmountMessage
		if msg == "" {
			msg = defaultNoAmountMessage
		}
		s.fail([]Error{{Message: msg}})

		return nil, nil, nil
	}

	if s.fee.State == fee.StateFailed {
		s.fail([]Error{{Message: feeFailedMessage}})

		return nil, nil, nil
	}

	s.errs = nil
	s.transition(StatusLoading)

	return s.kind, s.request(), nil
}

// send resolves LNURL destinations to an invoice and hands the request to
// the transport.
func (s *Session) send(ctx context.Context, kind destination.Kind,
	req *SendRequest) (*SendResult, error) {

	if d, ok := kind.(destination.LNURLPay); ok {
		if s.cfg.Invoices == nil {
			return nil, fmt.Errorf("LNURL payments are not supported")
		}

		target := d.URL
		if d.LightningAddress != "" {
			target = d.LightningAddress
		}

		invoice, err := s.cfg.Invoices.FetchInvoice(ctx, target, req.Amount)
		if err != nil {
			return nil, fmt.Errorf("unable to get invoice: %w", err)
		}

		req.Kind = destination.TypeInvoice
		req.Invoice = invoice
		req.Amountless = false
	}

	return s.cfg.Sender.Send(ctx, req)
}

// reduce turns the transport's answer into exactly one result state.
func (s *Session) reduce(res *SendResult, err error) Status {
	switch {
	case err != nil:
		s.log.Error("error sending payment", zap.Error(err))
		s.fail([]Error{{Message: fmt.Sprintf(
			"an error occurred. try again later\n%v", err,
		)}})

	case res == nil:
		s.fail([]Error{{Message: "an error occurred. try again later"}})

	case res.Success:
		s.log.Info("payment succeeded")
		s.transition(StatusSuccess)

	case res.Pending:
		s.log.Info("payment pending")
		s.transition(StatusPending)

	default:
		errs := res.Errors
		if len(errs) == 0 {
			errs = []Error{{Message: "payment failed"}}
		}
		s.log.Warn("payment failed", zap.Int("num_errors", len(errs)))
		s.fail(errs)
	}

	return s.status
}

// request builds the transport request. Must be called with the lock held.
func (s *Session) request() *SendRequest {
	req := &SendRequest{
		Kind:   s.kind.Type(),
		Amount: s.amount,
	}

	// The memo is only sent when the payer changed it, so an untouched
	// invoice keeps its own description.
	if s.memo != s.initialMemo {
		memo := s.memo
		req.Memo = &memo
	}

	switch d := s.kind.(type) {
	case destination.LightningInvoice:
		req.Invoice = d.Raw
		req.Amountless = d.Amountless

	case destination.OnChainAddress:
		req.Address = d.Address

	case destination.Username:
		req.Username = d.Handle
	}

	return req
}

// applyDestination reclassifies text. Must be called with the lock held.
func (s *Session) applyDestination(text string, env *Environment) {
	s.destinationText = text
	s.kind = env.Parser.Parse(
		text, env.Identity.PubKey, env.Identity.Username,
	)
	s.username = UsernameUnchecked
	s.resetError()

	switch d := s.kind.(type) {
	case destination.LightningInvoice:
		if !d.Amountless {
			s.amount = *d.Amount
		}
		s.adoptMemo(d.Memo)

	case destination.OnChainAddress:
		if d.Amount != nil {
			s.amount = *d.Amount
		}
		s.adoptMemo(d.Memo)

	case destination.LNURLPay:
		s.adoptMemo(nil)

	case destination.Username:
		s.lookupUsername(d.Handle)
	}

	s.requote()
}

// adoptMemo takes the destination's memo unless the payer already wrote
// one, and remembers the result as the memo the destination came with. A
// memo left as the previous destination brought it is replaced.
func (s *Session) adoptMemo(memo *string) {
	if s.memo == s.initialMemo {
		s.memo = ""
	}

	if s.memo == "" && memo != nil {
		s.memo = *memo
	}

	s.initialMemo = s.memo
	s.interactive = false
}

// requote starts a new fee quote, superseding any in flight. Must be
// called with the lock held.
func (s *Session) requote() {
	s.fee = s.quoter.Quote(s.ctx, s.kind, s.amount, s.deliverQuote)
}

func (s *Session) deliverQuote(q fee.Quote) {
	s.update(func() {
		if s.closed {
			return
		}

		if !s.quoter.IsLatest(q.Token) {
			s.rec.IncCounter(metrics.QuoteStale, nil)
			s.log.Debug("discarding stale fee quote",
				zap.Uint64("token", q.Token))
			return
		}

		s.fee = q
	})
}

// lookupUsername checks whether handle exists. Must be called with the
// lock held.
func (s *Session) lookupUsername(handle string) {
	if s.cfg.Usernames == nil {
		return
	}

	s.username = UsernameChecking

	go func() {
		exists, err := s.cfg.Usernames.UsernameExists(s.ctx, handle)

		s.update(func() {
			current, ok := s.kind.(destination.Username)
			if s.closed || !ok || current.Handle != handle {
				return
			}

			switch {
			case err != nil:
				s.log.Debug("username lookup failed", zap.Error(err))
				s.username = UsernameCheckFailed

			case exists:
				s.username = UsernameExists

			default:
				s.username = UsernameMissing
			}
		})
	}()
}

// editable returns an error when the session can no longer be edited.
// Must be called with the lock held.
func (s *Session) editable() error {
	switch {
	case s.closed:
		return ErrClosed

	case s.status == StatusLoading:
		return ErrPaymentInFlight

	case s.status.Terminal():
		return ErrTerminal
	}

	return nil
}

// resetError moves a failed payment back to idle after an edit.
func (s *Session) resetError() {
	if s.status == StatusError {
		s.errs = nil
		s.transition(StatusIdle)
	}
}

func (s *Session) fail(errs []Error) {
	s.errs = errs
	s.transition(StatusError)
}

// transition moves to next. Transitions the state machine does not allow
// indicate a bug in the session and panic.
func (s *Session) transition(next Status) {
	if !s.status.CanTransition(next) {
		panic(fmt.Sprintf("invalid payment transition %v -> %v",
			s.status, next))
	}

	s.status = next
}

func (s *Session) snapshot() Snapshot {
	errs := make([]Error, len(s.errs))
	copy(errs, s.errs)

	return Snapshot{
		ID:              s.id,
		Version:         s.version,
		DestinationText: s.destinationText,
		Kind:            s.kind,
		Amount:          s.amount,
		Memo:            s.memo,
		InitialMemo:     s.initialMemo,
		Fee:             s.fee,
		Status:          s.status,
		Errors:          errs,
		Interactive:     s.interactive,
		Username:        s.username,
	}
}

// update applies fn under the lock, then tells the notifier about a newly
// entered result state and hands the observer the new snapshot.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	prev := s.status
	fn()
	s.version++
	snap := s.snapshot()
	s.mu.Unlock()

	if snap.Status != prev && s.cfg.Notifier != nil {
		if n, ok := notification(snap.Status); ok {
			s.cfg.Notifier.Notify(n)
		}
	}

	if s.cfg.Observer != nil {
		s.cfg.Observer.OnChange(snap)
	}
}
