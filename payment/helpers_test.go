package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/internal/testinvoice"
	"github.com/ellemouton/lnsend/wallet"
)

var regtest = &chaincfg.RegressionNetParams

// stubEstimator answers each request from its own channel, or right away
// with fee when auto is set.
type stubEstimator struct {
	mu      sync.Mutex
	auto    bool
	fee     btcutil.Amount
	err     error
	amounts []btcutil.Amount
	replies []chan btcutil.Amount
}

func (e *stubEstimator) estimate(amount btcutil.Amount) (btcutil.Amount,
	error) {

	e.mu.Lock()
	e.amounts = append(e.amounts, amount)
	if e.auto {
		fee, err := e.fee, e.err
		e.mu.Unlock()
		return fee, err
	}

	ch := make(chan btcutil.Amount, 1)
	e.replies = append(e.replies, ch)
	e.mu.Unlock()

	return <-ch, nil
}

func (e *stubEstimator) LightningFee(_ context.Context, _ string,
	amount btcutil.Amount) (btcutil.Amount, error) {

	return e.estimate(amount)
}

func (e *stubEstimator) OnChainFee(_ context.Context, _ string,
	amount btcutil.Amount) (btcutil.Amount, error) {

	return e.estimate(amount)
}

func (e *stubEstimator) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.amounts)
}

func (e *stubEstimator) reply(t *testing.T, i int, fee btcutil.Amount) {
	t.Helper()

	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return len(e.replies) > i
	}, time.Second, time.Millisecond)

	e.mu.Lock()
	ch := e.replies[i]
	e.mu.Unlock()

	ch <- fee
}

type stubSender struct {
	mu       sync.Mutex
	requests []*SendRequest
	result   *SendResult
	err      error
}

func (s *stubSender) Send(_ context.Context, req *SendRequest) (*SendResult,
	error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	return s.result, s.err
}

func (s *stubSender) sent() []*SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*SendRequest(nil), s.requests...)
}

type recorder struct {
	mu            sync.Mutex
	notifications []Notification
	refreshes     int
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications = append(r.notifications, n)
}

func (r *recorder) Refresh(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refreshes++
	return nil
}

func (r *recorder) got() ([]Notification, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Notification(nil), r.notifications...), r.refreshes
}

type harness struct {
	env       *Environment
	estimator *stubEstimator
	sender    *stubSender
	rec       *recorder
	cfg       *Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	parser, err := destination.NewParser(destination.NetworkRegtest)
	require.NoError(t, err)

	h := &harness{
		env: &Environment{
			Parser:   parser,
			Identity: Identity{Username: "me"},
			Source:   wallet.BTC,
			Balances: map[wallet.Type]int64{wallet.BTC: 100_000},
			Currency: wallet.CurrencySats,
		},
		estimator: &stubEstimator{auto: true, fee: 10},
		sender:    &stubSender{result: &SendResult{Success: true}},
		rec:       &recorder{},
	}

	h.cfg = &Config{
		Estimator: h.estimator,
		Sender:    h.sender,
		Refresher: h.rec,
		Notifier:  h.rec,
	}

	return h
}

func (h *harness) session(t *testing.T, seed Seed) *Session {
	t.Helper()

	s := NewSession(context.Background(), h.cfg, h.env, seed)
	t.Cleanup(s.Close)

	return s
}

func invoice(t *testing.T, amt btcutil.Amount, memo string) string {
	t.Helper()

	inv, err := testinvoice.New(regtest, amt, memo)
	require.NoError(t, err)

	return inv
}

func waitForFee(t *testing.T, s *Session, want btcutil.Amount) {
	t.Helper()

	require.Eventually(t, func() bool {
		q := s.Snapshot().Fee
		return q.Numeric() && q.Fee == want
	}, time.Second, time.Millisecond)
}

func (e *stubEstimator) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.err = err
}

func address(t *testing.T) string {
	t.Helper()

	addr, err := btcutil.NewAddressWitnessPubKeyHash(make([]byte, 20), regtest)
	require.NoError(t, err)

	return addr.EncodeAddress()
}
