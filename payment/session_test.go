package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/fee"
	"github.com/ellemouton/lnsend/internal/testinvoice"
)

func TestNewSessionSeeds(t *testing.T) {
	h := newHarness(t)

	s := h.session(t, Seed{})
	snap := s.Snapshot()
	require.True(t, snap.Interactive)
	require.Nil(t, snap.Kind)
	require.Equal(t, StatusIdle, snap.Status)
	require.NotEmpty(t, snap.ID)

	s = h.session(t, Seed{Payment: invoice(t, 1000, "lunch")})
	snap = s.Snapshot()
	require.False(t, snap.Interactive)
	require.Equal(t, destination.TypeInvoice, snap.Kind.Type())
	require.Equal(t, btcutil.Amount(1000), snap.Amount)
	require.Equal(t, "lunch", snap.Memo)
	require.Equal(t, "lunch", snap.InitialMemo)

	s = h.session(t, Seed{Payment: "bcrt1qgarbage", Username: "alice"})
	snap = s.Snapshot()
	require.False(t, snap.Interactive)
	require.Equal(t, destination.Username{Handle: "alice"}, snap.Kind)
}

func TestPayAmountlessWithoutAmount(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{Payment: invoice(t, 0, "")})

	snap := s.Snapshot()
	require.Equal(t, fee.StateUnknown, snap.Fee.State)
	require.Zero(t, h.estimator.calls())

	status, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)

	snap = s.Snapshot()
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, []Error{{Message: defaultNoAmountMessage}}, snap.Errors)
	require.Empty(t, h.sender.sent())

	notifications, _ := h.rec.got()
	require.Equal(t, []Notification{NotificationFailure}, notifications)
}

func TestPayOnChainWithoutAmount(t *testing.T) {
	h := newHarness(t)
	h.cfg.NoAmountMessage = "no amount"
	s := h.session(t, Seed{Payment: address(t)})

	status, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)
	require.Equal(t, []Error{{Message: "no amount"}}, s.Snapshot().Errors)
	require.Empty(t, h.sender.sent())
}

func TestPayBlockedByFailedFee(t *testing.T) {
	h := newHarness(t)
	h.estimator.fail(errors.New("no route"))

	inv := invoice(t, 1000, "")
	s := h.session(t, Seed{Payment: inv})

	require.Eventually(t, func() bool {
		return s.Snapshot().Fee.State == fee.StateFailed
	}, time.Second, time.Millisecond)
	require.True(t, CheckGuard(s.Snapshot(), h.env).Disabled)

	status, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)
	require.Equal(t, []Error{{Message: feeFailedMessage}}, s.Snapshot().Errors)
	require.Empty(t, h.sender.sent())

	// Entering the destination again re-quotes and unblocks the payment.
	h.estimator.fail(nil)
	require.NoError(t, s.SetDestination(inv, h.env))
	waitForFee(t, s, 10)

	status, err = s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	require.Len(t, h.sender.sent(), 1)
}

func TestPayResults(t *testing.T) {
	tests := []struct {
		name         string
		result       *SendResult
		err          error
		wantStatus   Status
		wantErrs     []Error
		wantNotify   Notification
		wantRefreshs int
	}{
		{
			name:         "success",
			result:       &SendResult{Success: true},
			wantStatus:   StatusSuccess,
			wantNotify:   NotificationSuccess,
			wantRefreshs: 1,
		},
		{
			name:       "pending",
			result:     &SendResult{Pending: true},
			wantStatus: StatusPending,
			wantNotify: NotificationFailure,
		},
		{
			name: "server errors",
			result: &SendResult{
				Errors: []Error{{Message: "x"}},
			},
			wantStatus: StatusError,
			wantErrs:   []Error{{Message: "x"}},
			wantNotify: NotificationFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.sender.result = tt.result
			h.sender.err = tt.err

			s := h.session(t, Seed{Payment: invoice(t, 500, "m")})
			waitForFee(t, s, 10)

			status, err := s.Pay(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, status)

			snap := s.Snapshot()
			require.Equal(t, tt.wantStatus, snap.Status)
			if tt.wantErrs == nil {
				require.Empty(t, snap.Errors)
			} else {
				require.Equal(t, tt.wantErrs, snap.Errors)
			}

			notifications, refreshes := h.rec.got()
			require.Equal(t, []Notification{tt.wantNotify}, notifications)
			require.Equal(t, tt.wantRefreshs, refreshes)
		})
	}
}

func TestPayTransportError(t *testing.T) {
	h := newHarness(t)
	h.sender.err = errors.New("connection reset")

	s := h.session(t, Seed{Payment: invoice(t, 500, "")})

	status, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)

	errs := s.Snapshot().Errors
	require.Len(t, errs, 1)
	require.True(t, strings.Contains(errs[0].Message, "connection reset"))

	// Retrying from the error state goes through loading again.
	h.sender.err = nil
	h.sender.result = &SendResult{Success: true}

	status, err = s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	require.Len(t, h.sender.sent(), 2)

	notifications, _ := h.rec.got()
	require.Equal(t, []Notification{
		NotificationFailure, NotificationSuccess,
	}, notifications)
}

func TestTerminalStatus(t *testing.T) {
	h := newHarness(t)
	h.sender.result = &SendResult{Pending: true}

	s := h.session(t, Seed{Payment: invoice(t, 500, "")})

	status, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusPending, status)

	status, err = s.Pay(context.Background())
	require.ErrorIs(t, err, ErrTerminal)
	require.Equal(t, StatusPending, status)

	require.ErrorIs(t, s.SetAmount(5), ErrTerminal)
	require.ErrorIs(t, s.SetDestination("alice", h.env), ErrTerminal)
	require.ErrorIs(t, s.SetMemo("x"), ErrTerminal)
	require.Len(t, h.sender.sent(), 1)
}

func TestMemoOverride(t *testing.T) {
	h := newHarness(t)

	s := h.session(t, Seed{Payment: invoice(t, 500, "pizza")})
	_, err := s.Pay(context.Background())
	require.NoError(t, err)

	sent := h.sender.sent()
	require.Len(t, sent, 1)
	require.Nil(t, sent[0].Memo)

	s = h.session(t, Seed{Payment: invoice(t, 500, "pizza")})
	require.NoError(t, s.SetMemo("pizza and beer"))
	_, err = s.Pay(context.Background())
	require.NoError(t, err)

	sent = h.sender.sent()
	require.Len(t, sent, 2)
	require.NotNil(t, sent[1].Memo)
	require.Equal(t, "pizza and beer", *sent[1].Memo)
}

func TestUserMemoKeptOverInvoiceMemo(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{})

	require.NoError(t, s.SetMemo("rent"))
	require.NoError(t, s.SetDestination(invoice(t, 500, "invoice memo"), h.env))

	snap := s.Snapshot()
	require.Equal(t, "rent", snap.Memo)
	require.Equal(t, "rent", snap.InitialMemo)
}

func TestSwitchingInvoiceReplacesUneditedMemo(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{Payment: invoice(t, 500, "first")})

	require.NoError(t, s.SetDestination(invoice(t, 600, "second"), h.env))
	snap := s.Snapshot()
	require.Equal(t, "second", snap.Memo)
	require.Equal(t, "second", snap.InitialMemo)

	require.NoError(t, s.SetDestination(invoice(t, 700, ""), h.env))
	snap = s.Snapshot()
	require.Empty(t, snap.Memo)
	require.Empty(t, snap.InitialMemo)

	require.NoError(t, s.SetMemo("mine"))
	require.NoError(t, s.SetDestination(invoice(t, 800, "third"), h.env))
	snap = s.Snapshot()
	require.Equal(t, "mine", snap.Memo)
	require.Equal(t, "mine", snap.InitialMemo)
}

func TestSendRequestShape(t *testing.T) {
	h := newHarness(t)
	amountless := invoice(t, 0, "")

	s := h.session(t, Seed{Payment: amountless})
	require.NoError(t, s.SetAmount(1234))
	_, err := s.Pay(context.Background())
	require.NoError(t, err)

	addr := address(t)
	s = h.session(t, Seed{Payment: addr})
	require.NoError(t, s.SetAmount(5000))
	_, err = s.Pay(context.Background())
	require.NoError(t, err)

	s = h.session(t, Seed{Username: "alice"})
	require.NoError(t, s.SetAmount(42))
	_, err = s.Pay(context.Background())
	require.NoError(t, err)

	sent := h.sender.sent()
	require.Len(t, sent, 3)

	require.Equal(t, &SendRequest{
		Kind:       destination.TypeInvoice,
		Invoice:    amountless,
		Amount:     1234,
		Amountless: true,
	}, sent[0])

	require.Equal(t, &SendRequest{
		Kind:    destination.TypeOnChain,
		Address: addr,
		Amount:  5000,
	}, sent[1])

	require.Equal(t, &SendRequest{
		Kind:     destination.TypeUsername,
		Username: "alice",
		Amount:   42,
	}, sent[2])
}

func TestSetAmountFixedInvoice(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{Payment: invoice(t, 500, "")})

	require.ErrorIs(t, s.SetAmount(600), ErrAmountFixed)
	require.Equal(t, btcutil.Amount(500), s.Snapshot().Amount)
}

func TestEditResetsError(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{Payment: invoice(t, 0, "")})

	_, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, s.Snapshot().Status)

	require.NoError(t, s.SetAmount(100))
	snap := s.Snapshot()
	require.Equal(t, StatusIdle, snap.Status)
	require.Empty(t, snap.Errors)

	h.sender.result = &SendResult{Errors: []Error{{Message: "no route"}}}
	_, err = s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, s.Snapshot().Status)

	require.NoError(t, s.SetDestination("bob", h.env))
	require.Equal(t, StatusIdle, s.Snapshot().Status)
}

func TestSameNodeInvoiceIsFree(t *testing.T) {
	h := newHarness(t)

	inv := invoice(t, 500, "")
	node, err := testinvoice.NodeID(inv, regtest)
	require.NoError(t, err)
	h.env.Identity.PubKey = node

	s := h.session(t, Seed{Payment: inv})
	snap := s.Snapshot()
	require.Equal(t, fee.StateResolved, snap.Fee.State)
	require.Equal(t, btcutil.Amount(0), snap.Fee.Fee)
	require.Zero(t, h.estimator.calls())
}

func TestStaleQuoteDiscarded(t *testing.T) {
	h := newHarness(t)
	h.estimator.auto = false

	s := h.session(t, Seed{Payment: invoice(t, 0, "")})

	// T1.
	require.NoError(t, s.SetAmount(100))
	require.Equal(t, fee.StatePending, s.Snapshot().Fee.State)
	require.Eventually(t, func() bool {
		return h.estimator.calls() == 1
	}, time.Second, time.Millisecond)

	// T2.
	require.NoError(t, s.SetAmount(200))
	require.Equal(t, fee.StatePending, s.Snapshot().Fee.State)

	// T2 answers before T1.
	h.estimator.reply(t, 1, 2)
	waitForFee(t, s, 2)

	h.estimator.reply(t, 0, 1)

	require.Never(t, func() bool {
		return s.Snapshot().Fee.Fee == 1
	}, 50*time.Millisecond, time.Millisecond)
	require.Equal(t, fee.StateResolved, s.Snapshot().Fee.State)
	require.Equal(t, btcutil.Amount(2), s.Snapshot().Fee.Fee)
}

func TestClearMakesSessionInteractive(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{Payment: address(t)})
	require.False(t, s.Snapshot().Interactive)

	require.NoError(t, s.Clear())

	snap := s.Snapshot()
	require.True(t, snap.Interactive)
	require.Nil(t, snap.Kind)
	require.Equal(t, fee.StateUnknown, snap.Fee.State)
}

func TestPayInvalidDestination(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{})

	require.NoError(t, s.SetDestination("me", h.env))
	status, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, status)
	require.Len(t, s.Snapshot().Errors, 1)
	require.Empty(t, h.sender.sent())
}

type stubInvoices struct {
	invoice string
	target  string
	amount  btcutil.Amount
}

func (s *stubInvoices) FetchInvoice(_ context.Context, target string,
	amount btcutil.Amount) (string, error) {

	s.target, s.amount = target, amount
	return s.invoice, nil
}

func TestPayLightningAddress(t *testing.T) {
	h := newHarness(t)
	resolved := invoice(t, 300, "")
	invoices := &stubInvoices{invoice: resolved}
	h.cfg.Invoices = invoices

	s := h.session(t, Seed{Payment: "carol@example.com"})
	require.Equal(t, fee.StateUnknown, s.Snapshot().Fee.State)
	require.NoError(t, s.SetAmount(300))

	status, err := s.Pay(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)

	require.Equal(t, "carol@example.com", invoices.target)
	require.Equal(t, btcutil.Amount(300), invoices.amount)

	sent := h.sender.sent()
	require.Len(t, sent, 1)
	require.Equal(t, destination.TypeInvoice, sent[0].Kind)
	require.Equal(t, resolved, sent[0].Invoice)
	require.False(t, sent[0].Amountless)
}

type stubUsernames struct {
	exists bool
}

func (s stubUsernames) UsernameExists(context.Context, string) (bool,
	error) {

	return s.exists, nil
}

func TestUsernameLookup(t *testing.T) {
	h := newHarness(t)
	h.cfg.Usernames = stubUsernames{exists: true}

	s := h.session(t, Seed{})
	require.NoError(t, s.SetDestination("alice", h.env))

	require.Eventually(t, func() bool {
		return s.Snapshot().Username == UsernameExists
	}, time.Second, time.Millisecond)
}

func TestObserverSeesEveryChange(t *testing.T) {
	h := newHarness(t)

	var (
		mu       sync.Mutex
		versions []uint64
	)
	h.cfg.Observer = ObserverFunc(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, snap.Version)
	})

	s := h.session(t, Seed{})
	require.NoError(t, s.SetMemo("a"))
	require.NoError(t, s.SetMemo("b"))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []uint64{1, 2, 3}, versions)
}

func TestClosedSession(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, Seed{Payment: invoice(t, 10, "")})
	s.Close()

	_, err := s.Pay(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.SetMemo("x"), ErrClosed)
}
