package payment

import (
	"context"

	"github.com/btcsuite/btcutil"

	"github.com/ellemouton/lnsend/destination"
)

// SendRequest is what the orchestrator hands to the transport. Memo is nil
// unless the payer edited the memo the destination came with.
type SendRequest struct {
	Kind       destination.Type
	Invoice    string
	Address    string
	Username   string
	Amount     btcutil.Amount
	Amountless bool
	Memo       *string
}

// Error is a user facing payment error.
type Error struct {
	Message string `json:"message"`
}

// SendResult is the transport's verdict on a payment.
type SendResult struct {
	Success bool
	Pending bool
	Errors  []Error
}

// Sender submits payments.
type Sender interface {
	Send(ctx context.Context, req *SendRequest) (*SendResult, error)
}

// Refresher reloads balances and wallets after a successful payment.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// InvoiceResolver asks an LNURL-pay service for an invoice.
type InvoiceResolver interface {
	FetchInvoice(ctx context.Context, target string,
		amount btcutil.Amount) (string, error)
}

// UsernameResolver checks whether a username exists. The answer is only
// informational: usernames are resolved server side when paying.
type UsernameResolver interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// Notifier receives one signal each time a payment enters a result state.
type Notifier interface {
	Notify(n Notification)
}

// Observer receives a snapshot after every change of a session.
type Observer interface {
	OnChange(snap Snapshot)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) OnChange(snap Snapshot) { f(snap) }

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }
