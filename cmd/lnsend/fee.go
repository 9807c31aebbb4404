package main

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/fee"
	"github.com/ellemouton/lnsend/payment"
	"github.com/ellemouton/lnsend/wallet"
)

var feeCommand = &cli.Command{
	Name:      "fee",
	Usage:     "Quote the fee of a payment",
	ArgsUsage: "destination",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "amt",
			Usage: "the amount in satoshis, for destinations without one",
		},
	},
	Action: quoteFee,
}

func quoteFee(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected a single destination")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	env, err := a.environment(ctx.Context)
	if err != nil {
		return err
	}

	s, updates := a.openSession(ctx.Context, env, ctx.Args().First())
	defer s.Close()

	snap := s.Snapshot()
	fmt.Println(describe(snap.Kind))

	if amt := ctx.Int64("amt"); amt > 0 {
		if err := s.SetAmount(btcutil.Amount(amt)); err != nil {
			return err
		}
	}

	snap, err = waitForQuote(ctx.Context, s, updates)
	if err != nil {
		return err
	}

	switch snap.Fee.State {
	case fee.StateUnknown:
		fmt.Println("fee: unknown until an amount is given")

	case fee.StateFailed:
		return fmt.Errorf("could not quote fee: %w", snap.Fee.Err)

	default:
		fmt.Printf("fee: %s\n", payment.FeeText(snap, env))
	}

	return nil
}

// environment loads the account and builds the payment environment.
func (a *app) environment(ctx context.Context) (*payment.Environment,
	error) {

	view, err := a.loader.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	for _, w := range view.Warnings {
		fmt.Printf("warning: %s\n", w.Message)
	}

	return &payment.Environment{
		Parser: a.parser,
		Identity: payment.Identity{
			PubKey:   view.PubKey,
			Username: view.Username,
		},
		Source:   wallet.BTC,
		Balances: view.Balances,
		Currency: wallet.CurrencySats,
	}, nil
}

// openSession starts a session seeded with dest. The returned channel
// signals every state change.
func (a *app) openSession(ctx context.Context, env *payment.Environment,
	dest string) (*payment.Session, <-chan struct{}) {

	updates := make(chan struct{}, 1)

	cfg := a.sessionConfig()
	cfg.Observer = payment.ObserverFunc(func(payment.Snapshot) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	cfg.Notifier = payment.NotifierFunc(func(n payment.Notification) {
		a.log.Debug("payment notification",
			zap.Stringer("notification", n))
	})

	s := payment.NewSession(ctx, cfg, env, payment.Seed{Payment: dest})

	// Invalid seeds leave the session empty; set them anyway so the
	// reason shows up.
	if s.Snapshot().Kind == nil {
		_ = s.SetDestination(dest, env)
	}

	return s, updates
}

// waitForQuote blocks until the fee quote is no longer pending.
func waitForQuote(ctx context.Context, s *payment.Session,
	updates <-chan struct{}) (payment.Snapshot, error) {

	for {
		snap := s.Snapshot()
		if snap.Fee.State != fee.StatePending {
			return snap, nil
		}

		select {
		case <-updates:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}
