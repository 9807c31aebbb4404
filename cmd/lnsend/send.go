package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/urfave/cli/v2"

	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/payment"
)

var sendCommand = &cli.Command{
	Name:      "send",
	Usage:     "Send a payment",
	ArgsUsage: "destination",
	Description: `Send to an on-chain address, a lightning invoice, a
	bitcoin: or lightning: URI, a username, an LNURL or a lightning
	address.`,
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "amt",
			Usage: "the amount in satoshis, for destinations without one",
		},
		&cli.StringFlag{
			Name:  "memo",
			Usage: "a note for the payment",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "do not ask for confirmation",
		},
	},
	Action: send,
}

func send(ctx *cli.Context) error {
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
	if !destination.IsValid(snap.Kind) {
		return fmt.Errorf("cannot pay this destination")
	}

	if ctx.IsSet("memo") {
		if err := s.SetMemo(ctx.String("memo")); err != nil {
			return err
		}
	}

	reader := bufio.NewReader(os.Stdin)

	// Ask for an amount until the destination has one.
	amt := btcutil.Amount(ctx.Int64("amt"))
	for destination.RequiresAmount(snap.Kind) && s.Snapshot().Amount == 0 {
		if amt <= 0 {
			amt, err = promptAmount(ctx, a, reader, snap.Kind)
			if err != nil {
				return err
			}
			continue
		}

		if err := s.SetAmount(amt); err != nil {
			return err
		}
	}

	snap, err = waitForQuote(ctx.Context, s, updates)
	if err != nil {
		return err
	}

	if text := payment.FeeText(snap, env); text != "" {
		fmt.Printf("fee: %s\n", text)
	}

	guard := payment.CheckGuard(snap, env)
	if guard.Disabled {
		if guard.Message != "" {
			return fmt.Errorf("%s", guard.Message)
		}
		return fmt.Errorf("payment cannot be sent yet")
	}

	if !ctx.Bool("force") {
		ok, err := confirm(reader, snap)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("payment cancelled")
			return nil
		}
	}

	status, err := s.Pay(ctx.Context)
	if err != nil {
		return err
	}

	switch status {
	case payment.StatusSuccess:
		fmt.Println("payment sent")

	case payment.StatusPending:
		fmt.Println("payment pending, check your history later")

	default:
		for _, e := range s.Snapshot().Errors {
			fmt.Fprintln(os.Stderr, e.Message)
		}
		return fmt.Errorf("payment failed")
	}

	return nil
}

// promptAmount reads an amount in satoshis from the terminal. LNURL
// destinations show the range the service accepts.
func promptAmount(ctx *cli.Context, a *app, reader *bufio.Reader,
	kind destination.Kind) (btcutil.Amount, error) {

	bounds := ""
	if d, ok := kind.(destination.LNURLPay); ok {
		target := d.URL
		if d.LightningAddress != "" {
			target = d.LightningAddress
		}

		url, err := a.invoices.ResolveURL(target)
		if err != nil {
			return 0, err
		}

		payResp, err := a.invoices.FetchPayParams(ctx.Context, url)
		if err != nil {
			return 0, err
		}

		bounds = fmt.Sprintf(" between %d and %d",
			lnwire.MilliSatoshi(payResp.MinSendable).ToSatoshis(),
			lnwire.MilliSatoshi(payResp.MaxSendable).ToSatoshis())
	}

	fmt.Printf("Enter an amount (in satoshis)%s\n", bounds)

	userInput, err := reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("could not read from console: %w", err)
	}
	userInput = strings.TrimSpace(userInput)

	sats, err := strconv.ParseInt(userInput, 10, 64)
	if err != nil || sats <= 0 {
		fmt.Printf("Invalid amount %q\n", userInput)
		return 0, nil
	}

	return btcutil.Amount(sats), nil
}

func confirm(reader *bufio.Reader, snap payment.Snapshot) (bool, error) {
	fmt.Printf("Send %d sats? [y/N] ", int64(snap.Amount))

	userInput, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("could not read from console: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(userInput)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
