package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ellemouton/lnsend/config"
	"github.com/ellemouton/lnsend/destination"
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "Classify a payment destination",
	ArgsUsage: "destination",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "pubkey",
			Usage: "our node public key, to detect self payments",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "our username, to detect self payments",
		},
	},
	Action: decode,
}

func decode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected a single destination")
	}

	// Decoding needs no backend, so only the network is read.
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	if ctx.IsSet("network") {
		cfg.Network = ctx.String("network")
	}

	kind, err := destination.Parse(
		ctx.Args().First(), cfg.Network, ctx.String("pubkey"),
		ctx.String("username"),
	)
	if err != nil {
		return err
	}

	fmt.Println(describe(kind))

	return nil
}

// describe renders a destination for the terminal.
func describe(kind destination.Kind) string {
	switch d := kind.(type) {
	case destination.OnChainAddress:
		s := fmt.Sprintf("on-chain address %s (%s)", d.Address, d.Network)
		if d.Amount != nil {
			s += fmt.Sprintf(", amount %d sats", int64(*d.Amount))
		}
		if d.Memo != nil {
			s += fmt.Sprintf(", memo %q", *d.Memo)
		}
		return s

	case destination.LightningInvoice:
		s := "lightning invoice to " + d.DestinationNode
		if d.Amountless {
			s += ", no amount"
		} else {
			s += fmt.Sprintf(", amount %d sats", int64(*d.Amount))
		}
		if d.Memo != nil {
			s += fmt.Sprintf(", memo %q", *d.Memo)
		}
		if d.SameNode {
			s += ", same node"
		}
		return s

	case destination.Username:
		return "username " + d.Handle

	case destination.LNURLPay:
		if d.LightningAddress != "" {
			return "lightning address " + d.LightningAddress
		}
		return "LNURL-pay " + d.URL

	case destination.Invalid:
		return "invalid: " + d.Reason

	default:
		return "no destination"
	}
}
