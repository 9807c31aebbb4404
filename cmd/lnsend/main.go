package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "lnsend"
	app.Usage = "Send bitcoin to addresses, invoices, usernames and LNURLs"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to a YAML config file",
			EnvVars: []string{"LNSEND_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "network",
			Usage: "the network: mainnet, testnet or regtest",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "where payments are sent: graphql or lnd",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "wallet service GraphQL endpoint",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "lnd instance rpc address",
		},
		&cli.StringFlag{
			Name:  "macpath",
			Usage: "path to lnd's macaroon dir",
		},
		&cli.StringFlag{
			Name:  "tlspath",
			Usage: "path to lnd's tls cert",
		},
		&cli.StringFlag{
			Name:  "loglevel",
			Usage: "debug, info, warn or error",
		},
	}
	app.Commands = []*cli.Command{
		decodeCommand,
		feeCommand,
		sendCommand,
		historyCommand,
	}

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lnsend] %v\n", err)
	os.Exit(1)
}
