package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
)

var historyCommand = &cli.Command{
	Name:   "history",
	Usage:  "List the transactions of all wallets, newest first",
	Action: listHistory,
}

func listHistory(ctx *cli.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	view, err := a.loader.Refresh(ctx.Context)
	if err != nil {
		return err
	}

	for _, w := range view.Warnings {
		fmt.Printf("warning: %s\n", w.Message)
	}

	if view.Stale {
		fmt.Println("showing cached data")
	}

	for wal, balance := range view.Balances {
		fmt.Printf("%s balance: %d\n", wal, balance)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tWALLET\tDIRECTION\tAMOUNT\tFEE\tSTATUS\tMEMO")
	for _, e := range view.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			time.Unix(e.CreatedAt, 0).Format(time.RFC3339),
			e.WalletType, e.Direction, e.Amount, e.Fee, e.Status,
			e.Memo)
	}

	return tw.Flush()
}
