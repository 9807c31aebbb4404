// Package wallet holds the wallet types and the price conversions shared
// by the payment guard, fee formatting and the history feed.
package wallet

import (
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/shopspring/decimal"
)

// Type is the asset a wallet is denominated in.
type Type string

const (
	// BTC wallets hold satoshis.
	BTC Type = "BTC"

	// USD wallets hold cents.
	USD Type = "USD"
)

var (
	satsPerBTC   = decimal.NewFromInt(btcutil.SatoshiPerBitcoin)
	centsPerUnit = decimal.NewFromInt(100)
)

// Price is the price of one bitcoin in dollars. The zero Price means no
// price is known.
type Price struct {
	USDPerBTC decimal.Decimal
}

// Known reports whether a conversion is possible.
func (p Price) Known() bool {
	return p.USDPerBTC.IsPositive()
}

// SatsToCents converts sats to cents, rounding up so that a balance check
// never under-estimates what a payment costs.
func (p Price) SatsToCents(sats btcutil.Amount) (int64, error) {
	if !p.Known() {
		return 0, fmt.Errorf("no price available")
	}

	cents := decimal.NewFromInt(int64(sats)).
		Mul(p.USDPerBTC).
		Mul(centsPerUnit).
		Div(satsPerBTC)

	return cents.Ceil().IntPart(), nil
}

// SatsToUSD converts sats to a dollar amount.
func (p Price) SatsToUSD(sats btcutil.Amount) decimal.Decimal {
	return decimal.NewFromInt(int64(sats)).Mul(p.USDPerBTC).Div(satsPerBTC)
}

// Currency is a display currency.
type Currency string

const (
	CurrencySats Currency = "sats"
	CurrencyBTC  Currency = "BTC"
	CurrencyUSD  Currency = "USD"
)

// Format renders sats in the given display currency. USD falls back to
// sats when no price is known.
func Format(sats btcutil.Amount, price Price, currency Currency) string {
	switch currency {
	case CurrencyBTC:
		return decimal.NewFromInt(int64(sats)).Div(satsPerBTC).
			StringFixed(8) + " BTC"

	case CurrencyUSD:
		if price.Known() {
			return "$" + price.SatsToUSD(sats).StringFixed(2)
		}
	}

	return fmt.Sprintf("%d sats", int64(sats))
}

// FormatCents renders a cent amount.
func FormatCents(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}
