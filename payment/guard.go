package payment

import (
	"fmt"

	"github.com/btcsuite/btcutil"

	"github.com/ellemouton/lnsend/fee"
	"github.com/ellemouton/lnsend/wallet"
)

const feeFailedMessage = "fee calculation unsuccessful, change the " +
	"destination or amount to try again"

// Guard tells whether the pay action is available.
type Guard struct {
	Disabled bool

	// Message explains a guard disabled by the balance or a failed fee
	// quote, empty otherwise.
	Message string
}

// CheckGuard decides whether snap can be paid given env. It only looks at
// its arguments, so callers recompute it whenever they render.
//
// The total compared against the balance is the amount plus the fee when
// the fee is known. Amounts are always sats; when paying from a USD wallet
// the total is converted to cents at the current price before comparing.
func CheckGuard(snap Snapshot, env *Environment) Guard {
	if snap.Status.Terminal() || snap.Status == StatusLoading {
		return Guard{Disabled: true}
	}

	if snap.Amount == 0 {
		return Guard{Disabled: true}
	}

	if snap.Fee.State == fee.StateFailed {
		return Guard{Disabled: true, Message: feeFailedMessage}
	}

	balance, ok := env.balance()
	if !ok {
		return Guard{}
	}

	sum := total(snap)

	switch env.source() {
	case wallet.USD:
		cents, err := env.Price.SatsToCents(sum)
		if err != nil {
			return Guard{
				Disabled: true,
				Message:  "exchange rate unavailable",
			}
		}

		if cents > balance {
			return Guard{
				Disabled: true,
				Message: fmt.Sprintf("total exceeds your balance "+
					"of %s", wallet.FormatCents(balance)),
			}
		}

	default:
		if int64(sum) > balance {
			return Guard{
				Disabled: true,
				Message: fmt.Sprintf("total exceeds your balance "+
					"of %s", wallet.Format(
					btcutil.Amount(balance), env.Price, env.Currency,
				)),
			}
		}
	}

	return Guard{}
}

// FeeText renders the fee field: empty while nothing can be quoted, the
// fee, or the fee with the total once an amount is known.
func FeeText(snap Snapshot, env *Environment) string {
	switch snap.Fee.State {
	case fee.StateUnknown:
		return ""

	case fee.StatePending:
		return "calculating..."

	case fee.StateFailed:
		return "calculation unsuccessful"
	}

	feeText := wallet.Format(snap.Fee.Fee, env.Price, env.Currency)
	if snap.Fee.Fee > 0 && snap.Amount > 0 {
		return fmt.Sprintf("%s, total: %s", feeText, wallet.Format(
			total(snap), env.Price, env.Currency,
		))
	}

	return feeText
}
