package graphql

import (
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil"
	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/account"
	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/history"
	"github.com/ellemouton/lnsend/payment"
	"github.com/ellemouton/lnsend/wallet"
)

const (
	lightningFeesQuery = `mutation lightning_fees($invoice: String, $amount: Int) {
  invoice {
    getFee(amount: $amount, invoice: $invoice)
  }
}`

	onChainFeesQuery = `mutation onchain_fees($address: String!, $amount: Int) {
  onchain {
    getFee(address: $address, amount: $amount)
  }
}`

	payInvoiceQuery = `mutation payInvoice($invoice: String!, $amount: Int, $memo: String) {
  invoice {
    payInvoice(invoice: $invoice, amount: $amount, memo: $memo)
  }
}`

	payOnChainQuery = `mutation payOnchain($address: String!, $amount: Int!, $memo: String) {
  onchain {
    pay(address: $address, amount: $amount, memo: $memo) {
      success
    }
  }
}`

	payUsernameQuery = `mutation payKeysendUsername($username: Username!, $amount: Int!, $memo: String) {
  invoice {
    payKeysendUsername(username: $username, amount: $amount, memo: $memo)
  }
}`

	usernameExistsQuery = `query usernameExists($username: Username!) {
  usernameExists(username: $username)
}`

	mainQuery = `query mainQuery($hasToken: Boolean!) {
  globals {
    nodesIds
  }
  me @include(if: $hasToken) {
    id
    language
    username
    phone
    defaultAccount {
      id
      defaultWalletId
      wallets {
        id
        balance
        walletCurrency
        transactions(first: 20) {
          edges {
            cursor
            node {
              id
              createdAt
              direction
              status
              memo
              settlementAmount
              settlementFee
            }
          }
        }
      }
    }
  }
}`
)

// Payment statuses returned by the pay mutations.
const (
	statusSuccess = "success"
	statusPending = "pending"
)

// LightningFee quotes paying invoice. amount is only sent for amountless
// invoices.
func (c *Client) LightningFee(ctx context.Context, invoice string,
	amount btcutil.Amount) (btcutil.Amount, error) {

	vars := map[string]interface{}{"invoice": invoice}
	if amount > 0 {
		vars["amount"] = int64(amount)
	}

	var data struct {
		Invoice struct {
			GetFee *int64 `json:"getFee"`
		} `json:"invoice"`
	}

	errs, err := c.do(ctx, c.retrying, &request{
		OperationName: "lightning_fees",
		Query:         lightningFeesQuery,
		Variables:     vars,
	}, &data)
	if err != nil {
		return 0, fmt.Errorf("error getting lightning fees: %w", err)
	}
	if err := queryError(errs); err != nil {
		return 0, fmt.Errorf("error getting lightning fees: %w", err)
	}
	if data.Invoice.GetFee == nil {
		return 0, fmt.Errorf("error getting lightning fees: %w",
			ErrNoData)
	}

	return btcutil.Amount(*data.Invoice.GetFee), nil
}

// OnChainFee quotes sending amount to address.
func (c *Client) OnChainFee(ctx context.Context, address string,
	amount btcutil.Amount) (btcutil.Amount, error) {

	vars := map[string]interface{}{"address": address}
	if amount > 0 {
		vars["amount"] = int64(amount)
	}

	var data struct {
		OnChain struct {
			GetFee *int64 `json:"getFee"`
		} `json:"onchain"`
	}

	errs, err := c.do(ctx, c.retrying, &request{
		OperationName: "onchain_fees",
		Query:         onChainFeesQuery,
		Variables:     vars,
	}, &data)
	if err != nil {
		return 0, fmt.Errorf("error getting onchain fees: %w", err)
	}
	if err := queryError(errs); err != nil {
		return 0, fmt.Errorf("error getting onchain fees: %w", err)
	}
	if data.OnChain.GetFee == nil {
		return 0, fmt.Errorf("error getting onchain fees: %w",
			ErrNoData)
	}

	return btcutil.Amount(*data.OnChain.GetFee), nil
}

// Send submits a payment. Errors reported by the server are part of the
// result; only transport failures are returned as errors.
func (c *Client) Send(ctx context.Context,
	req *payment.SendRequest) (*payment.SendResult, error) {

	switch req.Kind {
	case destination.TypeInvoice:
		vars := map[string]interface{}{"invoice": req.Invoice}
		if req.Amountless {
			vars["amount"] = int64(req.Amount)
		}
		addMemo(vars, req.Memo)

		var data struct {
			Invoice struct {
				PayInvoice string `json:"payInvoice"`
			} `json:"invoice"`
		}
		op := &request{
			OperationName: "payInvoice",
			Query:         payInvoiceQuery,
			Variables:     vars,
		}

		return c.send(ctx, op, &data, func() string {
			return data.Invoice.PayInvoice
		})

	case destination.TypeOnChain:
		vars := map[string]interface{}{
			"address": req.Address,
			"amount":  int64(req.Amount),
		}
		addMemo(vars, req.Memo)

		var data struct {
			OnChain struct {
				Pay struct {
					Success bool `json:"success"`
				} `json:"pay"`
			} `json:"onchain"`
		}
		op := &request{
			OperationName: "payOnchain",
			Query:         payOnChainQuery,
			Variables:     vars,
		}

		return c.send(ctx, op, &data, func() string {
			if data.OnChain.Pay.Success {
				return statusSuccess
			}
			return ""
		})

	case destination.TypeUsername:
		vars := map[string]interface{}{
			"username": req.Username,
			"amount":   int64(req.Amount),
		}
		addMemo(vars, req.Memo)

		var data struct {
			Invoice struct {
				PayKeysendUsername string `json:"payKeysendUsername"`
			} `json:"invoice"`
		}
		op := &request{
			OperationName: "payKeysendUsername",
			Query:         payUsernameQuery,
			Variables:     vars,
		}

		return c.send(ctx, op, &data, func() string {
			return data.Invoice.PayKeysendUsername
		})

	default:
		return nil, fmt.Errorf("unsupported payment kind %q", req.Kind)
	}
}

func (c *Client) send(ctx context.Context, op *request, data interface{},
	status func() string) (*payment.SendResult, error) {

	errs, err := c.do(ctx, c.once, op, data)
	if err != nil {
		return nil, err
	}

	if len(errs) > 0 {
		res := &payment.SendResult{}
		for _, e := range errs {
			res.Errors = append(res.Errors, payment.Error{
				Message: e.Message,
			})
		}

		return res, nil
	}

	switch s := strings.ToLower(status()); s {
	case statusSuccess:
		return &payment.SendResult{Success: true}, nil

	case statusPending:
		return &payment.SendResult{Pending: true}, nil

	default:
		c.log.Warn("payment not completed",
			zap.String("operation", op.OperationName),
			zap.String("status", s))

		return &payment.SendResult{}, nil
	}
}

func addMemo(vars map[string]interface{}, memo *string) {
	if memo != nil {
		vars["memo"] = *memo
	}
}

// UsernameExists reports whether username belongs to an account.
func (c *Client) UsernameExists(ctx context.Context,
	username string) (bool, error) {

	var data struct {
		UsernameExists bool `json:"usernameExists"`
	}

	errs, err := c.do(ctx, c.retrying, &request{
		OperationName: "usernameExists",
		Query:         usernameExistsQuery,
		Variables:     map[string]interface{}{"username": username},
	}, &data)
	if err != nil {
		return false, err
	}
	if err := queryError(errs); err != nil {
		return false, err
	}

	return data.UsernameExists, nil
}

type mainQueryData struct {
	Globals struct {
		NodesIDs []string `json:"nodesIds"`
	} `json:"globals"`
	Me *struct {
		ID             string `json:"id"`
		Language       string `json:"language"`
		Username       string `json:"username"`
		Phone          string `json:"phone"`
		DefaultAccount struct {
			ID              string `json:"id"`
			DefaultWalletID string `json:"defaultWalletId"`
			Wallets         []struct {
				ID             string      `json:"id"`
				Balance        int64       `json:"balance"`
				WalletCurrency wallet.Type `json:"walletCurrency"`
				Transactions   struct {
					Edges []history.Edge `json:"edges"`
				} `json:"transactions"`
			} `json:"wallets"`
		} `json:"defaultAccount"`
	} `json:"me"`
}

// FetchMain runs the main query. The account part is only requested when
// loggedIn is set.
func (c *Client) FetchMain(ctx context.Context,
	loggedIn bool) (*account.Result, error) {

	var data mainQueryData
	errs, err := c.do(ctx, c.retrying, &request{
		OperationName: "mainQuery",
		Query:         mainQuery,
		Variables:     map[string]interface{}{"hasToken": loggedIn},
	}, &data)
	if err != nil {
		return nil, err
	}

	res := &account.Result{Errors: errs}
	if len(errs) > 0 && data.Me == nil && len(data.Globals.NodesIDs) == 0 {
		return res, nil
	}

	md := &account.MainData{
		NodeIDs: data.Globals.NodesIDs,
	}
	if me := data.Me; me != nil {
		md.Username = me.Username
		md.Phone = me.Phone
		md.Language = me.Language
		md.DefaultWalletID = me.DefaultAccount.DefaultWalletID

		for _, w := range me.DefaultAccount.Wallets {
			md.Wallets = append(md.Wallets, account.Wallet{
				ID:           w.ID,
				Currency:     w.WalletCurrency,
				Balance:      w.Balance,
				Transactions: w.Transactions.Edges,
			})
		}
	}
	res.Data = md

	return res, nil
}
