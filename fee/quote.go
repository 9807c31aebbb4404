// Package fee quotes network fees for classified destinations. Quotes are
// tagged with a request token so that a slow answer to an old request can
// never replace the answer to a newer one.
package fee

import (
	"fmt"

	"github.com/btcsuite/btcutil"
)

// State is the state of a fee quote.
type State int

const (
	// StateUnknown means no fee can be quoted yet: there is no payable
	// destination or the amount is still missing.
	StateUnknown State = iota

	// StatePending means a remote request is in flight.
	StatePending

	// StateResolved means Fee holds the quoted fee.
	StateResolved

	// StateFailed means the remote request failed. Submission stays
	// disabled until the destination or amount changes.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Quote is a fee quote for the request identified by Token.
type Quote struct {
	State State
	Fee   btcutil.Amount
	Err   error
	Token uint64
}

func Unknown(token uint64) Quote {
	return Quote{State: StateUnknown, Token: token}
}

func Pending(token uint64) Quote {
	return Quote{State: StatePending, Token: token}
}

func Resolved(token uint64, fee btcutil.Amount) Quote {
	return Quote{State: StateResolved, Fee: fee, Token: token}
}

func Failed(token uint64, err error) Quote {
	return Quote{State: StateFailed, Err: err, Token: token}
}

// Numeric reports whether the quote holds a fee amount.
func (q Quote) Numeric() bool {
	return q.State == StateResolved
}
