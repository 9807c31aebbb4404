package destination

import (
	"github.com/btcsuite/btcutil"
)

// Type tags the variant held by a Kind.
type Type string

const (
	TypeOnChain  Type = "onchain"
	TypeInvoice  Type = "lightning"
	TypeUsername Type = "username"
	TypeLNURL    Type = "lnurl"
	TypeInvalid  Type = "invalid"
)

// Kind is the classification of a payment destination. Exactly one of
// OnChainAddress, LightningInvoice, Username, LNURLPay or Invalid.
type Kind interface {
	Type() Type

	isKind()
}

// OnChainAddress is a bitcoin address valid for Network. Amount and Memo
// are only set when the address came in a payment URI that carried them.
type OnChainAddress struct {
	Address string
	Network string
	Amount  *btcutil.Amount
	Memo    *string
}

// LightningInvoice is a decoded BOLT 11 invoice. Amount is set iff the
// invoice encodes a fixed amount. SameNode is true when the invoice pays to
// the local node, which makes the payment fee free.
type LightningInvoice struct {
	Raw             string
	Amount          *btcutil.Amount
	Amountless      bool
	Memo            *string
	DestinationNode string
	SameNode        bool
}

// Username is an in-network handle. Whether it exists is confirmed
// separately.
type Username struct {
	Handle string
}

// LNURLPay is an LNURL-pay service, given either as a bech32 LNURL or as a
// Lightning Address.
type LNURLPay struct {
	URL              string
	LightningAddress string
}

// Invalid is a destination that can't be paid, with the reason why.
type Invalid struct {
	Reason string
}

func (OnChainAddress) Type() Type   { return TypeOnChain }
func (LightningInvoice) Type() Type { return TypeInvoice }
func (Username) Type() Type         { return TypeUsername }
func (LNURLPay) Type() Type         { return TypeLNURL }
func (Invalid) Type() Type          { return TypeInvalid }

func (OnChainAddress) isKind()   {}
func (LightningInvoice) isKind() {}
func (Username) isKind()         {}
func (LNURLPay) isKind()         {}
func (Invalid) isKind()          {}

// IsValid reports whether k is a payable destination.
func IsValid(k Kind) bool {
	return k != nil && k.Type() != TypeInvalid
}

// RequiresAmount reports whether the payer has to supply the amount for k.
func RequiresAmount(k Kind) bool {
	switch d := k.(type) {
	case LightningInvoice:
		return d.Amountless

	case OnChainAddress, Username, LNURLPay:
		return true

	default:
		return false
	}
}
