package destination

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/shopspring/decimal"

	"github.com/ellemouton/lnsend/lnurl"
)

const (
	schemeBitcoin   = "bitcoin:"
	schemeLightning = "lightning:"

	// minUsernameLength is the length a bare string must exceed before it
	// is treated as a username.
	minUsernameLength = 2
)

// Parser classifies destinations for a single network. It holds no state
// besides the network rules, so Parse is a pure function of its inputs.
type Parser struct {
	network *Network
}

// NewParser returns a parser for the named network, or ErrUnknownNetwork.
func NewParser(network string) (*Parser, error) {
	n, err := LookupNetwork(network)
	if err != nil {
		return nil, err
	}

	return &Parser{network: n}, nil
}

// Network returns the rules the parser validates against.
func (p *Parser) Network() *Network {
	return p.network
}

// Parse classifies text for network. The only error is ErrUnknownNetwork;
// unpayable destinations are reported as Invalid.
func Parse(text, network, localPubKey, localUsername string) (Kind, error) {
	p, err := NewParser(network)
	if err != nil {
		return nil, err
	}

	return p.Parse(text, localPubKey, localUsername), nil
}

// Parse classifies text. localPubKey is the hex encoded public key of our
// own node and localUsername our own handle, both used to detect payments
// to ourselves.
func (p *Parser) Parse(text, localPubKey, localUsername string) Kind {
	text = strings.TrimSpace(text)
	if text == "" {
		return Invalid{Reason: "destination is empty"}
	}

	switch {
	case hasScheme(text, schemeBitcoin):
		return p.parseBitcoinURI(text[len(schemeBitcoin):], localPubKey)

	case hasScheme(text, schemeLightning):
		rest := text[len(schemeLightning):]
		if lnurl.IsLNURL(rest) {
			return p.parseLNURL(rest)
		}
		if strings.Contains(rest, "@") {
			return LNURLPay{LightningAddress: strings.ToLower(rest)}
		}

		return p.parseCandidate(rest, localPubKey)
	}

	if lnurl.IsLNURL(text) {
		return p.parseLNURL(text)
	}

	if p.network.Matches(text) || p.network.matchesOther(text) {
		return p.parseCandidate(text, localPubKey)
	}

	if strings.Contains(text, "@") {
		return LNURLPay{LightningAddress: strings.ToLower(text)}
	}

	if len(text) <= minUsernameLength {
		return Invalid{Reason: "destination is too short"}
	}

	if localUsername != "" && strings.EqualFold(text, localUsername) {
		return Invalid{Reason: "cannot send a payment to yourself"}
	}

	return Username{Handle: text}
}

// parseCandidate validates a string that has to be an address or invoice.
func (p *Parser) parseCandidate(s, localPubKey string) Kind {
	if !p.network.Matches(s) {
		if p.network.matchesOther(s) {
			return Invalid{Reason: fmt.Sprintf(
				"destination is not valid for %s", p.network.Name,
			)}
		}

		return Invalid{Reason: "unrecognized address or invoice"}
	}

	if strings.HasPrefix(strings.ToLower(s), "ln") {
		return p.parseInvoice(s, localPubKey)
	}

	return p.parseAddress(s)
}

func (p *Parser) parseInvoice(raw, localPubKey string) Kind {
	raw = strings.ToLower(raw)

	inv, err := zpay32.Decode(raw, p.network.Params)
	if err != nil {
		return Invalid{Reason: fmt.Sprintf("invalid invoice: %v", err)}
	}

	kind := LightningInvoice{
		Raw:        raw,
		Amountless: inv.MilliSat == nil || *inv.MilliSat == 0,
	}

	if !kind.Amountless {
		amt := inv.MilliSat.ToSatoshis()
		kind.Amount = &amt
	}

	if inv.Description != nil && *inv.Description != "" {
		memo := *inv.Description
		kind.Memo = &memo
	}

	if inv.Destination != nil {
		kind.DestinationNode = hex.EncodeToString(
			inv.Destination.SerializeCompressed(),
		)
	}

	kind.SameNode = localPubKey != "" &&
		strings.EqualFold(kind.DestinationNode, localPubKey)

	return kind
}

func (p *Parser) parseAddress(s string) Kind {
	// Bech32 addresses are case insensitive, base58 ones are not.
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, p.network.Params.Bech32HRPSegwit+"1") {
		s = lower
	}

	addr, err := btcutil.DecodeAddress(s, p.network.Params)
	if err != nil {
		return Invalid{Reason: fmt.Sprintf("invalid address: %v", err)}
	}

	if !addr.IsForNet(p.network.Params) {
		return Invalid{Reason: fmt.Sprintf(
			"address is not valid for %s", p.network.Name,
		)}
	}

	return OnChainAddress{
		Address: addr.EncodeAddress(),
		Network: p.network.Name,
	}
}

// parseBitcoinURI handles the part of a BIP 21 URI after the scheme.
func (p *Parser) parseBitcoinURI(rest, localPubKey string) Kind {
	address, rawQuery := rest, ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		address, rawQuery = rest[:i], rest[i+1:]
	}

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Invalid{Reason: fmt.Sprintf("invalid payment URI: %v", err)}
	}

	// Unified QR codes carry an invoice next to the address; the invoice
	// wins when it is payable on this network.
	if invoice := params.Get("lightning"); invoice != "" {
		kind := p.parseCandidate(invoice, localPubKey)
		if kind.Type() == TypeInvoice {
			return kind
		}
	}

	for key := range params {
		if strings.HasPrefix(key, "req-") {
			return Invalid{Reason: fmt.Sprintf(
				"payment URI requires unsupported parameter %q",
				key,
			)}
		}
	}

	kind := p.parseCandidate(address, localPubKey)
	onChain, ok := kind.(OnChainAddress)
	if !ok {
		if kind.Type() == TypeInvoice {
			return Invalid{Reason: "bitcoin URI does not contain " +
				"an address"}
		}

		return kind
	}

	if v := params.Get("amount"); v != "" {
		amt, err := parseBTCAmount(v)
		if err != nil {
			return Invalid{Reason: fmt.Sprintf(
				"invalid amount in payment URI: %v", err,
			)}
		}
		onChain.Amount = &amt
	}

	memo := params.Get("message")
	if memo == "" {
		memo = params.Get("label")
	}
	if memo != "" {
		onChain.Memo = &memo
	}

	return onChain
}

func (p *Parser) parseLNURL(s string) Kind {
	u, err := lnurl.DecodeURL(strings.ToLower(s))
	if err != nil {
		return Invalid{Reason: fmt.Sprintf("invalid LNURL: %v", err)}
	}

	return LNURLPay{URL: u}
}

// parseBTCAmount converts a decimal BTC amount into satoshis.
func parseBTCAmount(v string) (btcutil.Amount, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, err
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("amount cannot be negative")
	}

	sats := d.Shift(8)
	if !sats.Equal(sats.Truncate(0)) {
		return 0, fmt.Errorf("amount has more than 8 decimals")
	}

	if sats.GreaterThan(decimal.NewFromInt(int64(btcutil.MaxSatoshi))) {
		return 0, fmt.Errorf("amount exceeds the total supply")
	}

	return btcutil.Amount(sats.IntPart()), nil
}

func hasScheme(s, scheme string) bool {
	return len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme)
}
