package destination

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// ErrUnknownNetwork is returned when a parser is requested for a network
// we have no address and invoice rules for. This is a configuration error
// and should stop the application at startup.
var ErrUnknownNetwork = errors.New("unknown network")

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkRegtest = "regtest"
)

// Network bundles the chain parameters used to validate addresses and
// invoices with the prefix pattern that marks a string as a candidate
// address or invoice for that network.
type Network struct {
	Name    string
	Params  *chaincfg.Params
	pattern *regexp.Regexp
}

var (
	mainnetPattern = regexp.MustCompile(`(?i)^(1|3|bc1|lnbc(\d+[munp]?)?1)`)

	// Testnet deployments run against a regtest style chain, so both
	// share the bcrt/lnbcrt prefixes and parameters.
	testPattern = regexp.MustCompile(`(?i)^(2|bcrt|lnbcrt)`)

	networks = map[string]*Network{
		NetworkMainnet: {
			Name:    NetworkMainnet,
			Params:  &chaincfg.MainNetParams,
			pattern: mainnetPattern,
		},
		NetworkTestnet: {
			Name:    NetworkTestnet,
			Params:  &chaincfg.RegressionNetParams,
			pattern: testPattern,
		},
		NetworkRegtest: {
			Name:    NetworkRegtest,
			Params:  &chaincfg.RegressionNetParams,
			pattern: testPattern,
		},
	}
)

// LookupNetwork returns the rules for the named network.
func LookupNetwork(name string) (*Network, error) {
	n, ok := networks[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}

	return n, nil
}

// Networks lists the supported network names.
func Networks() []string {
	return []string{NetworkMainnet, NetworkTestnet, NetworkRegtest}
}

// Matches reports whether s carries one of the network's address or
// invoice prefixes.
func (n *Network) Matches(s string) bool {
	return n.pattern.MatchString(s)
}

// matchesOther reports whether s carries the prefix of a network with
// different rules than n.
func (n *Network) matchesOther(s string) bool {
	for _, other := range networks {
		if other.pattern == n.pattern {
			continue
		}
		if other.Matches(s) {
			return true
		}
	}

	return false
}
