package lnurl

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

const humanReadablePart = "lnurl"

// DecodeURL decodes a bech32 LNURL into the URL it wraps. LNURLs are
// usually longer than the 90 characters plain bech32 allows, so the length
// limit is lifted.
func DecodeURL(lnurl string) (string, error) {
	hrp, data, err := bech32.DecodeNoLimit(lnurl)
	if err != nil {
		return "", err
	}

	if hrp != humanReadablePart {
		return "", fmt.Errorf("incorrect hrp for LNURL. Expected "+
			"'%s', got '%s'", humanReadablePart, hrp)
	}

	data, err = bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func EncodeURL(url string) (string, error) {
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", err
	}

	str, err := bech32.Encode(humanReadablePart, converted)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(str), nil
}

// IsLNURL reports whether s looks like a bech32 LNURL.
func IsLNURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), humanReadablePart+"1")
}

// AddressURL builds the well-known LNURL-pay endpoint for a Lightning
// Address of the form <username>@<domain>.
func AddressURL(address, protocol string) (string, error) {
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid LN address. Expected " +
			"the form <username>@<domain>")
	}

	username, domain := parts[0], parts[1]

	return fmt.Sprintf("%s://%s/.well-known/lnurlp/%s",
		protocol, domain, strings.ToLower(username)), nil
}
