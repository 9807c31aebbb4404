package lnurl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"go.uber.org/zap"
)

var (
	// ErrAmountOutOfRange is returned when the requested amount is outside
	// of the bounds advertised by the service.
	ErrAmountOutOfRange = errors.New("amount outside of sendable range")

	// ErrInsecureURL is returned for plain http services when insecure
	// transport has not been allowed.
	ErrInsecureURL = errors.New("url is not https")
)

// Config configures an LNURL-pay Client.
type Config struct {
	// Params are the chain parameters invoices must be encoded for.
	Params *chaincfg.Params

	// AllowInsecure permits plain http services. Only useful against
	// local test services.
	AllowInsecure bool

	Timeout    time.Duration
	RetryMax   int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client resolves LNURL-pay destinations into invoices.
type Client struct {
	cfg  *Config
	http *retryablehttp.Client
	log  *zap.Logger
}

func NewClient(cfg *Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.RetryMax
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		cfg:  cfg,
		http: rc,
		log:  log.Named("lnurl"),
	}
}

func (c *Client) protocol() string {
	if c.cfg.AllowInsecure {
		return "http"
	}

	return "https"
}

// ResolveURL turns a bech32 LNURL, an lnurlp:// URL or a Lightning Address
// into the service's https endpoint.
func (c *Client) ResolveURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if len(target) > len("lightning:") &&
		strings.EqualFold(target[:len("lightning:")], "lightning:") {

		target = target[len("lightning:"):]
	}

	var (
		url string
		err error
	)
	switch {
	case IsLNURL(target):
		url, err = DecodeURL(strings.ToLower(target))
		if err != nil {
			return "", fmt.Errorf("error decoding LNURL: %w", err)
		}

	case strings.HasPrefix(target, "lnurlp://"):
		url = strings.Replace(target, "lnurlp", c.protocol(), 1)

	case strings.Contains(target, "@"):
		url, err = AddressURL(target, c.protocol())
		if err != nil {
			return "", err
		}

	default:
		return "", fmt.Errorf("unsupported scheme")
	}

	// Ensure that the url uses tls unless insecure services are allowed.
	if !c.cfg.AllowInsecure && !strings.HasPrefix(url, "https") {
		return "", ErrInsecureURL
	}

	return url, nil
}

// FetchPayParams makes the first LNURL-pay request.
func (c *Client) FetchPayParams(ctx context.Context,
	url string) (*PayResponse, error) {

	var payResp PayResponse
	if err := c.get(ctx, url, &payResp); err != nil {
		return nil, err
	}

	if payResp.Status == statusError {
		return nil, &Error{Status: payResp.Status, Reason: payResp.Reason}
	}

	if payResp.Tag != TypePayRequest {
		return nil, fmt.Errorf("unexpected LNURL tag '%s'", payResp.Tag)
	}

	if payResp.Callback == "" {
		return nil, fmt.Errorf("response does not contain a callback")
	}

	return &payResp, nil
}

// FetchInvoice resolves target to a service, asks it for an invoice of
// amount and validates that the invoice commits to the service metadata.
func (c *Client) FetchInvoice(ctx context.Context, target string,
	amount btcutil.Amount) (string, error) {

	url, err := c.ResolveURL(target)
	if err != nil {
		return "", err
	}

	payResp, err := c.FetchPayParams(ctx, url)
	if err != nil {
		return "", err
	}

	msat := lnwire.NewMSatFromSatoshis(amount)
	if int64(msat) < payResp.MinSendable ||
		int64(msat) > payResp.MaxSendable {

		return "", fmt.Errorf("%w: expected an amount between %d and "+
			"%d msat, got %d", ErrAmountOutOfRange,
			payResp.MinSendable, payResp.MaxSendable, msat)
	}

	delim := "?"
	if strings.Contains(payResp.Callback, "?") {
		delim = "&"
	}

	getInvoice := fmt.Sprintf(
		"%s%samount=%d", payResp.Callback, delim, msat,
	)

	var invoice InvoiceResponse
	if err := c.get(ctx, getInvoice, &invoice); err != nil {
		return "", err
	}

	if invoice.Status == statusError {
		return "", &Error{Status: invoice.Status, Reason: invoice.Reason}
	}

	inv, err := zpay32.Decode(invoice.PayRequest, c.cfg.Params)
	if err != nil {
		return "", fmt.Errorf("could not decode invoice: %w", err)
	}

	// Ensure that the invoice description hash matches the metadata
	// received before.
	hash := sha256.Sum256([]byte(payResp.Metadata))
	if inv.DescriptionHash == nil ||
		!bytes.Equal(inv.DescriptionHash[:], hash[:]) {

		return "", fmt.Errorf("invalid invoice description hash")
	}

	if inv.MilliSat == nil || *inv.MilliSat != msat {
		return "", fmt.Errorf("invoice amount does not match the " +
			"requested amount")
	}

	c.log.Debug("resolved lnurl invoice",
		zap.String("url", url), zap.Int64("amt_sat", int64(amount)))

	return invoice.PayRequest, nil
}

// Description extracts the text/plain entry of LNURL metadata.
func Description(metadata string) string {
	var entries [][]string
	if err := json.Unmarshal([]byte(metadata), &entries); err != nil {
		return ""
	}

	for _, d := range entries {
		if len(d) == 2 && d[0] == "text/plain" {
			return d[1]
		}
	}

	return ""
}

func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodGet, url, nil,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var svcErr Error
		if json.Unmarshal(body, &svcErr) == nil &&
			svcErr.Status == statusError {

			return &svcErr
		}

		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}
