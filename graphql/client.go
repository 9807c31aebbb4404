// Package graphql talks to the wallet service over its GraphQL API. A
// single Client quotes fees, sends payments, checks usernames and runs the
// main query.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/account"
)

// ErrNoData is returned when a response carries neither data nor errors.
var ErrNoData = errors.New("response contains no data")

type Config struct {
	URL string

	// Token authenticates the account. Without it only public queries
	// succeed.
	Token string

	Timeout  time.Duration
	RetryMax int

	// RetryWaitMin and RetryWaitMax bound the backoff between retries.
	// Zero keeps the retryablehttp defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a GraphQL client for the wallet service. Queries and fee
// quotes are retried on transient failures; payments are never retried.
type Client struct {
	cfg *Config
	log *zap.Logger

	retrying *retryablehttp.Client
	once     *retryablehttp.Client
}

func NewClient(cfg *Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		cfg:      cfg,
		log:      log.Named("graphql"),
		retrying: newHTTPClient(cfg, cfg.RetryMax),
		once:     newHTTPClient(cfg, 0),
	}
}

func newHTTPClient(cfg *Config, retryMax int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = retryMax

	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	rc.HTTPClient = httpClient

	return rc
}

type request struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage        `json:"data"`
	Errors []account.GraphQLError `json:"errors"`
}

// do runs an operation and decodes its data into out. The returned error
// is a transport error; errors reported by the server are returned
// separately, possibly along with data.
func (c *Client) do(ctx context.Context, rc *retryablehttp.Client,
	req *request, out interface{}) ([]account.GraphQLError, error) {

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := rc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request error: %w", req.OperationName,
			err)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	c.log.Debug("graphql request",
		zap.String("operation", req.OperationName),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	var gqlResp response
	if err := json.Unmarshal(raw, &gqlResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %d",
				resp.StatusCode)
		}

		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Servers answer failed operations with a 4xx status and an errors
	// list; only answers without one are transport failures.
	if resp.StatusCode != http.StatusOK && len(gqlResp.Errors) == 0 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	hasData := len(gqlResp.Data) > 0 && string(gqlResp.Data) != "null"
	if !hasData {
		if len(gqlResp.Errors) == 0 {
			return nil, ErrNoData
		}

		return gqlResp.Errors, nil
	}

	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return gqlResp.Errors, fmt.Errorf("decode data: %w", err)
		}
	}

	return gqlResp.Errors, nil
}

// queryError folds server errors into a single error for callers that
// have no use for partial data.
func queryError(errs []account.GraphQLError) error {
	if len(errs) == 0 {
		return nil
	}

	return account.QueryError{GraphQLErrors: errs}
}
