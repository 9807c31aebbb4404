package account

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ellemouton/lnsend/cache"
	"github.com/ellemouton/lnsend/history"
	"github.com/ellemouton/lnsend/metrics"
	"github.com/ellemouton/lnsend/wallet"
)

const cacheKey = "main"

// Result is the answer to a main query. Data may be set along with
// Errors when the server returned partial data.
type Result struct {
	Data   *MainData
	Errors []GraphQLError
}

// Fetcher runs the main query. The returned error is a network error;
// errors reported by the server are part of the result.
type Fetcher interface {
	FetchMain(ctx context.Context, loggedIn bool) (*Result, error)
}

// Cache stores the last successful main query.
type Cache interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// View is what the wallet screens render from the main query.
type View struct {
	Balances        map[wallet.Type]int64
	WalletIDs       map[wallet.Type]string
	DefaultWalletID string
	PubKey          string
	Username        string
	Transactions    []history.Entry
	Warnings        []Warning

	// Stale is set when the view is built from cached data.
	Stale bool
}

// LoaderConfig holds the collaborators of a Loader. Only Fetcher is
// required.
type LoaderConfig struct {
	Fetcher  Fetcher
	Cache    Cache
	Probe    Probe
	Sink     Sink
	Policy   Policy
	LoggedIn bool

	Logger  *zap.Logger
	Metrics metrics.Recorder
}

// Loader refreshes the main query and keeps the last good data around.
type Loader struct {
	cfg *LoaderConfig
	log *zap.Logger
	rec metrics.Recorder

	mu       sync.Mutex
	previous *MainData
}

func NewLoader(cfg *LoaderConfig) *Loader {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics != nil {
		rec = cfg.Metrics
	}

	return &Loader{
		cfg: cfg,
		log: log.Named("loader"),
		rec: rec,
	}
}

// Refresh runs the main query and builds the view. Fatal conditions are
// returned as errors wrapping ErrNoData or ErrMissingBTCWallet.
func (l *Loader) Refresh(ctx context.Context) (*View, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.cached()

	res, netErr := l.cfg.Fetcher.FetchMain(ctx, l.cfg.LoggedIn)
	if res == nil {
		res = &Result{}
	}

	qerr := QueryError{
		GraphQLErrors: res.Errors,
		NetworkError:  netErr,
	}

	var out Outcome
	if !qerr.Empty() {
		var err error
		out, err = Classify(
			ctx, qerr, previous != nil, l.cfg.Probe, l.cfg.Sink,
			l.cfg.Policy,
		)

		outcome := "degraded"
		if err != nil {
			outcome = "fatal"
		}
		l.rec.IncCounter(metrics.QueryClassified, map[string]string{
			"outcome": outcome,
		})

		if err != nil {
			l.log.Error("main query failed", zap.Error(err))
			return nil, err
		}

		l.log.Warn("main query returned errors",
			zap.Int("num_warnings", len(out.Warnings)),
			zap.Error(qerr))
	}

	data, stale := res.Data, false
	switch {
	case data != nil:
		l.store(data)

	default:
		data, stale = previous, previous != nil
	}

	wallets, err := ResolveWallets(data, l.cfg.LoggedIn, false)
	if err != nil {
		return nil, err
	}

	view := &View{
		Balances:     make(map[wallet.Type]int64),
		WalletIDs:    make(map[wallet.Type]string),
		PubKey:       data.PubKey(),
		Transactions: []history.Entry{},
		Warnings:     out.Warnings,
		Stale:        stale,
	}

	if data == nil {
		return view, nil
	}

	view.Username = data.Username
	view.DefaultWalletID = data.DefaultWalletID

	var btcEdges, usdEdges []history.Edge
	if wallets.BTC != nil {
		view.Balances[wallet.BTC] = wallets.BTC.Balance
		view.WalletIDs[wallet.BTC] = wallets.BTC.ID
		btcEdges = wallets.BTC.Transactions
	}
	if wallets.USD != nil {
		view.Balances[wallet.USD] = wallets.USD.Balance
		view.WalletIDs[wallet.USD] = wallets.USD.ID
		usdEdges = wallets.USD.Transactions
	}
	view.Transactions = history.Merge(btcEdges, usdEdges)

	return view, nil
}

// cached returns the last good data, from memory or from the cache. Must
// be called with the lock held.
func (l *Loader) cached() *MainData {
	if l.previous != nil {
		return l.previous
	}

	if l.cfg.Cache == nil {
		return nil
	}

	raw, err := l.cfg.Cache.Get(cacheKey)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return nil

	case err != nil:
		l.log.Warn("unable to read cache", zap.Error(err))
		return nil
	}

	var data MainData
	if err := json.Unmarshal(raw, &data); err != nil {
		l.log.Warn("ignoring corrupt cache entry", zap.Error(err))
		return nil
	}

	l.previous = &data
	return l.previous
}

// store keeps data as the last good data. Must be called with the lock
// held.
func (l *Loader) store(data *MainData) {
	l.previous = data

	if l.cfg.Cache == nil {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		l.log.Warn("unable to encode main query", zap.Error(err))
		return
	}

	if err := l.cfg.Cache.Put(cacheKey, raw); err != nil {
		l.log.Warn("unable to write cache", zap.Error(err))
	}
}
