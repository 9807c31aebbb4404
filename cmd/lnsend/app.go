package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ellemouton/lnsend/account"
	"github.com/ellemouton/lnsend/cache"
	"github.com/ellemouton/lnsend/config"
	"github.com/ellemouton/lnsend/destination"
	"github.com/ellemouton/lnsend/diagnostics"
	"github.com/ellemouton/lnsend/fee"
	"github.com/ellemouton/lnsend/graphql"
	"github.com/ellemouton/lnsend/lnd"
	"github.com/ellemouton/lnsend/lnurl"
	"github.com/ellemouton/lnsend/metrics"
	"github.com/ellemouton/lnsend/payment"
)

// app wires the configured backend into the payment and account
// components.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics metrics.Recorder

	parser    *destination.Parser
	estimator fee.Estimator
	sender    payment.Sender
	usernames payment.UsernameResolver
	invoices  *lnurl.Client
	loader    *account.Loader

	closers []func()
}

// loadConfig reads the config file and environment and applies the flags
// that were set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"network":  &cfg.Network,
		"backend":  &cfg.Backend,
		"url":      &cfg.GraphQL.URL,
		"host":     &cfg.LND.Host,
		"macpath":  &cfg.LND.MacaroonDir,
		"tlspath":  &cfg.LND.TLSPath,
		"loglevel": &cfg.LogLevel,
	}
	for name, field := range overrides {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

func newApp(c *cli.Context) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	// An unknown network is a configuration error and stops here.
	parser, err := destination.NewParser(cfg.Network)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NoopRecorder{},
		parser:  parser,
		closers: []func(){func() { _ = log.Sync() }},
	}

	if cfg.MetricsAddress != "" {
		if err := a.serveMetrics(); err != nil {
			a.close()
			return nil, err
		}
	}

	a.invoices = lnurl.NewClient(&lnurl.Config{
		Params:        parser.Network().Params,
		AllowInsecure: cfg.LNURL.AllowInsecure,
		Timeout:       cfg.LNURL.Timeout,
		RetryMax:      cfg.GraphQL.RetryMax,
		Logger:        log,
	})

	var fetcher account.Fetcher
	switch cfg.Backend {
	case config.BackendLND:
		services, err := lnd.Connect(
			cfg.LND.Host, cfg.Network, cfg.LND.MacaroonDir,
			cfg.LND.TLSPath,
		)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, services.Close)

		backend := lnd.NewBackend(&lnd.Config{
			Lightning:  services.Client,
			WalletKit:  services.WalletKit,
			Router:     services.Router,
			Params:     parser.Network().Params,
			PayTimeout: cfg.LND.PayTimeout,
			ConfTarget: cfg.LND.ConfTarget,
			Logger:     log,
		})
		a.estimator, a.sender, fetcher = backend, backend, backend

	default:
		client := graphql.NewClient(&graphql.Config{
			URL:      cfg.GraphQL.URL,
			Token:    cfg.GraphQL.Token,
			Timeout:  cfg.GraphQL.Timeout,
			RetryMax: cfg.GraphQL.RetryMax,
			Logger:   log,
		})
		a.estimator, a.sender, fetcher = client, client, client
		a.usernames = client
	}

	loaderCfg := &account.LoaderConfig{
		Fetcher: fetcher,
		Sink:    diagnostics.NewZapSink(log),
		Policy: account.Policy{
			FailOnNetworkErrorWithoutCache: cfg.Payment.FailOnNetworkErrorWithoutCache,
		},
		LoggedIn: cfg.Backend == config.BackendLND ||
			cfg.GraphQL.Token != "",
		Logger:  log,
		Metrics: a.metrics,
	}

	if cfg.Payment.ProbeAddress != "" {
		loaderCfg.Probe = &diagnostics.Dialer{
			Address: cfg.Payment.ProbeAddress,
		}
	}

	if cfg.CachePath != "" {
		store, err := cache.Open(cfg.CachePath)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		loaderCfg.Cache = store
	}

	a.loader = account.NewLoader(loaderCfg)

	return a, nil
}

func (a *app) serveMetrics() error {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		return fmt.Errorf("could not register metrics: %w", err)
	}
	a.metrics = rec

	srv := &http.Server{
		Addr:    a.cfg.MetricsAddress,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(
			context.Background(), time.Second,
		)
		defer cancel()

		_ = srv.Shutdown(ctx)
	})

	return nil
}

// sessionConfig returns the collaborators of a payment session.
func (a *app) sessionConfig() *payment.Config {
	return &payment.Config{
		Estimator: a.estimator,
		Sender:    a.sender,
		Refresher: payment.RefresherFunc(func(ctx context.Context) error {
			_, err := a.loader.Refresh(ctx)
			return err
		}),
		Invoices:     a.invoices,
		Usernames:    a.usernames,
		QuoteTimeout: a.cfg.Payment.QuoteTimeout,
		Logger:       a.log,
		Metrics:      a.metrics,
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
