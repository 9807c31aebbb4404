// Package config reads the lnsend configuration from an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ellemouton/lnsend/destination"
)

const (
	BackendGraphQL = "graphql"
	BackendLND     = "lnd"
)

var validate = newValidator()

// newValidator returns a validator that also knows the "network" tag, which
// accepts the networks destinations can be parsed for.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("network", func(fl validator.FieldLevel) bool {
		for _, n := range destination.Networks() {
			if fl.Field().String() == n {
				return true
			}
		}

		return false
	})

	return v
}

// Config holds the settings of the lnsend command.
type Config struct {
	Network   string `yaml:"network" env:"LNSEND_NETWORK" validate:"required,network"`
	Backend   string `yaml:"backend" env:"LNSEND_BACKEND" validate:"required,oneof=graphql lnd"`
	LogLevel  string `yaml:"log_level" env:"LNSEND_LOG_LEVEL" validate:"oneof=debug info warn error"`
	CachePath string `yaml:"cache_path" env:"LNSEND_CACHE_PATH"`

	// MetricsAddress serves prometheus metrics when set.
	MetricsAddress string `yaml:"metrics_address" env:"LNSEND_METRICS_ADDRESS"`

	GraphQL GraphQLConfig `yaml:"graphql" envPrefix:"LNSEND_GRAPHQL_"`
	LND     LNDConfig     `yaml:"lnd" envPrefix:"LNSEND_LND_"`
	LNURL   LNURLConfig   `yaml:"lnurl" envPrefix:"LNSEND_LNURL_"`
	Payment PaymentConfig `yaml:"payment" envPrefix:"LNSEND_PAYMENT_"`
}

type GraphQLConfig struct {
	URL string `yaml:"url" env:"URL" validate:"omitempty,url"`

	// Token is a secret and only read from the environment.
	Token    string        `yaml:"-" env:"TOKEN"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gt=0"`
	RetryMax int           `yaml:"retry_max" env:"RETRY_MAX" validate:"gte=0"`
}

type LNDConfig struct {
	Host        string        `yaml:"host" env:"HOST"`
	MacaroonDir string        `yaml:"macaroon_dir" env:"MACAROON_DIR"`
	TLSPath     string        `yaml:"tls_path" env:"TLS_PATH"`
	PayTimeout  time.Duration `yaml:"pay_timeout" env:"PAY_TIMEOUT" validate:"gt=0"`
	ConfTarget  int32         `yaml:"conf_target" env:"CONF_TARGET" validate:"gt=0"`
}

type LNURLConfig struct {
	AllowInsecure bool          `yaml:"allow_insecure" env:"ALLOW_INSECURE"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gt=0"`
}

type PaymentConfig struct {
	QuoteTimeout time.Duration `yaml:"quote_timeout" env:"QUOTE_TIMEOUT" validate:"gt=0"`

	// ProbeAddress is dialed to tell offline from server failures.
	ProbeAddress string `yaml:"probe_address" env:"PROBE_ADDRESS"`

	FailOnNetworkErrorWithoutCache bool `yaml:"fail_on_network_error_without_cache" env:"FAIL_ON_NETWORK_ERROR_WITHOUT_CACHE"`
}

// Default returns the configuration used for settings that are not set
// anywhere else.
func Default() *Config {
	return &Config{
		Network:  "mainnet",
		Backend:  BackendGraphQL,
		LogLevel: "info",
		GraphQL: GraphQLConfig{
			Timeout:  10 * time.Second,
			RetryMax: 3,
		},
		LND: LNDConfig{
			Host:       "localhost:10009",
			PayTimeout: 60 * time.Second,
			ConfTarget: 6,
		},
		LNURL: LNURLConfig{
			Timeout: 10 * time.Second,
		},
		Payment: PaymentConfig{
			QuoteTimeout: 10 * time.Second,
		},
	}
}

// Load reads the file at path, if any, and applies the environment on top
// of it. The result is not validated yet so that callers can apply their
// own overrides first.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for the selected backend.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Backend {
	case BackendGraphQL:
		if c.GraphQL.URL == "" {
			return errors.New("invalid config: graphql.url is " +
				"required for the graphql backend")
		}

	case BackendLND:
		if c.LND.Host == "" {
			return errors.New("invalid config: lnd.host is " +
				"required for the lnd backend")
		}
	}

	return nil
}
