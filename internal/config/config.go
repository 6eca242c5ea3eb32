package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/sabarim/starmf/internal/auth"
	"github.com/sabarim/starmf/internal/transport"
	"github.com/sabarim/starmf/internal/validate"
)

// EnvPrefix prefixes every environment override, e.g. STARMF_ACCOUNT_PASSWORD.
const EnvPrefix = "STARMF"

// DefaultOrderEntryURL is the exchange's demo order-entry endpoint.
const DefaultOrderEntryURL = "https://bsestarmfdemo.bseindia.com/MFOrderEntry/MFOrder.svc/Secure"

// Config defines the application configuration structure
type Config struct {
	Account   AccountConfig   `mapstructure:"account"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Transport TransportConfig `mapstructure:"transport"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Session   SessionConfig   `mapstructure:"session"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Schemes   SchemesConfig   `mapstructure:"schemes"`
	Log       LogConfig       `mapstructure:"log"`
}

// AccountConfig holds the member's static login details
type AccountConfig struct {
	UserID   string `mapstructure:"user_id"`
	MemberID string `mapstructure:"member_id"`
	Password string `mapstructure:"password"`
}

type EndpointsConfig struct {
	OrderEntry string `mapstructure:"order_entry"`
}

// TransportConfig defines timeouts and the retry budget
type TransportConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay  time.Duration `mapstructure:"max_retry_delay"`
	VerifyTLS      bool          `mapstructure:"verify_tls"`
	CACertPath     string        `mapstructure:"ca_cert_path"`
}

type BreakerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Threshold uint32        `mapstructure:"threshold"`
	CoolDown  time.Duration `mapstructure:"cool_down"`
}

type SessionConfig struct {
	Validity         time.Duration `mapstructure:"validity"`
	AutoReauth       bool          `mapstructure:"auto_reauth"`
	MaxLoginAttempts int           `mapstructure:"max_login_attempts"`
}

// LimitsConfig defines the business bounds checked before sending an order
type LimitsConfig struct {
	MinLumpsumAmount   float64 `mapstructure:"min_lumpsum_amount"`
	MinSIPAmount       float64 `mapstructure:"min_sip_amount"`
	MaxSIPInstallments int     `mapstructure:"max_sip_installments"`
}

type AuditConfig struct {
	Dir     string `mapstructure:"dir"`
	Parquet bool   `mapstructure:"parquet"`
}

// SchemesConfig defines where the scheme master lives and how it is refreshed
type SchemesConfig struct {
	Path            string `mapstructure:"path"`
	MasterURL       string `mapstructure:"master_url"`
	KiteAPIKey      string `mapstructure:"kite_api_key"`
	KiteAccessToken string `mapstructure:"kite_access_token"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

var keys = []string{
	"account.user_id",
	"account.member_id",
	"account.password",
	"endpoints.order_entry",
	"transport.connect_timeout",
	"transport.read_timeout",
	"transport.max_retries",
	"transport.retry_delay",
	"transport.max_retry_delay",
	"transport.verify_tls",
	"transport.ca_cert_path",
	"breaker.enabled",
	"breaker.threshold",
	"breaker.cool_down",
	"session.validity",
	"session.auto_reauth",
	"session.max_login_attempts",
	"limits.min_lumpsum_amount",
	"limits.min_sip_amount",
	"limits.max_sip_installments",
	"audit.dir",
	"audit.parquet",
	"schemes.path",
	"schemes.master_url",
	"schemes.kite_api_key",
	"schemes.kite_access_token",
	"log.level",
	"log.development",
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadConfig loads configuration from file and overrides with environment variables.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)

	for _, key := range keys {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return Config{}, errors.Wrapf(err, "[config] - failed to bind %s", key)
		}
	}

	// Flags that default to true cannot be told apart from an explicit false
	// after unmarshalling.
	v.SetDefault("transport.verify_tls", true)
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("session.auto_reauth", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "[config] - failed to read %s", path)
		}
		fmt.Fprintf(os.Stderr, "config file not found at %s, using environment and defaults\n", path)
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "[config] - failed to unmarshal config")
	}

	applyDefaults(&cfg)
	return cfg, nil
}

// applyDefaults sets default values for any config values not set from file or environment
func applyDefaults(cfg *Config) {
	if cfg.Endpoints.OrderEntry == "" {
		cfg.Endpoints.OrderEntry = DefaultOrderEntryURL
	}

	t := transport.DefaultConfig()
	if cfg.Transport.ConnectTimeout == 0 {
		cfg.Transport.ConnectTimeout = t.ConnectTimeout
	}
	if cfg.Transport.ReadTimeout == 0 {
		cfg.Transport.ReadTimeout = t.ReadTimeout
	}
	if cfg.Transport.MaxRetries == 0 {
		cfg.Transport.MaxRetries = t.Policy.MaxRetries
	}
	if cfg.Transport.RetryDelay == 0 {
		cfg.Transport.RetryDelay = t.Policy.BaseDelay
	}
	if cfg.Transport.MaxRetryDelay == 0 {
		cfg.Transport.MaxRetryDelay = t.Policy.MaxDelay
	}

	if cfg.Breaker.Threshold == 0 {
		cfg.Breaker.Threshold = t.Breaker.Threshold
	}
	if cfg.Breaker.CoolDown == 0 {
		cfg.Breaker.CoolDown = t.Breaker.CoolDown
	}

	if cfg.Session.Validity == 0 {
		cfg.Session.Validity = auth.DefaultValidity(auth.FamilyOrderEntry)
	}
	if cfg.Session.MaxLoginAttempts == 0 {
		cfg.Session.MaxLoginAttempts = 5
	}

	limits := validate.DefaultLimits()
	if cfg.Limits.MinLumpsumAmount == 0 {
		cfg.Limits.MinLumpsumAmount = limits.MinLumpsumAmount.InexactFloat64()
	}
	if cfg.Limits.MinSIPAmount == 0 {
		cfg.Limits.MinSIPAmount = limits.MinSIPAmount.InexactFloat64()
	}
	if cfg.Limits.MaxSIPInstallments == 0 {
		cfg.Limits.MaxSIPInstallments = limits.MaxSIPInstallments
	}

	if cfg.Audit.Dir == "" {
		cfg.Audit.Dir = "audit"
	}
	if cfg.Schemes.Path == "" {
		cfg.Schemes.Path = "data/schemes.csv"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Credentials returns the account section as authenticator credentials.
func (c Config) Credentials() auth.Credentials {
	return auth.Credentials{
		UserID:   c.Account.UserID,
		MemberID: c.Account.MemberID,
		Password: c.Account.Password,
	}
}

// TransportOptions converts the transport and breaker sections.
func (c Config) TransportOptions() transport.Config {
	return transport.Config{
		ConnectTimeout: c.Transport.ConnectTimeout,
		ReadTimeout:    c.Transport.ReadTimeout,
		Policy: transport.Policy{
			MaxRetries: c.Transport.MaxRetries,
			BaseDelay:  c.Transport.RetryDelay,
			MaxDelay:   c.Transport.MaxRetryDelay,
		},
		VerifyTLS:  c.Transport.VerifyTLS,
		CACertPath: c.Transport.CACertPath,
		Breaker: transport.BreakerConfig{
			Enabled:   c.Breaker.Enabled,
			Threshold: c.Breaker.Threshold,
			CoolDown:  c.Breaker.CoolDown,
		},
	}
}

// SessionOptions converts the session section.
func (c Config) SessionOptions() []auth.Option {
	return []auth.Option{
		auth.WithValidity(c.Session.Validity),
		auth.WithAutoReauth(c.Session.AutoReauth),
		auth.WithMaxAttempts(c.Session.MaxLoginAttempts),
	}
}

func (c Config) OrderLimits() validate.Limits {
	return validate.Limits{
		MinLumpsumAmount:   decimal.NewFromFloat(c.Limits.MinLumpsumAmount),
		MinSIPAmount:       decimal.NewFromFloat(c.Limits.MinSIPAmount),
		MaxSIPInstallments: c.Limits.MaxSIPInstallments,
	}
}
