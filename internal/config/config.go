// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"` // postgres|memory
}

type DatabaseConfig struct {
	URL         string `yaml:"url" env:"DATABASE_URL"`
	MaxConns    int32  `yaml:"max_conns"`
	ApplySchema bool   `yaml:"apply_schema"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // product cache ttl
}

type CartConfig struct {
	Driver string        `yaml:"driver" env:"CART_DRIVER"` // memory|redis
	TTL    time.Duration `yaml:"ttl"`
}

type StripeConfig struct {
	APIKey  string        `yaml:"api_key" env:"STRIPE_API_KEY"`
	BaseURL string        `yaml:"base_url" env:"STRIPE_BASE_URL"`
	Timeout time.Duration `yaml:"timeout"`
}

type ElavonConfig struct {
	MerchantID  string        `yaml:"merchant_id" env:"ELAVON_MERCHANT_ID"`
	DeclineRate *float64      `yaml:"decline_rate"` // nil = provider default
	Latency     time.Duration `yaml:"latency"`
}

type PaymentConfig struct {
	Provider      string        `yaml:"provider" env:"PAYMENT_PROVIDER"` // stripe|elavon|noop
	Currency      string        `yaml:"currency"`
	ChargeTimeout time.Duration `yaml:"charge_timeout"`
	Stripe        StripeConfig  `yaml:"stripe"`
	Elavon        ElavonConfig  `yaml:"elavon"`
}

type CheckoutConfig struct {
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type CreditsConfig struct {
	ExpiringWindowDays    int           `yaml:"expiring_window_days"`
	ExpirationInterval    time.Duration `yaml:"expiration_interval"`
	PurchaseExpiresInDays int           `yaml:"purchase_expires_in_days"` // 0 = purchased credits never expire
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret" env:"JWT_SECRET"`
	AllowUserHeader bool   `yaml:"allow_user_header" env:"AUTH_ALLOW_USER_HEADER"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Cart       CartConfig       `yaml:"cart"`
	Payment    PaymentConfig    `yaml:"payment"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Credits    CreditsConfig    `yaml:"credits"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (skipped when path is empty),
// applies environment overrides, fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.HTTP.ReadTimeout = orDefault(cfg.HTTP.ReadTimeout, 10*time.Second)
	cfg.HTTP.WriteTimeout = orDefault(cfg.HTTP.WriteTimeout, 60*time.Second)
	cfg.HTTP.RequestTimeout = orDefault(cfg.HTTP.RequestTimeout, 45*time.Second)
	cfg.HTTP.ShutdownTimeout = orDefault(cfg.HTTP.ShutdownTimeout, 15*time.Second)

	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "postgres"
		if cfg.Runtime.Dev && cfg.Database.URL == "" {
			cfg.Storage.Driver = "memory"
		}
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = orDefault(cfg.Redis.TTL, time.Hour)

	cfg.Cart.Driver = strings.ToLower(cfg.Cart.Driver)
	if cfg.Cart.Driver == "" {
		cfg.Cart.Driver = "memory"
	}
	cfg.Cart.TTL = orDefault(cfg.Cart.TTL, 7*24*time.Hour)

	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "elavon"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "usd"
	}
	cfg.Payment.ChargeTimeout = orDefault(cfg.Payment.ChargeTimeout, 30*time.Second)

	cfg.Checkout.LockTTL = orDefault(cfg.Checkout.LockTTL, 2*time.Minute)

	if cfg.Credits.ExpiringWindowDays <= 0 {
		cfg.Credits.ExpiringWindowDays = 30
	}
	if cfg.Credits.PurchaseExpiresInDays < 0 {
		cfg.Credits.PurchaseExpiresInDays = 0
	}
	cfg.Credits.ExpirationInterval = orDefault(cfg.Credits.ExpirationInterval, time.Hour)

	cfg.Reconciler.Interval = orDefault(cfg.Reconciler.Interval, time.Minute)
	cfg.Reconciler.StaleAfter = orDefault(cfg.Reconciler.StaleAfter, 15*time.Minute)

	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 10
	}
	cfg.RateLimit.Window = orDefault(cfg.RateLimit.Window, time.Minute)
}

// Validate is the minimal set of checks that make the service unstartable.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Cart.Driver {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis cart driver")
		}
	default:
		return fmt.Errorf("unknown cart.driver %q", c.Cart.Driver)
	}
	if c.RateLimit.Enabled && c.Redis.URL == "" {
		return errors.New("redis.url is required when rate_limit is enabled")
	}
	if c.Auth.JWTSecret == "" && !c.Auth.AllowUserHeader {
		return errors.New("auth.jwt_secret is required unless auth.allow_user_header is set")
	}
	if c.Payment.ChargeTimeout >= c.Checkout.LockTTL {
		return errors.New("payment.charge_timeout must be shorter than checkout.lock_ttl")
	}
	if r := c.Payment.Elavon.DeclineRate; r != nil && (*r < 0 || *r > 1) {
		return errors.New("payment.elavon.decline_rate must be within [0,1]")
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
