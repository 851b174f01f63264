package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
	_ "time/tzdata" // ORDER_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	EmailLog      = "log"
	EmailPostmark = "postmark"
	EmailSendgrid = "sendgrid"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	AdminEmail        string        `mapstructure:"ADMIN_EMAIL"`
	AdminPassword     string        `mapstructure:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`
	SessionSecret     string        `mapstructure:"SESSION_SECRET"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure      bool          `mapstructure:"COOKIE_SECURE"`
	LoginRatePerMin   int           `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	TrustedProxies    []string      `mapstructure:"TRUSTED_PROXIES"`

	OrderNumberPrefix       string `mapstructure:"ORDER_NUMBER_PREFIX"`
	OrderTimezone           string `mapstructure:"ORDER_TIMEZONE"`
	OrderAllocationAttempts int    `mapstructure:"ORDER_ALLOCATION_ATTEMPTS"`
	Currency                string `mapstructure:"CURRENCY"`

	EmailProvider    string `mapstructure:"EMAIL_PROVIDER"`
	PostmarkToken    string `mapstructure:"POSTMARK_API_TOKEN"`
	SendgridAPIKey   string `mapstructure:"SENDGRID_API_KEY"`
	EmailSender      string `mapstructure:"EMAIL_SENDER"`
	AdminNotifyEmail string `mapstructure:"ADMIN_NOTIFY_EMAIL"`

	KafkaBrokers    []string `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic string   `mapstructure:"KAFKA_ORDER_TOPIC"`

	AdminStaticDir string        `mapstructure:"ADMIN_STATIC_DIR"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	CartTTL        time.Duration `mapstructure:"CART_TTL"`
}

var defaults = map[string]any{
	"PORT":                      "8000",
	"STORAGE_DRIVER":            StorageMongo,
	"MONGO_URI":                 "mongodb://localhost:27017",
	"MONGO_DATABASE":            "giftshop",
	"ADMIN_EMAIL":               "",
	"ADMIN_PASSWORD":            "",
	"ADMIN_PASSWORD_HASH":       "",
	"SESSION_SECRET":            "",
	"SESSION_TTL":               "8h",
	"COOKIE_SECURE":             false,
	"LOGIN_RATE_PER_MINUTE":     10,
	"TRUSTED_PROXIES":           "",
	"ORDER_NUMBER_PREFIX":       "DD",
	"ORDER_TIMEZONE":            "UTC",
	"ORDER_ALLOCATION_ATTEMPTS": 5,
	"CURRENCY":                  "MXN",
	"EMAIL_PROVIDER":            EmailLog,
	"POSTMARK_API_TOKEN":        "",
	"SENDGRID_API_KEY":          "",
	"EMAIL_SENDER":              "pedidos@giftshop.local",
	"ADMIN_NOTIFY_EMAIL":        "",
	"KAFKA_BROKERS":             "",
	"KAFKA_ORDER_TOPIC":         "giftshop.orders",
	"ADMIN_STATIC_DIR":          "",
	"LOG_LEVEL":                 "info",
	"CART_TTL":                  "72h",
}

// Load reads .env (when present) and the process environment. Environment
// variables win over .env values.
func Load() (*Config, error) {
	// a missing .env is fine, the environment alone may be enough
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal: %w", err)
	}

	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	cfg.TrustedProxies = splitList(cfg.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late. Missing admin
// credentials are allowed: login then answers 500.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo storage driver"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of %s, %s", c.StorageDriver, StorageMongo, StorageMemory))
	}

	if _, err := time.LoadLocation(c.OrderTimezone); err != nil {
		errs = append(errs, fmt.Errorf("ORDER_TIMEZONE: %w", err))
	}
	if _, err := currency.ParseISO(c.Currency); err != nil {
		errs = append(errs, fmt.Errorf("CURRENCY: %w", err))
	}
	if c.OrderAllocationAttempts < 1 {
		errs = append(errs, errors.New("ORDER_ALLOCATION_ATTEMPTS must be at least 1"))
	}
	if c.OrderNumberPrefix == "" {
		errs = append(errs, errors.New("ORDER_NUMBER_PREFIX is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.LoginRatePerMin < 1 {
		errs = append(errs, errors.New("LOGIN_RATE_PER_MINUTE must be at least 1"))
	}
	for _, proxy := range c.TrustedProxies {
		if _, err := parsePrefix(proxy); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
		}
	}

	switch c.EmailProvider {
	case EmailLog:
	case EmailPostmark:
		if c.PostmarkToken == "" {
			errs = append(errs, errors.New("POSTMARK_API_TOKEN is required for the postmark provider"))
		}
	case EmailSendgrid:
		if c.SendgridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required for the sendgrid provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMAIL_PROVIDER %q is not one of %s, %s, %s", c.EmailProvider, EmailLog, EmailPostmark, EmailSendgrid))
	}

	return errors.Join(errs...)
}

// Location returns the time zone order numbers and date filters use.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.OrderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) CurrencyUnit() currency.Unit {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return currency.MXN
	}
	return unit
}

// AdminConfigured reports whether admin login can succeed at all.
func (c *Config) AdminConfigured() bool {
	return c.AdminEmail != "" && (c.AdminPassword != "" || c.AdminPasswordHash != "") && c.SessionSecret != ""
}

// TrustedProxyPrefixes returns the networks whose X-Forwarded-For headers
// are believed. Entries may be single addresses or CIDR ranges.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	var prefixes []netip.Prefix
	for _, proxy := range c.TrustedProxies {
		if prefix, err := parsePrefix(proxy); err == nil {
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func splitList(values []string) []string {
	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}
