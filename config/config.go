package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Paymob    PaymobConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig backs the checkout ledger. An empty DSN disables it.
type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type PaymobConfig struct {
	BaseURL       string
	APIKey        string
	IntegrationID int64
	Currency      string
	Country       string
	// PaymentKeyExpiration is the lifetime of issued payment keys, in seconds.
	PaymentKeyExpiration int
	// TokenTTL is assumed for session tokens whose expiry cannot be read.
	TokenTTL          time.Duration
	HTTPTimeout       time.Duration
	LockOrderWhenPaid bool
}

// CORSConfig lists allowed origins; "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "40s")

	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("PAYMOB_BASE_URL", "https://accept.paymob.com")
	v.SetDefault("PAYMOB_CURRENCY", "EGP")
	v.SetDefault("PAYMOB_COUNTRY", "EG")
	v.SetDefault("PAYMOB_PAYMENT_KEY_EXPIRATION", 3600)
	v.SetDefault("PAYMOB_TOKEN_TTL", "50m")
	v.SetDefault("PAYMOB_HTTP_TIMEOUT", "30s")
	v.SetDefault("PAYMOB_LOCK_ORDER_WHEN_PAID", false)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
}

// Load reads configuration from the environment and an optional .env file.
// Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigName(".env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			Env:          v.GetString("ENVIRONMENT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			DSN:             strings.TrimSpace(v.GetString("DB_DSN")),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Paymob: PaymobConfig{
			BaseURL:              strings.TrimSpace(v.GetString("PAYMOB_BASE_URL")),
			APIKey:               strings.TrimSpace(v.GetString("PAYMOB_API_KEY")),
			IntegrationID:        v.GetInt64("PAYMOB_INTEGRATION_ID"),
			Currency:             strings.ToUpper(strings.TrimSpace(v.GetString("PAYMOB_CURRENCY"))),
			Country:              strings.ToUpper(strings.TrimSpace(v.GetString("PAYMOB_COUNTRY"))),
			PaymentKeyExpiration: v.GetInt("PAYMOB_PAYMENT_KEY_EXPIRATION"),
			TokenTTL:             v.GetDuration("PAYMOB_TOKEN_TTL"),
			HTTPTimeout:          v.GetDuration("PAYMOB_HTTP_TIMEOUT"),
			LockOrderWhenPaid:    v.GetBool("PAYMOB_LOCK_ORDER_WHEN_PAID"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the secrets the relay cannot run without.
func (c *Config) Validate() error {
	if c.Paymob.APIKey == "" {
		return fmt.Errorf("PAYMOB_API_KEY is required")
	}
	if c.Paymob.IntegrationID <= 0 {
		return fmt.Errorf("PAYMOB_INTEGRATION_ID is required")
	}
	if c.Paymob.Currency == "" {
		return fmt.Errorf("PAYMOB_CURRENCY must not be empty")
	}
	if c.Paymob.PaymentKeyExpiration <= 0 {
		return fmt.Errorf("PAYMOB_PAYMENT_KEY_EXPIRATION must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
