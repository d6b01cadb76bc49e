package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrateOnStart applies embedded migrations when DATABASE_URL is set.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"fundraiser"`

	HTTPReadTimeoutSeconds  int      `env:"HTTP_READ_TIMEOUT_SECONDS" envDefault:"15"`
	HTTPWriteTimeoutSeconds int      `env:"HTTP_WRITE_TIMEOUT_SECONDS" envDefault:"30"`
	HTTPIdleTimeoutSeconds  int      `env:"HTTP_IDLE_TIMEOUT_SECONDS" envDefault:"60"`
	RateLimitPerMin         int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	CORSAllowedOrigins      []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	RejectNonPositiveDonations bool `env:"DONATION_REJECT_NON_POSITIVE" envDefault:"true"`
	AmountDecimals             int  `env:"AMOUNT_DECIMALS" envDefault:"18"`

	PayoutWebhookURL     string `env:"PAYOUT_WEBHOOK_URL"`
	PayoutWebhookSecret  string `env:"PAYOUT_WEBHOOK_SECRET"`
	PayoutTimeoutSeconds int    `env:"PAYOUT_TIMEOUT_SECONDS" envDefault:"10"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"fundraiser.events"`

	// Derived from the *_SECONDS values.
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	PayoutTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.PayoutWebhookURL = strings.TrimSpace(cfg.PayoutWebhookURL)
	cfg.CORSAllowedOrigins = cleanList(cfg.CORSAllowedOrigins)
	cfg.KafkaBrokers = cleanList(cfg.KafkaBrokers)
	cfg.HTTPReadTimeout = time.Second * time.Duration(cfg.HTTPReadTimeoutSeconds)
	cfg.HTTPWriteTimeout = time.Second * time.Duration(cfg.HTTPWriteTimeoutSeconds)
	cfg.HTTPIdleTimeout = time.Second * time.Duration(cfg.HTTPIdleTimeoutSeconds)
	cfg.PayoutTimeout = time.Second * time.Duration(cfg.PayoutTimeoutSeconds)

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AmountDecimals < 0 || cfg.AmountDecimals > 38 {
		return nil, fmt.Errorf("AMOUNT_DECIMALS must be between 0 and 38, got %d", cfg.AmountDecimals)
	}
	if cfg.RateLimitPerMin <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", cfg.RateLimitPerMin)
	}
	// The in-memory store holds one global lock for the whole withdrawal,
	// remote payout call included.
	if cfg.PayoutWebhookURL != "" && !cfg.UsePostgres() {
		return nil, fmt.Errorf("PAYOUT_WEBHOOK_URL requires DATABASE_URL")
	}

	return cfg, nil
}

// UsePostgres reports whether a database is configured.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
