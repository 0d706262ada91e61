package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported values for STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	DB        DBConfig
	Invite    InviteConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// StoreConfig selects where invite codes are kept.
type StoreConfig struct {
	Driver   string `envconfig:"STORE_DRIVER" default:"postgres"`
	BoltPath string `envconfig:"BOLT_PATH" default:"data/invites.db"`
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host       string `envconfig:"DB_HOST" default:"localhost"`
	Port       int    `envconfig:"DB_PORT" default:"5432"`
	User       string `envconfig:"DB_USER" default:"postgres"`
	Password   string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name       string `envconfig:"DB_NAME" default:"invite_db"`
	SSLMode    string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns   int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns   int32  `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxRetries int    `envconfig:"DB_MAX_RETRIES" default:"5"`
}

// DSN returns the PostgreSQL connection string.
// Pool sizing is applied separately by database.NewPool.
func (c DBConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, sslMode)
}

// InviteConfig holds the defaults applied when issuing invite codes.
type InviteConfig struct {
	CodeLength  int  `envconfig:"INVITE_CODE_LENGTH" default:"8"`
	ExpiryDays  int  `envconfig:"INVITE_EXPIRY_DAYS" default:"30"`
	MaxUses     int  `envconfig:"INVITE_MAX_USES" default:"1"`
	MaxBatch    int  `envconfig:"INVITE_MAX_BATCH" default:"1000"`
	SeedOnStart bool `envconfig:"INVITE_SEED_ON_START" default:"true"`
}

// RateLimitConfig limits validate and redeem calls per client IP.
// A non-positive RPS disables limiting.
type RateLimitConfig struct {
	RPS         float64       `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst       int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
	IdleTimeout time.Duration `envconfig:"RATE_LIMIT_IDLE" default:"3m"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverBolt, DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want postgres, bolt or memory)", c.Store.Driver)
	}
	if c.Invite.CodeLength < 1 || c.Invite.CodeLength > 64 {
		return fmt.Errorf("INVITE_CODE_LENGTH must be between 1 and 64, got %d", c.Invite.CodeLength)
	}
	if c.Invite.ExpiryDays < 0 {
		return fmt.Errorf("INVITE_EXPIRY_DAYS must not be negative, got %d", c.Invite.ExpiryDays)
	}
	if c.Invite.MaxUses < 1 {
		return fmt.Errorf("INVITE_MAX_USES must be at least 1, got %d", c.Invite.MaxUses)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when RATE_LIMIT_RPS is positive, got %d", c.RateLimit.Burst)
	}
	return nil
}
