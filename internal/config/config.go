package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"inigma/internal/ratelimit"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQL    = "sql"
)

// Config holds all application configuration. Values come from the
// environment (optionally via a .env file); unset variables keep the
// defaults from DefaultConfig.
type Config struct {
	// Server settings
	Port              string        `env:"PORT"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"`

	// Store settings
	Store       string `env:"STORE"` // memory, redis or sql
	RedisURL    string `env:"REDIS_URL"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	// Lifecycle settings
	RequireViewerUID bool          `env:"REQUIRE_VIEWER_UID"`
	RetentionDays    int           `env:"RETENTION_DAYS"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL"`

	// Rate limit settings: requests per window, per client and operation.
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW"`
	CreatePerWindow  int           `env:"RATE_LIMIT_CREATE"`
	ViewPerWindow    int           `env:"RATE_LIMIT_VIEW"`
	ClaimPerWindow   int           `env:"RATE_LIMIT_CLAIM"`
	RenamePerWindow  int           `env:"RATE_LIMIT_RENAME"`
	DeletePerWindow  int           `env:"RATE_LIMIT_DELETE"`
	ListPerWindow    int           `env:"RATE_LIMIT_LIST"`
	DefaultPerWindow int           `env:"RATE_LIMIT_DEFAULT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:              "8080",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   5 * time.Second,

		Store:    StoreMemory,
		RedisURL: "redis://localhost:6379/0",

		RequireViewerUID: false,
		RetentionDays:    50,
		SweepInterval:    time.Hour,

		RateLimitWindow:  time.Minute,
		CreatePerWindow:  10,
		ViewPerWindow:    100,
		ClaimPerWindow:   20,
		RenamePerWindow:  30,
		DeletePerWindow:  20,
		ListPerWindow:    50,
		DefaultPerWindow: 200,
	}
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis, StoreSQL:
	default:
		return fmt.Errorf("STORE must be one of %s, %s, %s", StoreMemory, StoreRedis, StoreSQL)
	}
	if c.Store == StoreRedis && c.RedisURL == "" {
		return errors.New("REDIS_URL is required when STORE=redis")
	}
	if c.Store == StoreSQL && c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required when STORE=sql")
	}
	if c.RetentionDays < 1 {
		return errors.New("RETENTION_DAYS must be a positive number of days")
	}
	if c.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be a positive duration")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be a positive duration")
	}
	for name, limit := range map[string]int{
		"RATE_LIMIT_CREATE":  c.CreatePerWindow,
		"RATE_LIMIT_VIEW":    c.ViewPerWindow,
		"RATE_LIMIT_CLAIM":   c.ClaimPerWindow,
		"RATE_LIMIT_RENAME":  c.RenamePerWindow,
		"RATE_LIMIT_DELETE":  c.DeletePerWindow,
		"RATE_LIMIT_LIST":    c.ListPerWindow,
		"RATE_LIMIT_DEFAULT": c.DefaultPerWindow,
	} {
		if limit < 1 {
			return fmt.Errorf("%s must be a positive integer", name)
		}
	}
	return nil
}

// Rules maps each gated operation to its window budget.
func (c Config) Rules() map[string]ratelimit.Rule {
	return map[string]ratelimit.Rule{
		ratelimit.OpCreate:  {Limit: c.CreatePerWindow, Window: c.RateLimitWindow},
		ratelimit.OpView:    {Limit: c.ViewPerWindow, Window: c.RateLimitWindow},
		ratelimit.OpClaim:   {Limit: c.ClaimPerWindow, Window: c.RateLimitWindow},
		ratelimit.OpRename:  {Limit: c.RenamePerWindow, Window: c.RateLimitWindow},
		ratelimit.OpDelete:  {Limit: c.DeletePerWindow, Window: c.RateLimitWindow},
		ratelimit.OpList:    {Limit: c.ListPerWindow, Window: c.RateLimitWindow},
		ratelimit.OpPending: {Limit: c.ListPerWindow, Window: c.RateLimitWindow},
	}
}

// FallbackRule is the budget for anything without an explicit rule.
func (c Config) FallbackRule() ratelimit.Rule {
	return ratelimit.Rule{Limit: c.DefaultPerWindow, Window: c.RateLimitWindow}
}

// ListenAddr returns the address string for the HTTP server.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}
