// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"strings"
)

// FeeRateDenominator is the scale of FeeRate: 50 means 5%.
const FeeRateDenominator = 1000

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the command queue in front of the sequencer.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Owner, Oracle and CustodyAccount are ledger identities. Oracle may be
	// empty and registered later by the owner.
	Owner          string `koanf:"owner"`
	Oracle         string `koanf:"oracle"`
	CustodyAccount string `koanf:"custody_account"`

	// Market schedule in blocks.
	MarketDuration   uint64 `koanf:"market_duration"`
	ResolutionWindow uint64 `koanf:"resolution_window"`

	// MinimumBet is the smallest gross stake accepted.
	MinimumBet uint64 `koanf:"minimum_bet"`

	// FeeRate is the fund skim in parts per FeeRateDenominator.
	FeeRate uint64 `koanf:"fee_rate"`

	// BlockIntervalMS is how often the block height advances.
	BlockIntervalMS int `koanf:"block_interval_ms"`

	// LedgerBackend selects where balances live: memory or redis.
	LedgerBackend  string `koanf:"ledger_backend"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// GenesisBalances are credited to accounts at startup.
	GenesisBalances map[string]uint64 `koanf:"genesis_balances"`

	// RateLimitRPS throttles the business API; zero disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		Owner:               "owner",
		CustodyAccount:      "custody",
		MarketDuration:      144,
		ResolutionWindow:    144,
		MinimumBet:          1_000_000,
		FeeRate:             50,
		BlockIntervalMS:     1000,
		LedgerBackend:       LedgerMemory,
		RedisAddr:           "localhost:6379",
		RedisKeyPrefix:      "moodmarket",
		RateLimitRPS:        0,
		RateLimitBurst:      100,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.Owner) == "":
		return fmt.Errorf("%w: owner must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.CustodyAccount) == "":
		return fmt.Errorf("%w: custody_account must not be empty", ErrInvalidConfig)
	case c.CustodyAccount == c.Owner || c.CustodyAccount == c.Oracle:
		return fmt.Errorf("%w: custody_account must be a dedicated account", ErrInvalidConfig)
	case c.MarketDuration == 0 || c.ResolutionWindow == 0:
		return fmt.Errorf("%w: market_duration and resolution_window must be positive", ErrInvalidConfig)
	case c.FeeRate > FeeRateDenominator:
		return fmt.Errorf("%w: fee_rate %d exceeds %d", ErrInvalidConfig, c.FeeRate, FeeRateDenominator)
	case c.BlockIntervalMS < 1:
		return fmt.Errorf("%w: block_interval_ms must be positive", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis ledger", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: ledger_backend %q", ErrInvalidConfig, c.LedgerBackend)
	}
	return nil
}
