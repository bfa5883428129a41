package service

import (
	"time"

	"github.com/okian/moodmarket/internal/adapters/clock"
	"github.com/okian/moodmarket/internal/adapters/ledger"
	"github.com/okian/moodmarket/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// MarketSettings are the deploy-time market constants.
type MarketSettings struct {
	Owner            string
	Oracle           string
	Custody          string
	MarketDuration   uint64
	ResolutionWindow uint64
	MinimumBet       uint64
	// FeeRate is in parts per thousand.
	FeeRate uint64
}

// DefaultMarketSettings mirrors the configuration defaults.
func DefaultMarketSettings() MarketSettings {
	return MarketSettings{
		Owner:            "owner",
		Custody:          "custody",
		MarketDuration:   144,
		ResolutionWindow: 144,
		MinimumBet:       1_000_000,
		FeeRate:          50,
	}
}

// WithMarketSettings replaces the market constants.
func WithMarketSettings(m MarketSettings) Option {
	return func(s *Service) { s.settings = m }
}

// WithQueueSize sets the maximum number of pending commands.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock supplies the height source. Without it the service runs its own
// block clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBlockInterval sets the tick of the internal block clock.
func WithBlockInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.blockInterval = d
		}
	}
}

// WithLedger supplies the value-transfer backend. Defaults to an in-memory
// ledger.
func WithLedger(l ledger.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithGenesisBalances mints opening balances when the service starts.
func WithGenesisBalances(balances map[string]uint64) Option {
	return func(s *Service) { s.genesis = balances }
}
