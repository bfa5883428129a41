package config_test

import (
	"errors"
	"testing"

	"github.com/okian/moodmarket/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.MarketDuration, convey.ShouldEqual, uint64(144))
			convey.So(cfg.ResolutionWindow, convey.ShouldEqual, uint64(144))
			convey.So(cfg.MinimumBet, convey.ShouldEqual, uint64(1_000_000))
			convey.So(cfg.FeeRate, convey.ShouldEqual, uint64(50))
			convey.So(cfg.LedgerBackend, convey.ShouldEqual, config.LedgerMemory)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"negative dedupe", func(c *config.Config) { c.DedupeSize = -1 }},
			{"zero leaderboard limit", func(c *config.Config) { c.MaxLeaderboardLimit = 0 }},
			{"empty owner", func(c *config.Config) { c.Owner = "" }},
			{"empty custody", func(c *config.Config) { c.CustodyAccount = "" }},
			{"custody shared with owner", func(c *config.Config) { c.CustodyAccount = c.Owner }},
			{"custody shared with oracle", func(c *config.Config) { c.Oracle = c.CustodyAccount }},
			{"zero duration", func(c *config.Config) { c.MarketDuration = 0 }},
			{"zero window", func(c *config.Config) { c.ResolutionWindow = 0 }},
			{"fee above denominator", func(c *config.Config) { c.FeeRate = 1001 }},
			{"zero block interval", func(c *config.Config) { c.BlockIntervalMS = 0 }},
			{"negative rate", func(c *config.Config) { c.RateLimitRPS = -1 }},
			{"unknown log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"unknown ledger", func(c *config.Config) { c.LedgerBackend = "postgres" }},
			{"redis without addr", func(c *config.Config) { c.LedgerBackend = config.LedgerRedis; c.RedisAddr = "" }},
		}

		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is rejected", func() {
				tc.mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then a full fee and the redis ledger are accepted", func() {
			cfg.FeeRate = config.FeeRateDenominator
			cfg.LedgerBackend = config.LedgerRedis
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
