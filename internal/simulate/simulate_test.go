package simulate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/moodmarket/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRunner_Local(t *testing.T) {
	Convey("Given an in-process service with funded accounts", t, func() {
		ctx := context.Background()
		accounts := NewAccounts(8)
		local, err := StartLocal(ctx, accounts, 1_000_000_000)
		So(err, ShouldBeNil)
		defer local.Close()

		cfg := &Config{
			BaseURL:    local.URL,
			Owner:      local.Settings.Owner,
			Oracle:     local.Settings.Oracle,
			Accounts:   accounts,
			Bets:       60,
			Workers:    4,
			MinimumBet: local.Settings.MinimumBet,
			Threshold:  50,
			Settle:     true,
			Timeout:    5 * time.Second,
			Seed:       7,
		}
		runner, err := NewRunner(cfg, local.Waiter())
		So(err, ShouldBeNil)

		Convey("When the simulation runs to settlement", func() {
			report, err := runner.Run(ctx)

			Convey("Then every bet is accepted and the books balance", func() {
				So(err, ShouldBeNil)
				So(report.BetsPlaced, ShouldEqual, 60)
				So(report.BetsFailed, ShouldEqual, 0)
				So(report.TotalPool, ShouldEqual, report.Staked-report.Fees)
				So(report.Payouts+report.Dust, ShouldEqual, report.TotalPool)
				So(len(report.Leaderboard), ShouldBeLessThanOrEqualTo, report.Claims)
			})
		})
	})
}

func TestNewRunner_Validation(t *testing.T) {
	Convey("Given incomplete configs", t, func() {
		base := Config{BaseURL: "http://localhost", Accounts: []string{"a"}, Workers: 1, MinimumBet: 1}

		Convey("Then each missing field is rejected", func() {
			for _, mutate := range []func(*Config){
				func(c *Config) { c.BaseURL = "" },
				func(c *Config) { c.Accounts = nil },
				func(c *Config) { c.Workers = 0 },
				func(c *Config) { c.MinimumBet = 0 },
			} {
				cfg := base
				mutate(&cfg)
				_, err := NewRunner(&cfg, nil)
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			}
		})

		Convey("Then a complete config builds a polling runner", func() {
			cfg := base
			r, err := NewRunner(&cfg, nil)
			So(err, ShouldBeNil)
			So(r.wait, ShouldNotBeNil)
		})
	})
}

func TestGenerateBets(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := &Config{Accounts: []string{"a", "b", "c"}, MinimumBet: 10, Seed: 42}

		Convey("Then stakes are whole multiples of the minimum within bounds", func() {
			bets := generateBets(cfg, 200)
			So(bets, ShouldHaveLength, 200)
			for _, b := range bets {
				So(b.Amount%10, ShouldEqual, uint64(0))
				So(b.Amount, ShouldBeBetweenOrEqual, uint64(10), uint64(10*maxStakeMultiple))
				So(b.Side, ShouldBeIn, "positive", "negative")
				So(b.User, ShouldBeIn, "a", "b", "c")
				So(b.Key, ShouldNotBeEmpty)
			}
		})

		Convey("Then the same seed yields the same bets", func() {
			a, b := generateBets(cfg, 20), generateBets(cfg, 20)
			for i := range a {
				So(a[i].Amount, ShouldEqual, b[i].Amount)
				So(a[i].Side, ShouldEqual, b[i].Side)
			}
		})
	})
}

func TestVerification(t *testing.T) {
	score := func(v uint64) *uint64 { return &v }

	Convey("Given pool checks", t, func() {
		m := Market{TotalPool: 190, PositivePool: 90, NegativePool: 100}

		Convey("Then matching books pass", func() {
			So(verifyPools(m, 190, 10, 10), ShouldBeNil)
		})
		Convey("Then a pool mismatch fails", func() {
			So(errors.Is(verifyPools(m, 180, 10, 10), ErrInvariant), ShouldBeTrue)
		})
		Convey("Then a fund mismatch fails", func() {
			So(errors.Is(verifyPools(m, 190, 10, 9), ErrInvariant), ShouldBeTrue)
		})
		Convey("Then split pools must add up", func() {
			m.PositivePool = 1
			So(errors.Is(verifyPools(m, 190, 10, 10), ErrInvariant), ShouldBeTrue)
		})
	})

	Convey("Given conservation checks", t, func() {
		m := Market{TotalPool: 100, PositivePool: 30, NegativePool: 70, Threshold: 50, ActualScore: score(60)}

		Convey("Then rounding dust below the claim count passes", func() {
			dust, err := verifyConservation(m, 98, 3)
			So(err, ShouldBeNil)
			So(dust, ShouldEqual, uint64(2))
		})
		Convey("Then overpaying fails", func() {
			_, err := verifyConservation(m, 101, 3)
			So(errors.Is(err, ErrInvariant), ShouldBeTrue)
		})
		Convey("Then leaving too much behind fails", func() {
			_, err := verifyConservation(m, 90, 3)
			So(errors.Is(err, ErrInvariant), ShouldBeTrue)
		})
		Convey("Then an empty winning side pays nothing", func() {
			m.PositivePool, m.NegativePool = 0, 100
			dust, err := verifyConservation(m, 0, 0)
			So(err, ShouldBeNil)
			So(dust, ShouldEqual, uint64(100))
			_, err = verifyConservation(m, 1, 1)
			So(errors.Is(err, ErrInvariant), ShouldBeTrue)
		})
	})

	Convey("Given leaderboards", t, func() {
		Convey("Then descending winnings pass", func() {
			So(verifyLeaderboard([]Entry{{1, "a", 9}, {2, "b", 5}, {2, "c", 5}}), ShouldBeNil)
		})
		Convey("Then an inversion fails", func() {
			So(errors.Is(verifyLeaderboard([]Entry{{1, "a", 5}, {2, "b", 9}}), ErrInvariant), ShouldBeTrue)
		})
	})
}

func TestRatio(t *testing.T) {
	Convey("Given report ratios", t, func() {
		So(ratio(150, 100, 1), ShouldEqual, "1.5000")
		So(ratio(1, 3, 100), ShouldEqual, "33.3333")
		So(ratio(5, 0, 1), ShouldEqual, "0.0000")
	})
}
