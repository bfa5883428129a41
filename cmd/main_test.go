package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/moodmarket/internal/adapters/http/api"
	"github.com/okian/moodmarket/internal/config"
	"github.com/okian/moodmarket/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestOpenLedger(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then the memory ledger is opened", func() {
			led, closeLedger, err := openLedger(context.Background(), cfg)
			convey.So(err, convey.ShouldBeNil)
			defer closeLedger()
			convey.So(led.Backend(), convey.ShouldEqual, "memory")
		})

		convey.Convey("When redis is unreachable", func() {
			cfg.LedgerBackend = config.LedgerRedis
			cfg.RedisAddr = "127.0.0.1:1"
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			convey.Convey("Then opening fails", func() {
				_, _, err := openLedger(ctx, cfg)
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestApplicationWiring(t *testing.T) {
	convey.Convey("Given a service built from config", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.Oracle = "oracle"
		cfg.GenesisBalances = map[string]uint64{"alice": 5_000_000}

		led, closeLedger, err := openLedger(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer closeLedger()

		svc := newService(cfg, logger.Get(), led)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		handler := newHandler(ctx, cfg, svc)

		convey.Convey("Then docs, health and business routes are served", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/healthz", "/stats", "/markets", "/fund"} {
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then genesis balances are minted", func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/users/alice/balance", http.NoBody))
			var body map[string]any
			convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
			convey.So(body["balance"], convey.ShouldEqual, float64(5_000_000))
		})

		convey.Convey("Then a market can be opened and staked", func() {
			req := httptest.NewRequest("POST", "/markets", strings.NewReader(`{"title":"t","threshold":40}`))
			req.Header.Set(api.CallerHeader, "alice")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

			req = httptest.NewRequest("POST", "/markets/1/bets", strings.NewReader(`{"side":"negative","amount":1000000}`))
			req.Header.Set(api.CallerHeader, "alice")
			w = httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
		})

		convey.Convey("Then the metrics updaters run without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)

			tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			ticks := 0
			every(tctx, 5*time.Millisecond, func() { ticks++ })
			convey.So(ticks, convey.ShouldBeGreaterThan, 0)
		})
	})

	convey.Convey("Given a rate limited config", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 1

		led, closeLedger, _ := openLedger(ctx, cfg)
		defer closeLedger()
		svc := newService(cfg, logger.Get(), led)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		handler := newHandler(ctx, cfg, svc)

		convey.Convey("Then the burst is enforced", func() {
			codes := make([]int, 0, 2)
			for i := 0; i < 2; i++ {
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest("GET", "/fund", http.NoBody))
				codes = append(codes, w.Code)
			}
			convey.So(codes, convey.ShouldResemble, []int{http.StatusOK, http.StatusTooManyRequests})
		})
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	convey.Convey("Given a running application", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, logger.Get()) }()

		convey.Convey("Then cancelling the context shuts it down cleanly", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(10 * time.Second):
				t.Fatal("run did not return")
			}
		})
	})
}
