package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/moodmarket/internal/adapters/http/api"
	"github.com/okian/moodmarket/internal/adapters/http/swagger"
	"github.com/okian/moodmarket/internal/adapters/ledger"
	app "github.com/okian/moodmarket/internal/app"
	"github.com/okian/moodmarket/internal/config"
	"github.com/okian/moodmarket/pkg/logger"
	"github.com/okian/moodmarket/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "moodmarket exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	led, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	svc := newService(cfg, log, led)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go every(ctx, systemMetricsInterval, updateSystemMetrics)
	go every(ctx, serviceMetricsInterval, func() { updateServiceMetrics(svc) })

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openLedger connects the configured balance backend.
func openLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, func(), error) {
	if cfg.LedgerBackend != config.LedgerRedis {
		return ledger.NewMemoryLedger(), func() {}, nil
	}
	rdb, err := ledger.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	led, err := ledger.NewRedisLedger(rdb, ledger.WithKeyPrefix(cfg.RedisKeyPrefix))
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return led, func() { _ = rdb.Close() }, nil
}

func newService(cfg *config.Config, log logger.Logger, led ledger.Ledger) *app.Service {
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithLedger(led),
		app.WithGenesisBalances(cfg.GenesisBalances),
		app.WithBlockInterval(time.Duration(cfg.BlockIntervalMS)*time.Millisecond),
		app.WithMarketSettings(app.MarketSettings{
			Owner:            cfg.Owner,
			Oracle:           cfg.Oracle,
			Custody:          cfg.CustodyAccount,
			MarketDuration:   cfg.MarketDuration,
			ResolutionWindow: cfg.ResolutionWindow,
			MinimumBet:       cfg.MinimumBet,
			FeeRate:          cfg.FeeRate,
		}),
	)
}

func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	var opts []api.ServerOption
	if limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst); limiter != nil {
		opts = append(opts, api.WithRateLimiter(limiter))
	}
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit, opts...).Register(ctx, mux)
	return mux
}

// every calls fn on each tick of interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges derived from the service snapshot.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if markets, ok := stats["markets"].(int); ok {
		metrics.UpdateMarketsTotal(markets)
	}
	if balance, ok := stats["fundBalance"].(uint64); ok {
		metrics.UpdateFundBalance(balance)
	}
}
