package simulate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/okian/moodmarket/internal/adapters/clock"
	"github.com/okian/moodmarket/internal/adapters/http/api"
	service "github.com/okian/moodmarket/internal/app"
)

// localLeaderboardLimit caps leaderboard queries against a local service.
const localLeaderboardLimit = 1000

// Local is an in-process service on a manual clock, served over HTTP.
type Local struct {
	URL      string
	Settings service.MarketSettings

	clk *clock.Manual
	svc *service.Service
	srv *httptest.Server
}

// StartLocal starts a service that funds each account with balance and
// serves the market API on a loopback listener.
func StartLocal(ctx context.Context, accounts []string, balance uint64) (*Local, error) {
	settings := service.DefaultMarketSettings()
	settings.Oracle = "oracle"

	genesis := make(map[string]uint64, len(accounts))
	for _, a := range accounts {
		genesis[a] = balance
	}
	clk := clock.NewManual(1)
	svc := service.New(
		service.WithClock(clk),
		service.WithMarketSettings(settings),
		service.WithGenesisBalances(genesis),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start local service: %w", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc, localLeaderboardLimit).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	return &Local{
		URL:      srv.URL,
		Settings: settings,
		clk:      clk,
		svc:      svc,
		srv:      srv,
	}, nil
}

// Waiter moves the local clock to the market's close height.
func (l *Local) Waiter() Waiter {
	return func(_ context.Context, _ *Client, m Market) error {
		l.clk.Set(m.ClosesAt)
		return nil
	}
}

// Close stops the listener and the service.
func (l *Local) Close() {
	l.srv.Close()
	l.svc.Stop()
}
