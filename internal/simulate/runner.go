package simulate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/moodmarket/pkg/logger"
	"github.com/shopspring/decimal"
)

// Waiter blocks until market m has closed.
type Waiter func(ctx context.Context, c *Client, m Market) error

// ErrInvalidConfig is returned for an unusable simulation config.
var ErrInvalidConfig = errors.New("invalid simulation config")

// PollWaiter polls the market until it leaves the open phase.
func PollWaiter(interval time.Duration) Waiter {
	return func(ctx context.Context, c *Client, m Market) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			var cur Market
			if err := c.get(ctx, marketPath(m.ID), &cur); err != nil {
				return err
			}
			if cur.Phase != "open" {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

// Runner executes one simulation.
type Runner struct {
	cfg    *Config
	client *Client
	wait   Waiter

	placed atomic.Int64
	failed atomic.Int64
	staked atomic.Uint64
	fees   atomic.Uint64
	net    atomic.Uint64

	mu      sync.Mutex
	bettors map[string]struct{}
}

// NewRunner creates a runner; wait defaults to polling the market.
func NewRunner(cfg *Config, wait Waiter) (*Runner, error) {
	switch {
	case cfg.BaseURL == "":
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case len(cfg.Accounts) == 0:
		return nil, fmt.Errorf("%w: no accounts", ErrInvalidConfig)
	case cfg.Workers <= 0:
		return nil, fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case cfg.MinimumBet == 0:
		return nil, fmt.Errorf("%w: minimum bet must be positive", ErrInvalidConfig)
	}
	if wait == nil {
		interval := cfg.PollInterval
		if interval <= 0 {
			interval = defaultPollInterval
		}
		wait = PollWaiter(interval)
	}
	return &Runner{
		cfg:     cfg,
		client:  newClient(cfg.BaseURL, cfg.Timeout),
		wait:    wait,
		bettors: make(map[string]struct{}),
	}, nil
}

// Run drives a market from creation to settlement and verifies the
// accounting at each step.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartTime: time.Now()}
	logger.Get().Info(ctx, "starting market simulation",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("accounts", len(r.cfg.Accounts)),
		logger.Int("bets", r.cfg.Bets),
		logger.Int("workers", r.cfg.Workers),
		logger.Bool("settle", r.cfg.Settle))

	if err := r.checkHealth(ctx); err != nil {
		return nil, err
	}
	before, err := r.fund(ctx)
	if err != nil {
		return nil, err
	}

	m, err := r.createMarket(ctx)
	if err != nil {
		return nil, err
	}
	report.MarketID = m.ID
	log.Printf("Created market %d (closes at %d, threshold %d)", m.ID, m.ClosesAt, m.Threshold)

	r.placeBets(ctx, m.ID, generateBets(r.cfg, r.cfg.Bets))
	report.BetsPlaced = int(r.placed.Load())
	report.BetsFailed = int(r.failed.Load())
	report.Staked = r.staked.Load()
	report.Fees = r.fees.Load()

	if err := r.client.get(ctx, marketPath(m.ID), &m); err != nil {
		return nil, err
	}
	report.TotalPool = m.TotalPool
	after, err := r.fund(ctx)
	if err != nil {
		return nil, err
	}
	if err := verifyPools(m, r.net.Load(), report.Fees, after.Balance-before.Balance); err != nil {
		return report, err
	}

	if r.cfg.Settle {
		if err := r.settle(ctx, &m, report); err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(report.StartTime)
	return report, nil
}

func (r *Runner) checkHealth(ctx context.Context) error {
	log.Println("Checking service health...")
	if err := r.client.get(ctx, "/healthz", nil); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	log.Println("Service is healthy")
	return nil
}

func (r *Runner) fund(ctx context.Context) (fund, error) {
	var f fund
	if err := r.client.get(ctx, "/fund", &f); err != nil {
		return fund{}, err
	}
	return f, nil
}

func (r *Runner) createMarket(ctx context.Context) (Market, error) {
	body := map[string]any{
		"title":             "Simulated mood market",
		"description":       "Generated by the market simulator",
		"threshold":         r.cfg.Threshold,
		"resolution_source": "simulator",
	}
	var m Market
	if err := r.client.post(ctx, "/markets", r.cfg.Owner, body, &m); err != nil {
		return Market{}, fmt.Errorf("create market: %w", err)
	}
	return m, nil
}

// placeBets fans bets out to a fixed pool of workers.
func (r *Runner) placeBets(ctx context.Context, id uint64, bets []Bet) {
	log.Printf("Placing %d bets using %d workers...", len(bets), r.cfg.Workers)

	ch := make(chan Bet, r.cfg.Workers)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range ch {
				r.placeBet(ctx, id, b)
			}
		}()
	}

feed:
	for _, b := range bets {
		select {
		case <-ctx.Done():
			break feed
		case ch <- b:
		}
	}
	close(ch)
	wg.Wait()
	log.Printf("Bets done: %d placed, %d failed", r.placed.Load(), r.failed.Load())
}

func (r *Runner) placeBet(ctx context.Context, id uint64, b Bet) {
	var rc receipt
	if err := r.client.do(ctx, http.MethodPost, marketPath(id)+"/bets", b.User, b.Key, b, &rc); err != nil {
		r.failed.Add(1)
		if r.cfg.Verbose {
			log.Printf("Bet by %s failed: %v", b.User, err)
		}
		return
	}
	r.placed.Add(1)
	r.staked.Add(b.Amount)
	r.fees.Add(rc.Fee)
	r.net.Add(rc.Net)

	r.mu.Lock()
	r.bettors[b.User] = struct{}{}
	r.mu.Unlock()
}

// settle closes, resolves and claims the market, then checks conservation.
func (r *Runner) settle(ctx context.Context, m *Market, report *Report) error {
	log.Printf("Waiting for market %d to close...", m.ID)
	if err := r.wait(ctx, r.client, *m); err != nil {
		return fmt.Errorf("wait for close: %w", err)
	}

	bio, sent, weather, event := sampleFor(r.cfg)
	sample := map[string]any{
		"timestamp":       m.ClosesAt,
		"biometric_score": bio,
		"sentiment_score": sent,
		"weather_impact":  weather,
		"event_impact":    event,
	}
	if err := r.client.post(ctx, "/samples", r.cfg.Oracle, sample, nil); err != nil {
		return fmt.Errorf("submit sample: %w", err)
	}
	if err := r.client.post(ctx, marketPath(m.ID)+"/resolve", r.cfg.Owner, nil, m); err != nil {
		return fmt.Errorf("resolve market: %w", err)
	}
	if m.ActualScore != nil {
		report.Score = *m.ActualScore
	}
	report.Winner = winner(*m)
	report.WinningPool = m.NegativePool
	if report.Winner == "positive" {
		report.WinningPool = m.PositivePool
	}
	log.Printf("Resolved market %d: score %d, %s wins", m.ID, report.Score, report.Winner)

	for _, user := range r.sortedBettors() {
		var q quote
		if err := r.client.get(ctx, marketPath(m.ID)+"/quote/"+user, &q); err != nil {
			return fmt.Errorf("quote %s: %w", user, err)
		}
		if q.Payout == 0 {
			continue
		}
		var paid quote
		if err := r.client.post(ctx, marketPath(m.ID)+"/claim", user, nil, &paid); err != nil {
			return fmt.Errorf("claim %s: %w", user, err)
		}
		report.Claims++
		report.Payouts += paid.Payout
	}

	dust, err := verifyConservation(*m, report.Payouts, report.Claims)
	if err != nil {
		return err
	}
	report.Dust = dust

	limit := max(1, min(report.Claims, maxLeaderboardRows))
	if err := r.client.get(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &report.Leaderboard); err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	return verifyLeaderboard(report.Leaderboard)
}

const defaultPollInterval = 5 * time.Second

// maxLeaderboardRows bounds the leaderboard read after settlement.
const maxLeaderboardRows = 100

func marketPath(id uint64) string {
	return "/markets/" + strconv.FormatUint(id, 10)
}

func winner(m Market) string {
	if m.ActualScore != nil && *m.ActualScore >= m.Threshold {
		return "positive"
	}
	return "negative"
}

func (r *Runner) sortedBettors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.bettors))
	for u := range r.bettors {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// LogReport prints a run summary.
func LogReport(report *Report) {
	logger.Get().Info(context.Background(), "Simulation completed",
		logger.Uint64("marketID", report.MarketID),
		logger.Int("betsPlaced", report.BetsPlaced),
		logger.Int("betsFailed", report.BetsFailed),
		logger.Uint64("staked", report.Staked),
		logger.Uint64("fees", report.Fees),
		logger.Uint64("totalPool", report.TotalPool),
		logger.Uint64("score", report.Score),
		logger.String("winner", report.Winner),
		logger.Int("claims", report.Claims),
		logger.Uint64("payouts", report.Payouts),
		logger.Uint64("dust", report.Dust),
		logger.String("multiplier", ratio(report.Payouts, report.WinningPool, 1)),
		logger.String("feeSharePct", ratio(report.Fees, report.Staked, 100)),
		logger.Duration("duration", report.Duration),
	)
}

// ratio renders num/den*scale to four places, or zero for an empty den.
func ratio(num, den uint64, scale int64) string {
	if den == 0 {
		return decimal.Zero.StringFixed(4)
	}
	n := decimal.NewFromBigInt(new(big.Int).SetUint64(num), 0).Mul(decimal.NewFromInt(scale))
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(den), 0)
	return n.DivRound(d, 4).StringFixed(4)
}
