// Package service wires the market components behind a single sequencer and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/moodmarket/internal/adapters/clock"
	"github.com/okian/moodmarket/internal/adapters/ledger"
	"github.com/okian/moodmarket/internal/adapters/mq/queue"
	"github.com/okian/moodmarket/internal/adapters/mq/worker"
	"github.com/okian/moodmarket/internal/adapters/repository"
	"github.com/okian/moodmarket/internal/domain/access"
	"github.com/okian/moodmarket/internal/domain/betting"
	"github.com/okian/moodmarket/internal/domain/dedupe"
	"github.com/okian/moodmarket/internal/domain/fund"
	"github.com/okian/moodmarket/internal/domain/market"
	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/internal/domain/mood"
	"github.com/okian/moodmarket/internal/domain/payout"
	"github.com/okian/moodmarket/internal/domain/resolution"
	"github.com/okian/moodmarket/pkg/logger"
	"github.com/okian/moodmarket/pkg/metrics"
)

const drainTimeout = 5 * time.Second

// Service owns the market state. Every operation, reads included, runs as a
// command on the sequencer so it observes and leaves a consistent state.
type Service struct {
	mu sync.RWMutex

	// Core components
	roles      *access.Roles
	aggregator *mood.Aggregator
	markets    *market.Registry
	bets       *betting.Ledger
	resolver   *resolution.Engine
	payouts    *payout.Calculator
	fund       *fund.Tracker
	standings  *repository.Standings
	deduper    dedupe.Deduper
	commands   *queue.InMemoryQueue
	sequencer  *worker.Sequencer

	// Collaborators
	clock      clock.Clock
	blockClock *clock.BlockClock
	ledger     ledger.Ledger

	// Configuration
	settings      MarketSettings
	queueSize     int
	dedupeSize    int
	blockInterval time.Duration
	genesis       map[string]uint64

	// State
	started bool
	stopped bool

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		settings:      DefaultMarketSettings(),
		queueSize:     10000,
		dedupeSize:    50000,
		blockInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the sequencer. A stopped service
// cannot be started again and returns ErrStopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting mood market service...")

	if err := s.build(ctx); err != nil {
		return err
	}

	if s.clock == nil {
		s.blockClock = clock.NewBlockClock(s.blockInterval)
		s.blockClock.Start(ctx)
		s.clock = s.blockClock
	}
	s.commands = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.sequencer = worker.NewSequencer(s.commands, s.clock, worker.WithLogger(s.logger.Named("sequencer")))
	go s.sequencer.Run(ctx)

	s.started = true
	metrics.UpdatePaused(false)
	metrics.UpdateFundBalance(0)
	s.logger.Info(ctx, "mood market service started",
		logger.String("ledger", s.ledger.Backend()),
		logger.Uint64("height", s.clock.Now()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Uint64("marketDuration", s.settings.MarketDuration),
		logger.Uint64("resolutionWindow", s.settings.ResolutionWindow),
		logger.Uint64("minimumBet", s.settings.MinimumBet),
		logger.Uint64("feeRate", s.settings.FeeRate),
	)
	return nil
}

func (s *Service) build(ctx context.Context) error {
	cfg := s.settings
	custody := model.Identity(cfg.Custody)

	if s.ledger == nil {
		s.ledger = ledger.NewMemoryLedger()
	}
	accounts := make([]string, 0, len(s.genesis))
	for account := range s.genesis {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	// Genesis only funds empty accounts so a persistent ledger is not
	// minted again on restart.
	for _, account := range accounts {
		id := model.Identity(account)
		have, err := s.ledger.Balance(ctx, id)
		if err != nil {
			return fmt.Errorf("read genesis account %s: %w", account, err)
		}
		if have > 0 {
			continue
		}
		if err := s.ledger.Credit(ctx, id, s.genesis[account]); err != nil {
			return fmt.Errorf("mint genesis balance for %s: %w", account, err)
		}
	}

	s.roles = access.New(model.Identity(cfg.Owner), access.WithOracle(model.Identity(cfg.Oracle)))
	s.aggregator = mood.NewAggregator(s.roles, repository.NewMapStore[uint64, model.MoodSample]())
	s.standings = repository.NewStandings()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	var err error
	if s.fund, err = fund.NewTracker(s.roles, s.ledger, repository.NewMapStore[model.Identity, model.UserStats](), custody); err != nil {
		return err
	}
	if s.markets, err = market.NewRegistry(s.fund, repository.NewMapStore[model.MarketID, model.Market](), cfg.MarketDuration, cfg.ResolutionWindow); err != nil {
		return err
	}
	positions := repository.NewMapStore[model.PositionKey, model.Position]()
	if s.bets, err = betting.NewLedger(s.fund, s.markets, s.ledger, s.fund, positions, betting.Config{
		Custody:    custody,
		MinimumBet: cfg.MinimumBet,
		FeeRate:    cfg.FeeRate,
	}); err != nil {
		return err
	}
	if s.resolver, err = resolution.NewEngine(s.roles, s.aggregator, s.markets); err != nil {
		return err
	}
	if s.payouts, err = payout.NewCalculator(s.markets, s.bets, s.ledger, s.fund, custody); err != nil {
		return err
	}
	return nil
}

// Stop drains pending commands and shuts the sequencer and clock down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping mood market service...")

	_ = s.commands.Close()
	select {
	case <-s.sequencer.Done():
	case <-time.After(drainTimeout):
		sctx, cancel := context.WithTimeout(ctx, drainTimeout)
		if err := s.sequencer.Shutdown(sctx); err != nil {
			s.logger.Warn(ctx, "sequencer did not stop", logger.Error(err))
		}
		cancel()
	}
	if s.blockClock != nil {
		s.blockClock.Stop()
		s.clock, s.blockClock = nil, nil
	}

	s.started, s.stopped = false, true
	s.logger.Info(ctx, "mood market service stopped")
}

// submit runs fn on the sequencer and waits for its reply. A request whose
// context ends while waiting still has its command applied and gets
// ErrAbandoned.
func submit[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context, now uint64) (T, error)) (T, error) {
	var zero T

	s.mu.RLock()
	started, commands, seq := s.started, s.commands, s.sequencer
	s.mu.RUnlock()
	if !started {
		return zero, ErrNotStarted
	}

	cmd := queue.NewCommand(op, func(ctx context.Context, now uint64) (any, error) {
		return fn(ctx, now)
	})
	if !commands.Enqueue(ctx, cmd) {
		return zero, fmt.Errorf("%s: %w", op, ErrBackpressure)
	}

	var res queue.Result
	select {
	case res = <-cmd.Reply:
	case <-ctx.Done():
		return zero, fmt.Errorf("%s: %w: %w", op, ErrAbandoned, ctx.Err())
	case <-seq.Done():
		select {
		case res = <-cmd.Reply:
		default:
			return zero, fmt.Errorf("%s: %w", op, ErrStopped)
		}
	}

	if res.Err != nil {
		s.logRejection(ctx, op, cmd.ID, res.Err)
		return zero, res.Err
	}
	v, _ := res.Value.(T)
	return v, nil
}

func (s *Service) logRejection(ctx context.Context, op, id string, err error) {
	code := model.Code(err)
	if code == "" {
		s.logger.Error(ctx, "command failed",
			logger.String("op", op), logger.String("command_id", id), logger.Error(err))
		return
	}
	metrics.RecordRejection(op, code)
	s.logger.Warn(ctx, "command rejected",
		logger.String("op", op), logger.String("command_id", id), logger.String("kind", code), logger.Error(err))
}

// CreateMarketInput describes a market to create.
type CreateMarketInput struct {
	Title            string
	Description      string
	Threshold        uint64
	ResolutionSource string
}

// MarketView is a market together with its derived state at a height.
type MarketView struct {
	model.Market
	model.Odds
	Phase      model.Phase `json:"phase"`
	CanResolve bool        `json:"can_resolve"`
	Height     uint64      `json:"height"`
}

func viewOf(m model.Market, now uint64) MarketView {
	phase := m.Phase(now)
	return MarketView{
		Market:     m,
		Odds:       model.OddsOf(&m),
		Phase:      phase,
		CanResolve: phase == model.PhaseClosed,
		Height:     now,
	}
}

// CreateMarket opens a market at the current height.
func (s *Service) CreateMarket(ctx context.Context, caller model.Identity, in CreateMarketInput) (MarketView, error) {
	return submit(ctx, s, "create_market", func(ctx context.Context, now uint64) (MarketView, error) {
		id, err := s.markets.Create(ctx, caller, now, market.CreateParams{
			Title:            in.Title,
			Description:      in.Description,
			Threshold:        in.Threshold,
			ResolutionSource: in.ResolutionSource,
		})
		if err != nil {
			return MarketView{}, err
		}
		m, err := s.markets.Get(id)
		if err != nil {
			return MarketView{}, err
		}
		metrics.RecordMarketCreated()
		metrics.UpdateMarketsTotal(s.markets.Count())
		s.logger.Info(ctx, "market created",
			logger.Uint64("market_id", uint64(id)),
			logger.String("creator", string(caller)),
			logger.Uint64("threshold", m.Threshold),
			logger.Uint64("closes_at", m.ClosesAt),
		)
		return viewOf(m, now), nil
	})
}

// Market returns one market.
func (s *Service) Market(ctx context.Context, id model.MarketID) (MarketView, error) {
	return submit(ctx, s, "get_market", func(_ context.Context, now uint64) (MarketView, error) {
		m, err := s.markets.Get(id)
		if err != nil {
			return MarketView{}, err
		}
		return viewOf(m, now), nil
	})
}

// Markets lists every market by id.
func (s *Service) Markets(ctx context.Context) ([]MarketView, error) {
	return submit(ctx, s, "list_markets", func(ctx context.Context, now uint64) ([]MarketView, error) {
		list := s.markets.List(ctx)
		out := make([]MarketView, len(list))
		for i, m := range list {
			out[i] = viewOf(m, now)
		}
		return out, nil
	})
}

// Odds returns the per-side pool share of a market.
func (s *Service) Odds(ctx context.Context, id model.MarketID) (model.Odds, error) {
	return submit(ctx, s, "get_odds", func(context.Context, uint64) (model.Odds, error) {
		return s.markets.Odds(id)
	})
}

// CanResolve reports whether a market may be resolved now.
func (s *Service) CanResolve(ctx context.Context, id model.MarketID) (bool, error) {
	return submit(ctx, s, "can_resolve", func(_ context.Context, now uint64) (bool, error) {
		return s.resolver.CanResolve(now, id)
	})
}

// PlaceBet stakes amount on side of a market.
func (s *Service) PlaceBet(ctx context.Context, caller model.Identity, id model.MarketID, side model.Side, amount uint64) (betting.Receipt, error) {
	return submit(ctx, s, "place_bet", func(ctx context.Context, now uint64) (betting.Receipt, error) {
		r, err := s.bets.PlaceBet(ctx, caller, now, id, side, amount)
		if err != nil {
			return betting.Receipt{}, err
		}
		metrics.RecordBetPlaced(side.String(), amount, r.Fee)
		metrics.UpdateFundBalance(s.fund.Balance())
		s.logger.Info(ctx, "bet placed",
			logger.Uint64("market_id", uint64(id)),
			logger.String("user", string(caller)),
			logger.String("side", side.String()),
			logger.Uint64("amount", amount),
			logger.Uint64("fee", r.Fee),
		)
		return r, nil
	})
}

// Position returns a user's position in a market.
func (s *Service) Position(ctx context.Context, id model.MarketID, user model.Identity) (model.Position, error) {
	return submit(ctx, s, "get_position", func(context.Context, uint64) (model.Position, error) {
		return s.bets.Position(id, user)
	})
}

// SubmitSample records an oracle sample and returns it with its score.
func (s *Service) SubmitSample(ctx context.Context, caller model.Identity, in mood.Submission) (model.MoodSample, error) {
	return submit(ctx, s, "submit_sample", func(ctx context.Context, _ uint64) (model.MoodSample, error) {
		score, err := s.aggregator.Submit(ctx, caller, in)
		if err != nil {
			return model.MoodSample{}, err
		}
		metrics.RecordSampleSubmitted(score)
		s.logger.Info(ctx, "mood sample submitted",
			logger.Uint64("timestamp", in.Timestamp),
			logger.Uint64("composite", score),
		)
		return s.aggregator.Sample(in.Timestamp)
	})
}

// Sample returns the sample stored at ts.
func (s *Service) Sample(ctx context.Context, ts uint64) (model.MoodSample, error) {
	return submit(ctx, s, "get_sample", func(context.Context, uint64) (model.MoodSample, error) {
		return s.aggregator.Sample(ts)
	})
}

// Resolve freezes a market outcome.
func (s *Service) Resolve(ctx context.Context, caller model.Identity, id model.MarketID) (MarketView, error) {
	return submit(ctx, s, "resolve_market", func(ctx context.Context, now uint64) (MarketView, error) {
		score, err := s.resolver.Resolve(caller, now, id)
		if err != nil {
			return MarketView{}, err
		}
		m, err := s.markets.Get(id)
		if err != nil {
			return MarketView{}, err
		}
		side, _ := m.WinningSide()
		metrics.RecordMarketResolved(side.String())
		s.logger.Info(ctx, "market resolved",
			logger.Uint64("market_id", uint64(id)),
			logger.Uint64("score", score),
			logger.String("winner", side.String()),
		)
		return viewOf(m, now), nil
	})
}

// Claim pays out the caller's winnings.
func (s *Service) Claim(ctx context.Context, caller model.Identity, id model.MarketID) (payout.Quote, error) {
	return submit(ctx, s, "claim", func(ctx context.Context, _ uint64) (payout.Quote, error) {
		q, err := s.payouts.Claim(ctx, caller, id)
		if err != nil {
			return payout.Quote{}, err
		}
		winnings := s.fund.Stats(caller).TotalWinnings
		if _, err := s.standings.UpdateBest(ctx, string(caller), winnings); err != nil {
			s.logger.Error(ctx, "standings update failed", logger.String("user", string(caller)), logger.Error(err))
		}
		metrics.RecordClaim(q.Payout)
		s.logger.Info(ctx, "claim paid",
			logger.Uint64("market_id", uint64(id)),
			logger.String("user", string(caller)),
			logger.Uint64("payout", q.Payout),
			logger.Bool("correct", q.Correct),
		)
		return q, nil
	})
}

// Quote previews a claim.
func (s *Service) Quote(ctx context.Context, id model.MarketID, user model.Identity) (payout.Quote, error) {
	return submit(ctx, s, "quote", func(context.Context, uint64) (payout.Quote, error) {
		return s.payouts.Quote(id, user)
	})
}

// UserStats returns a user's counters.
func (s *Service) UserStats(ctx context.Context, user model.Identity) (model.UserStats, error) {
	return submit(ctx, s, "get_user_stats", func(context.Context, uint64) (model.UserStats, error) {
		return s.fund.Stats(user), nil
	})
}

// Balance returns a user's ledger balance.
func (s *Service) Balance(ctx context.Context, user model.Identity) (uint64, error) {
	return submit(ctx, s, "get_balance", func(ctx context.Context, _ uint64) (uint64, error) {
		return s.ledger.Balance(ctx, user)
	})
}

// FundView is the community fund state.
type FundView struct {
	Balance uint64 `json:"balance"`
	Paused  bool   `json:"paused"`
}

// Fund returns the fund balance and pause flag.
func (s *Service) Fund(ctx context.Context) (FundView, error) {
	return submit(ctx, s, "get_fund", func(context.Context, uint64) (FundView, error) {
		return FundView{Balance: s.fund.Balance(), Paused: s.fund.Paused()}, nil
	})
}

// Withdraw moves value out of the fund. Owner only.
func (s *Service) Withdraw(ctx context.Context, caller model.Identity, amount uint64, recipient model.Identity) (FundView, error) {
	return submit(ctx, s, "withdraw_fund", func(ctx context.Context, _ uint64) (FundView, error) {
		if err := s.fund.Withdraw(ctx, caller, amount, recipient); err != nil {
			return FundView{}, err
		}
		metrics.RecordWithdrawal()
		metrics.UpdateFundBalance(s.fund.Balance())
		s.logger.Info(ctx, "fund withdrawn",
			logger.Uint64("amount", amount),
			logger.String("recipient", string(recipient)),
		)
		return FundView{Balance: s.fund.Balance(), Paused: s.fund.Paused()}, nil
	})
}

// TogglePause flips the pause gate. Owner only.
func (s *Service) TogglePause(ctx context.Context, caller model.Identity) (FundView, error) {
	return submit(ctx, s, "toggle_pause", func(ctx context.Context, _ uint64) (FundView, error) {
		paused, err := s.fund.TogglePause(caller)
		if err != nil {
			return FundView{}, err
		}
		metrics.UpdatePaused(paused)
		s.logger.Info(ctx, "pause toggled", logger.Bool("paused", paused))
		return FundView{Balance: s.fund.Balance(), Paused: paused}, nil
	})
}

// RegisterOracle sets the oracle identity once. Owner only.
func (s *Service) RegisterOracle(ctx context.Context, caller, oracle model.Identity) error {
	_, err := submit(ctx, s, "register_oracle", func(ctx context.Context, _ uint64) (struct{}, error) {
		if err := s.roles.RegisterOracle(caller, oracle); err != nil {
			return struct{}{}, err
		}
		s.logger.Info(ctx, "oracle registered", logger.String("oracle", string(oracle)))
		return struct{}{}, nil
	})
	return err
}

// TopN returns the best predictors by total winnings.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.standings.TopN(ctx, n)
}

// Rank returns a predictor's standing.
func (s *Service) Rank(ctx context.Context, user string) (repository.Entry, error) {
	if err := s.ready(); err != nil {
		return repository.Entry{}, err
	}
	return s.standings.Rank(ctx, user)
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SeenAndRecord atomically checks if an idempotency key was seen and records
// it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	seen := s.deduper.SeenAndRecord(ctx, key)
	if seen {
		metrics.RecordIdempotentReplay()
	}
	return seen
}

// Unrecord forgets an idempotency key so the request can be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Size returns the number of remembered idempotency keys.
func (s *Service) Size() int {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started := s.started
	stats := map[string]any{
		"started":    started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	s.mu.RUnlock()
	if !started {
		return stats
	}

	ctx := context.Background()
	stats["queueLength"] = s.commands.Len(ctx)
	stats["idempotencyKeys"] = s.Size()
	stats["predictors"] = s.standings.Count(ctx)
	stats["ledger"] = s.ledger.Backend()

	summary, err := submit(ctx, s, "get_stats", func(_ context.Context, now uint64) (map[string]any, error) {
		return map[string]any{
			"height":      now,
			"markets":     s.markets.Count(),
			"fundBalance": s.fund.Balance(),
			"paused":      s.fund.Paused(),
		}, nil
	})
	if err != nil && !errors.Is(err, ErrBackpressure) {
		s.logger.Warn(ctx, "stats snapshot failed", logger.Error(err))
	}
	for k, v := range summary {
		stats[k] = v
	}
	return stats
}
