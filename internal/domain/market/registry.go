// Package market owns market records and their lifecycle timestamps.
package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/internal/domain/store"
)

// Gate reports whether creation is currently allowed.
type Gate interface {
	EnsureActive() error
}

// Registry creates and stores markets. It is not safe for concurrent use;
// callers serialize access.
type Registry struct {
	gate     Gate
	duration uint64
	window   uint64
	markets  store.KeyValue[model.MarketID, model.Market]
	lastID   model.MarketID
}

// NewRegistry creates a registry whose markets close duration blocks after
// creation and can be resolved during the following window blocks. The id
// counter resumes after the highest id already in markets.
func NewRegistry(gate Gate, markets store.KeyValue[model.MarketID, model.Market], duration, window uint64) (*Registry, error) {
	if gate == nil {
		return nil, ErrNoGate
	}
	if markets == nil {
		return nil, ErrNoStore
	}
	if duration == 0 || window == 0 {
		return nil, fmt.Errorf("%w: duration %d window %d", ErrInvalidSchedule, duration, window)
	}
	r := &Registry{
		gate:     gate,
		duration: duration,
		window:   window,
		markets:  markets,
	}
	markets.Range(func(id model.MarketID, _ model.Market) bool {
		r.lastID = max(r.lastID, id)
		return true
	})
	return r, nil
}

// CreateParams describes a new market.
type CreateParams struct {
	Title            string
	Description      string
	Threshold        uint64
	ResolutionSource string
}

// Create registers a market opened at height now.
func (r *Registry) Create(_ context.Context, caller model.Identity, now uint64, p CreateParams) (model.MarketID, error) {
	if err := r.gate.EnsureActive(); err != nil {
		return 0, fmt.Errorf("create market: %w", err)
	}
	if !caller.Valid() {
		return 0, fmt.Errorf("create market: anonymous caller: %w", model.ErrUnauthorized)
	}
	if p.Threshold > model.MoodScaleMax {
		return 0, fmt.Errorf("create market: threshold %d: %w", p.Threshold, model.ErrInvalidInput)
	}
	if strings.TrimSpace(p.Title) == "" {
		return 0, fmt.Errorf("create market: empty title: %w", model.ErrInvalidInput)
	}
	closesAt, ok := model.CheckedAdd(now, r.duration)
	if !ok {
		return 0, fmt.Errorf("create market: close height overflows: %w", model.ErrInvalidInput)
	}
	resolvesAt, ok := model.CheckedAdd(closesAt, r.window)
	if !ok {
		return 0, fmt.Errorf("create market: resolve height overflows: %w", model.ErrInvalidInput)
	}

	r.lastID++
	m := model.Market{
		ID:               r.lastID,
		Title:            p.Title,
		Description:      p.Description,
		Creator:          caller,
		CreatedAt:        now,
		ClosesAt:         closesAt,
		ResolvesAt:       resolvesAt,
		Threshold:        p.Threshold,
		ResolutionSource: p.ResolutionSource,
	}
	r.markets.Put(m.ID, m)
	return m.ID, nil
}

// Get returns a copy of the market.
func (r *Registry) Get(id model.MarketID) (model.Market, error) {
	m, ok := r.markets.Get(id)
	if !ok {
		return model.Market{}, fmt.Errorf("market %d: %w", id, model.ErrInvalidMarket)
	}
	return m, nil
}

// List returns every market ordered by id.
func (r *Registry) List(ctx context.Context) []model.Market {
	return store.SortedValues(ctx, r.markets)
}

// Count returns the number of markets.
func (r *Registry) Count() int { return r.markets.Len() }

// Odds returns the per-side share of the pool.
func (r *Registry) Odds(id model.MarketID) (model.Odds, error) {
	m, err := r.Get(id)
	if err != nil {
		return model.Odds{}, err
	}
	return model.OddsOf(&m), nil
}

// CheckStake reports whether net can be added to side without overflowing
// the pools.
func CheckStake(m model.Market, side model.Side, net uint64) error {
	if !side.Valid() {
		return fmt.Errorf("side %d: %w", side, model.ErrInvalidInput)
	}
	if _, ok := model.CheckedAdd(m.TotalPool, net); !ok {
		return fmt.Errorf("market %d pool overflow: %w", m.ID, model.ErrInvalidAmount)
	}
	return nil
}

// AddStake adds a net stake to one side and the total pool.
func (r *Registry) AddStake(id model.MarketID, side model.Side, net uint64) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := CheckStake(m, side, net); err != nil {
		return err
	}
	if side == model.Positive {
		m.PositivePool += net
	} else {
		m.NegativePool += net
	}
	m.TotalPool += net
	r.markets.Put(id, m)
	return nil
}

// MarkResolved freezes the outcome of a market. It fails if the market is
// already resolved or the score is off the scale.
func (r *Registry) MarkResolved(id model.MarketID, score uint64) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}
	if m.Resolved {
		return fmt.Errorf("market %d: %w", id, model.ErrAlreadyResolved)
	}
	if score > model.MoodScaleMax {
		return fmt.Errorf("market %d score %d: %w", id, score, model.ErrOracle)
	}
	m.Resolved = true
	m.ActualScore = &score
	r.markets.Put(id, m)
	return nil
}
