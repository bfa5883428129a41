// Package resolution freezes market outcomes from the composite mood score.
package resolution

import (
	"fmt"

	"github.com/okian/moodmarket/internal/domain/model"
)

// Authorizer checks caller roles.
type Authorizer interface {
	Require(id model.Identity, roles ...model.Role) error
}

// Scores looks up the composite score at an exact height.
type Scores interface {
	CompositeScore(ts uint64) (uint64, error)
}

// Markets reads and resolves markets.
type Markets interface {
	Get(id model.MarketID) (model.Market, error)
	MarkResolved(id model.MarketID, score uint64) error
}

// Engine drives Open -> Closed -> Resolved.
type Engine struct {
	auth    Authorizer
	scores  Scores
	markets Markets
}

// NewEngine creates a resolution engine.
func NewEngine(auth Authorizer, scores Scores, markets Markets) (*Engine, error) {
	if auth == nil || scores == nil || markets == nil {
		return nil, ErrMissingDependency
	}
	return &Engine{auth: auth, scores: scores, markets: markets}, nil
}

// Resolve sets the market outcome to the composite score recorded exactly at
// its close height. Only the owner or the oracle may resolve, and only inside
// [ClosesAt, ResolvesAt).
func (e *Engine) Resolve(caller model.Identity, now uint64, id model.MarketID) (uint64, error) {
	if err := e.auth.Require(caller, model.RoleOwner, model.RoleOracle); err != nil {
		return 0, fmt.Errorf("resolve market %d: %w", id, err)
	}
	m, err := e.markets.Get(id)
	if err != nil {
		return 0, fmt.Errorf("resolve: %w", err)
	}
	switch {
	case now < m.ClosesAt:
		return 0, fmt.Errorf("resolve market %d before close %d: %w", id, m.ClosesAt, model.ErrMarketNotExpired)
	case now >= m.ResolvesAt:
		return 0, fmt.Errorf("resolve market %d after window %d: %w", id, m.ResolvesAt, model.ErrMarketExpired)
	case m.Resolved:
		return 0, fmt.Errorf("resolve market %d: %w", id, model.ErrAlreadyResolved)
	}

	score, err := e.scores.CompositeScore(m.ClosesAt)
	if err != nil {
		return 0, fmt.Errorf("resolve market %d: %w", id, err)
	}
	if err := e.markets.MarkResolved(id, score); err != nil {
		return 0, fmt.Errorf("resolve market %d: %w", id, err)
	}
	return score, nil
}

// CanResolve reports whether the market is inside its resolution window and
// still unresolved.
func (e *Engine) CanResolve(now uint64, id model.MarketID) (bool, error) {
	m, err := e.markets.Get(id)
	if err != nil {
		return false, err
	}
	return !m.Resolved && m.ClosesAt <= now && now < m.ResolvesAt, nil
}
