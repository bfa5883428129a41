// Package payout settles resolved markets pro rata to winning-side stakes.
package payout

import (
	"context"
	"fmt"

	"github.com/okian/moodmarket/internal/domain/model"
)

// Markets reads market records.
type Markets interface {
	Get(id model.MarketID) (model.Market, error)
}

// Positions reads positions and flips their claimed flag.
type Positions interface {
	Position(id model.MarketID, user model.Identity) (model.Position, error)
	SetClaimed(id model.MarketID, user model.Identity, claimed bool) error
}

// Transferer moves value between accounts.
type Transferer interface {
	Transfer(ctx context.Context, amount uint64, from, to model.Identity) error
}

// Stats records settled claims.
type Stats interface {
	RecordClaim(user model.Identity, payout uint64, correct bool)
}

// Calculator computes and pays out claims.
type Calculator struct {
	markets   Markets
	positions Positions
	transfers Transferer
	stats     Stats
	custody   model.Identity
}

// NewCalculator wires a payout calculator paying from custody.
func NewCalculator(markets Markets, positions Positions, transfers Transferer, stats Stats, custody model.Identity) (*Calculator, error) {
	if markets == nil || positions == nil || transfers == nil || stats == nil {
		return nil, ErrMissingDependency
	}
	if !custody.Valid() {
		return nil, ErrNoCustody
	}
	return &Calculator{markets: markets, positions: positions, transfers: transfers, stats: stats, custody: custody}, nil
}

// Quote is the settlement a position would receive.
type Quote struct {
	Payout  uint64 `json:"payout"`
	Correct bool   `json:"correct"`
	Claimed bool   `json:"claimed"`
}

// Amount returns floor(stake * total / winning) with a 128-bit intermediate,
// or zero for an empty winning pool.
func Amount(stake, totalPool, winningPool uint64) uint64 {
	if winningPool == 0 {
		return 0
	}
	return model.MulDiv(stake, totalPool, winningPool)
}

// Quote previews a claim without settling it.
func (c *Calculator) Quote(id model.MarketID, user model.Identity) (Quote, error) {
	pos, err := c.positions.Position(id, user)
	if err != nil {
		return Quote{}, err
	}
	m, err := c.markets.Get(id)
	if err != nil {
		return Quote{}, err
	}
	winner, ok := m.WinningSide()
	if !ok {
		return Quote{}, fmt.Errorf("market %d: %w", id, model.ErrMarketNotResolved)
	}
	loser := model.Negative
	if winner == model.Negative {
		loser = model.Positive
	}
	return Quote{
		Payout: Amount(pos.Amount(winner), m.TotalPool, m.Pool(winner)),
		// A hedged position counts as a correct prediction when most of it
		// sat on the winning side.
		Correct: pos.Amount(winner) > 0 && pos.Amount(winner) >= pos.Amount(loser),
		Claimed: pos.Claimed,
	}, nil
}

// Claim pays the caller's share of a resolved market. The position is marked
// claimed before the transfer and unmarked if the transfer fails.
func (c *Calculator) Claim(ctx context.Context, caller model.Identity, id model.MarketID) (Quote, error) {
	q, err := c.Quote(id, caller)
	if err != nil {
		return Quote{}, fmt.Errorf("claim: %w", err)
	}
	if q.Claimed {
		return Quote{}, fmt.Errorf("claim market %d: %w", id, model.ErrAlreadyClaimed)
	}
	if q.Payout == 0 {
		return Quote{}, fmt.Errorf("claim market %d: nothing on the winning side: %w", id, model.ErrInsufficientBalance)
	}

	if err := c.positions.SetClaimed(id, caller, true); err != nil {
		return Quote{}, fmt.Errorf("claim: %w", err)
	}
	if err := c.transfers.Transfer(ctx, q.Payout, c.custody, caller); err != nil {
		if rerr := c.positions.SetClaimed(id, caller, false); rerr != nil {
			return Quote{}, fmt.Errorf("claim market %d: revert claimed flag: %w", id, rerr)
		}
		return Quote{}, fmt.Errorf("claim market %d: %w: %w", id, model.ErrInsufficientBalance, err)
	}
	c.stats.RecordClaim(caller, q.Payout, q.Correct)
	q.Claimed = true
	return q, nil
}
