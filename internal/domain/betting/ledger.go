// Package betting owns per-user stake positions and the bet placement flow.
package betting

import (
	"context"
	"fmt"

	"github.com/okian/moodmarket/internal/domain/market"
	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/internal/domain/store"
)

// FeeRateDenominator is the scale of the fee rate (parts per thousand).
const FeeRateDenominator = 1000

// Gate reports whether betting is currently allowed.
type Gate interface {
	EnsureActive() error
}

// Markets is the part of the registry a bet touches.
type Markets interface {
	Get(id model.MarketID) (model.Market, error)
	AddStake(id model.MarketID, side model.Side, net uint64) error
}

// Transferer moves value between accounts.
type Transferer interface {
	Transfer(ctx context.Context, amount uint64, from, to model.Identity) error
}

// Fund receives the fee skim.
type Fund interface {
	RecordBet(user model.Identity, fee uint64)
}

// Ledger places bets and stores positions. It is not safe for concurrent use;
// callers serialize access.
type Ledger struct {
	gate       Gate
	markets    Markets
	transfers  Transferer
	fund       Fund
	custody    model.Identity
	minimumBet uint64
	feeRate    uint64
	positions  store.KeyValue[model.PositionKey, model.Position]
}

// Config holds the bet limits and custody account.
type Config struct {
	Custody    model.Identity
	MinimumBet uint64
	// FeeRate is in parts per thousand.
	FeeRate uint64
}

// NewLedger wires a betting ledger.
func NewLedger(gate Gate, markets Markets, transfers Transferer, fund Fund, positions store.KeyValue[model.PositionKey, model.Position], cfg Config) (*Ledger, error) {
	if gate == nil || markets == nil || transfers == nil || fund == nil || positions == nil {
		return nil, ErrMissingDependency
	}
	if !cfg.Custody.Valid() {
		return nil, ErrNoCustody
	}
	if cfg.FeeRate > FeeRateDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFeeRate, cfg.FeeRate)
	}
	l := &Ledger{
		gate:       gate,
		markets:    markets,
		transfers:  transfers,
		fund:       fund,
		custody:    cfg.Custody,
		minimumBet: cfg.MinimumBet,
		feeRate:    cfg.FeeRate,
		positions:  positions,
	}
	return l, nil
}

// Receipt describes an accepted bet.
type Receipt struct {
	Fee      uint64         `json:"fee"`
	Net      uint64         `json:"net"`
	Position model.Position `json:"position"`
}

// Fee returns the skim on a gross stake.
func (l *Ledger) Fee(amount uint64) uint64 {
	return model.MulDiv(amount, l.feeRate, FeeRateDenominator)
}

// PlaceBet stakes amount on side of a market at height now. Every check runs
// before the transfer and nothing is mutated if the transfer fails.
func (l *Ledger) PlaceBet(ctx context.Context, caller model.Identity, now uint64, id model.MarketID, side model.Side, amount uint64) (Receipt, error) {
	if err := l.gate.EnsureActive(); err != nil {
		return Receipt{}, fmt.Errorf("place bet: %w", err)
	}
	if amount < l.minimumBet || amount == 0 {
		return Receipt{}, fmt.Errorf("place bet: amount %d below minimum %d: %w", amount, l.minimumBet, model.ErrInvalidAmount)
	}
	if !caller.Valid() {
		return Receipt{}, fmt.Errorf("place bet: anonymous caller: %w", model.ErrUnauthorized)
	}
	m, err := l.markets.Get(id)
	if err != nil {
		return Receipt{}, fmt.Errorf("place bet: %w", err)
	}
	if now >= m.ClosesAt {
		return Receipt{}, fmt.Errorf("place bet: market %d closed at %d: %w", id, m.ClosesAt, model.ErrMarketClosed)
	}
	if m.Resolved {
		return Receipt{}, fmt.Errorf("place bet: market %d: %w", id, model.ErrAlreadyResolved)
	}

	fee := l.Fee(amount)
	net := amount - fee
	if err := market.CheckStake(m, side, net); err != nil {
		return Receipt{}, fmt.Errorf("place bet: %w", err)
	}
	key := model.PositionKey{MarketID: id, User: caller}
	pos, _ := l.positions.Get(key)
	if side == model.Positive {
		pos.PositiveAmount += net
	} else {
		pos.NegativeAmount += net
	}

	if err := l.transfers.Transfer(ctx, amount, caller, l.custody); err != nil {
		return Receipt{}, fmt.Errorf("place bet: %w: %w", model.ErrInsufficientBalance, err)
	}

	if err := l.markets.AddStake(id, side, net); err != nil {
		// Unreachable after CheckStake; the stake is already in custody.
		return Receipt{}, fmt.Errorf("place bet: %w", err)
	}
	l.positions.Put(key, pos)
	l.fund.RecordBet(caller, fee)
	return Receipt{Fee: fee, Net: net, Position: pos}, nil
}

// Position returns the caller's position in a market.
func (l *Ledger) Position(id model.MarketID, user model.Identity) (model.Position, error) {
	pos, ok := l.positions.Get(model.PositionKey{MarketID: id, User: user})
	if !ok {
		return model.Position{}, fmt.Errorf("no position for %s in market %d: %w", user, id, model.ErrInvalidMarket)
	}
	return pos, nil
}

// SetClaimed sets the claimed flag of an existing position.
func (l *Ledger) SetClaimed(id model.MarketID, user model.Identity, claimed bool) error {
	key := model.PositionKey{MarketID: id, User: user}
	pos, ok := l.positions.Get(key)
	if !ok {
		return fmt.Errorf("no position for %s in market %d: %w", user, id, model.ErrInvalidMarket)
	}
	pos.Claimed = claimed
	l.positions.Put(key, pos)
	return nil
}
