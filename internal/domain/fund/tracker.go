// Package fund tracks the community fund fed by the fee skim, per-user
// statistics and the global pause gate.
package fund

import (
	"context"
	"fmt"

	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/internal/domain/store"
)

// Authorizer checks the owner role.
type Authorizer interface {
	Require(id model.Identity, roles ...model.Role) error
}

// Transferer moves value between accounts.
type Transferer interface {
	Transfer(ctx context.Context, amount uint64, from, to model.Identity) error
}

// Tracker owns the fund balance, user stats and the pause flag. It is not
// safe for concurrent use; callers serialize access.
type Tracker struct {
	auth      Authorizer
	transfers Transferer
	custody   model.Identity

	balance uint64
	paused  bool
	stats   store.KeyValue[model.Identity, model.UserStats]
}

// NewTracker creates a tracker paying withdrawals out of custody and keeping
// user stats in the given store.
func NewTracker(auth Authorizer, transfers Transferer, stats store.KeyValue[model.Identity, model.UserStats], custody model.Identity) (*Tracker, error) {
	if auth == nil || transfers == nil || stats == nil {
		return nil, ErrMissingDependency
	}
	if !custody.Valid() {
		return nil, ErrNoCustody
	}
	t := &Tracker{
		auth:      auth,
		transfers: transfers,
		custody:   custody,
		stats:     stats,
	}
	return t, nil
}

// EnsureActive fails with ErrUnauthorized while paused.
func (t *Tracker) EnsureActive() error {
	if t.paused {
		return fmt.Errorf("system paused: %w", model.ErrUnauthorized)
	}
	return nil
}

// RecordBet credits the fee skim of a stake and counts the bet.
func (t *Tracker) RecordBet(user model.Identity, fee uint64) {
	t.balance += fee
	s, _ := t.stats.Get(user)
	s.TotalBets++
	s.FundContributions += fee
	t.stats.Put(user, s)
}

// RecordClaim adds a payout to the user's stats.
func (t *Tracker) RecordClaim(user model.Identity, payout uint64, correct bool) {
	s, _ := t.stats.Get(user)
	s.TotalWinnings += payout
	if correct {
		s.SuccessfulPredictions++
	}
	t.stats.Put(user, s)
}

// Withdraw pays amount from the fund to recipient. Owner only.
func (t *Tracker) Withdraw(ctx context.Context, caller model.Identity, amount uint64, recipient model.Identity) error {
	if err := t.auth.Require(caller, model.RoleOwner); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	if !recipient.Valid() {
		return fmt.Errorf("withdraw: empty recipient: %w", model.ErrInvalidInput)
	}
	if amount == 0 {
		return fmt.Errorf("withdraw: zero amount: %w", model.ErrInvalidAmount)
	}
	if amount > t.balance {
		return fmt.Errorf("withdraw %d of %d: %w", amount, t.balance, model.ErrInsufficientBalance)
	}
	if err := t.transfers.Transfer(ctx, amount, t.custody, recipient); err != nil {
		return fmt.Errorf("withdraw: %w: %w", model.ErrInsufficientBalance, err)
	}
	t.balance -= amount
	return nil
}

// TogglePause flips the pause gate and returns the new state. Owner only.
func (t *Tracker) TogglePause(caller model.Identity) (bool, error) {
	if err := t.auth.Require(caller, model.RoleOwner); err != nil {
		return t.paused, fmt.Errorf("toggle pause: %w", err)
	}
	t.paused = !t.paused
	return t.paused, nil
}

// Balance returns the fund balance.
func (t *Tracker) Balance() uint64 { return t.balance }

// Paused reports whether creation and betting are paused.
func (t *Tracker) Paused() bool { return t.paused }

// Stats returns the user's counters; unknown users have zero stats.
func (t *Tracker) Stats(user model.Identity) model.UserStats {
	s, _ := t.stats.Get(user)
	return s
}
