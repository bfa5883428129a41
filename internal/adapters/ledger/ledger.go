// Package ledger provides the value-transfer primitive the market settles
// through: an in-memory ledger and a Redis-backed one.
package ledger

import (
	"context"
	"fmt"

	"github.com/okian/moodmarket/internal/domain/model"
)

// Ledger moves value between accounts and mints opening balances.
type Ledger interface {
	// Transfer moves amount from one account to another. It fails with
	// model.ErrInsufficientBalance when from holds less than amount.
	Transfer(ctx context.Context, amount uint64, from, to model.Identity) error
	// Credit mints amount into an account.
	Credit(ctx context.Context, account model.Identity, amount uint64) error
	Balance(ctx context.Context, account model.Identity) (uint64, error)
	// Backend names the implementation for logs and metrics.
	Backend() string
}

func validateTransfer(amount uint64, from, to model.Identity) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: from %q to %q", ErrInvalidAccount, from, to)
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	return nil
}
