package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/pkg/metrics"
)

const backendMemory = "memory"

// MemoryLedger keeps balances in a map.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[model.Identity]uint64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[model.Identity]uint64)}
}

// Transfer implements Ledger.
func (l *MemoryLedger) Transfer(_ context.Context, amount uint64, from, to model.Identity) error {
	if err := validateTransfer(amount, from, to); err != nil {
		metrics.RecordLedgerTransfer(backendMemory, "invalid")
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	have := l.balances[from]
	if have < amount {
		metrics.RecordLedgerTransfer(backendMemory, "insufficient")
		return fmt.Errorf("%s holds %d, needs %d: %w", from, have, amount, model.ErrInsufficientBalance)
	}
	if from == to {
		metrics.RecordLedgerTransfer(backendMemory, "ok")
		return nil
	}
	next, ok := model.CheckedAdd(l.balances[to], amount)
	if !ok {
		metrics.RecordLedgerTransfer(backendMemory, "overflow")
		return fmt.Errorf("credit %s: %w", to, ErrOverflow)
	}
	l.balances[from] = have - amount
	l.balances[to] = next
	metrics.RecordLedgerTransfer(backendMemory, "ok")
	return nil
}

// Credit implements Ledger.
func (l *MemoryLedger) Credit(_ context.Context, account model.Identity, amount uint64) error {
	if !account.Valid() {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	next, ok := model.CheckedAdd(l.balances[account], amount)
	if !ok {
		return fmt.Errorf("credit %s: %w", account, ErrOverflow)
	}
	l.balances[account] = next
	return nil
}

// Balance implements Ledger. Unknown accounts hold zero.
func (l *MemoryLedger) Balance(_ context.Context, account model.Identity) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Backend implements Ledger.
func (l *MemoryLedger) Backend() string { return backendMemory }
