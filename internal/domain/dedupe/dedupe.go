// Package dedupe tracks idempotency keys of state-changing requests.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records seen request keys to ensure at-most-once submission.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it if
	// not. It returns true when key was already recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a request that failed may be retried under the
	// same key.
	Unrecord(ctx context.Context, key string)

	Size() int
}

// memoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type memoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &memoryDeduper{
		maxSize: 50000,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *memoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

func (d *memoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[key]; ok {
		d.order.Remove(e)
		delete(d.seen, key)
	}
}

func (d *memoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
