// Package queue carries commands from request handlers to the sequencer.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/moodmarket/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// ApplyFunc runs a command against the market state at height now.
type ApplyFunc func(ctx context.Context, now uint64) (any, error)

// Result is what the sequencer replies with.
type Result struct {
	Value any
	Err   error
}

// Command is one serialized operation.
type Command struct {
	ID         string
	Op         string
	Apply      ApplyFunc
	Reply      chan Result
	EnqueuedAt time.Time
}

// NewCommand creates a command with a fresh id and a buffered reply channel.
func NewCommand(op string, apply ApplyFunc) Command {
	return Command{
		ID:         uuid.NewString(),
		Op:         op,
		Apply:      apply,
		Reply:      make(chan Result, 1),
		EnqueuedAt: time.Now(),
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command. It returns false when the queue is full or
	// closed.
	Enqueue(ctx context.Context, c Command) bool

	// Dequeue returns the channel commands arrive on. It is closed once the
	// queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Command

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan Command
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.commands = make(chan Command, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a command to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return false
	}

	select {
	case q.commands <- c:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.commands))
		return true
	default:
		metrics.RecordQueueRejected("full")
		return false
	}
}

// Dequeue returns the command channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Command {
	return q.commands
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.commands)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting commands. Already queued commands stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.commands)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
