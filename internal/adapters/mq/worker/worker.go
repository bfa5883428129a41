// Package worker runs the single sequencer that applies every market command
// in arrival order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/moodmarket/internal/adapters/mq/queue"
	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/pkg/logger"
	"github.com/okian/moodmarket/pkg/metrics"
)

// Clock returns the current block height.
type Clock interface {
	Now() uint64
}

// Queue defines how the sequencer receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Command
	Len(ctx context.Context) int
}

// Sequencer applies commands one at a time. Each command sees the clock read
// once, just before it runs, and no other command runs concurrently with it.
type Sequencer struct {
	queue Queue
	clock Clock
	name  string

	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once

	logger logger.Logger
}

// NewSequencer creates a sequencer over queue and clock.
func NewSequencer(q Queue, clock Clock, opts ...Option) *Sequencer {
	s := &Sequencer{
		queue:    q,
		clock:    clock,
		name:     "sequencer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named(s.name)
	}
	return s
}

// Run applies commands until ctx is done, Shutdown is called or the queue is
// closed and drained.
func (s *Sequencer) Run(ctx context.Context) {
	defer close(s.done)

	commands := s.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			s.process(ctx, cmd)
		}
	}
}

// Done is closed once Run returns.
func (s *Sequencer) Done() <-chan struct{} { return s.done }

// Shutdown stops the loop without draining and waits for it to exit.
func (s *Sequencer) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.shutdown) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (s *Sequencer) process(ctx context.Context, cmd queue.Command) {
	start := time.Now()
	now := s.clock.Now()

	value, err := s.apply(ctx, cmd, now)
	cmd.Reply <- queue.Result{Value: value, Err: err}

	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordCommand(cmd.Op, resultLabel(err), latency)
	metrics.UpdateQueueSize(s.queue.Len(ctx))
}

func (s *Sequencer) apply(ctx context.Context, cmd queue.Command, now uint64) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "command panicked",
				logger.String("command_id", cmd.ID),
				logger.String("op", cmd.Op),
				logger.Any("panic", r),
			)
			value, err = nil, fmt.Errorf("%w: %s: %v", ErrPanicked, cmd.Op, r)
		}
	}()
	return cmd.Apply(ctx, now)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPanicked):
		return "panic"
	case model.KindOf(err) != nil:
		return "rejected"
	default:
		return "error"
	}
}
