// Package clock supplies the monotonic block height operations read as "now".
package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/moodmarket/pkg/metrics"
)

// Clock returns the current block height.
type Clock interface {
	Now() uint64
}

// BlockClock advances the height by one every interval once started.
type BlockClock struct {
	height   atomic.Uint64
	interval time.Duration

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// Option configures a BlockClock.
type Option func(*BlockClock)

// WithGenesis sets the starting height.
func WithGenesis(height uint64) Option {
	return func(c *BlockClock) { c.height.Store(height) }
}

// NewBlockClock creates a stopped clock. Non-positive intervals default to
// one second.
func NewBlockClock(interval time.Duration, opts ...Option) *BlockClock {
	if interval <= 0 {
		interval = time.Second
	}
	c := &BlockClock{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now implements Clock.
func (c *BlockClock) Now() uint64 { return c.height.Load() }

// Start ticks in the background until ctx is done or Stop is called.
func (c *BlockClock) Start(ctx context.Context) {
	metrics.UpdateBlockHeight(c.Now())
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				metrics.UpdateBlockHeight(c.height.Add(1))
			}
		}
	}()
}

// Stop halts the ticker and waits for it. It must follow Start.
func (c *BlockClock) Stop() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

// Manual is a clock moved by hand.
type Manual struct {
	height atomic.Uint64
}

// NewManual creates a manual clock at height.
func NewManual(height uint64) *Manual {
	m := &Manual{}
	m.height.Store(height)
	return m
}

// Now implements Clock.
func (m *Manual) Now() uint64 { return m.height.Load() }

// Advance moves the clock forward by n blocks and returns the new height.
func (m *Manual) Advance(n uint64) uint64 { return m.height.Add(n) }

// Set moves the clock to height. Moving backwards is ignored and reported
// as false.
func (m *Manual) Set(height uint64) bool {
	for {
		cur := m.height.Load()
		if height < cur {
			return false
		}
		if m.height.CompareAndSwap(cur, height) {
			return true
		}
	}
}
