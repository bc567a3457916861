// Package poll provides the repeating task primitive the play machine builds
// its polling loops on: a fixed interval, at most one invocation in flight,
// and explicit cancellation when the owning phase is exited.
package poll

import (
	"context"
	"sync"
	"time"
)

// Ticker abstracts time.Ticker so tests can drive ticks manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker returns a Ticker backed by time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type Func func(ctx context.Context)

type Config struct {
	Interval time.Duration
	// NewTicker defaults to NewTicker; injectable for deterministic tests.
	NewTicker func(d time.Duration) Ticker
	// Immediate runs fn once before waiting for the first tick.
	Immediate bool
}

// Task is one running polling loop.
type Task struct {
	done chan struct{}
	once sync.Once
}

// Start begins a polling loop. fn runs synchronously inside the loop, so a
// tick that fires while the previous invocation is still running is dropped,
// not queued: concurrency is bounded to one per task. The loop exits when
// Stop is called or ctx is cancelled.
func Start(ctx context.Context, c Config, fn Func) *Task {
	newTicker := c.NewTicker
	if newTicker == nil {
		newTicker = NewTicker
	}

	t := &Task{done: make(chan struct{})}

	go func() {
		tick := newTicker(c.Interval)
		defer tick.Stop()

		if c.Immediate {
			fn(ctx)
		}

		for {
			select {
			case <-t.done:
				return
			case <-ctx.Done():
				return
			case <-tick.C():
				fn(ctx)
			}
		}
	}()

	return t
}

// Stop cancels the loop. Safe to call multiple times, and safe to call from
// inside fn: the loop observes the stop after the current invocation returns.
func (t *Task) Stop() {
	t.once.Do(func() {
		close(t.done)
	})
}

// Stopped reports whether Stop has been called.
func (t *Task) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
