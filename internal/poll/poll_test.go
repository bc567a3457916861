package poll_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwire/quizwire/internal/poll"
)

// fakeTicker delivers ticks on demand. The loop calls Stop when it exits, so
// stopped doubles as a loop-exit signal for the tests.
type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.once.Do(func() { close(f.stopped) })
}

func (f *fakeTicker) tick() { f.ch <- time.Time{} }

func (f *fakeTicker) awaitLoopExit(t *testing.T) {
	t.Helper()

	select {
	case <-f.stopped:
	case <-time.After(time.Second):
		t.Fatal("polling loop did not exit")
	}
}

func TestTaskRunsOnEveryTick(t *testing.T) {
	tick := newFakeTicker()

	var calls atomic.Int32
	task := poll.Start(context.Background(), poll.Config{
		Interval:  time.Second,
		NewTicker: func(time.Duration) poll.Ticker { return tick },
	}, func(context.Context) {
		calls.Add(1)
	})
	defer task.Stop()

	tick.tick()
	tick.tick()
	tick.tick()

	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestTaskImmediateRunsBeforeFirstTick(t *testing.T) {
	var calls atomic.Int32
	task := poll.Start(context.Background(), poll.Config{
		Interval:  time.Second,
		NewTicker: func(time.Duration) poll.Ticker { return newFakeTicker() },
		Immediate: true,
	}, func(context.Context) {
		calls.Add(1)
	})
	defer task.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

// A slow invocation must not pile up concurrent calls: the loop runs the
// function synchronously, so at most one is ever in flight.
func TestTaskBoundsConcurrencyToOne(t *testing.T) {
	tick := newFakeTicker()
	release := make(chan struct{})

	var (
		inFlight atomic.Int32
		max      atomic.Int32
	)

	task := poll.Start(context.Background(), poll.Config{
		Interval:  time.Second,
		NewTicker: func(time.Duration) poll.Ticker { return tick },
	}, func(context.Context) {
		n := inFlight.Add(1)
		if n > max.Load() {
			max.Store(n)
		}
		<-release
		inFlight.Add(-1)
	})
	defer task.Stop()

	tick.tick()

	// The loop is blocked inside fn; further ticks cannot be delivered and
	// are dropped rather than queued.
	require.Eventually(t, func() bool { return inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)

	assert.Equal(t, int32(1), max.Load())
}

func TestTaskStop(t *testing.T) {
	tick := newFakeTicker()

	var calls atomic.Int32
	task := poll.Start(context.Background(), poll.Config{
		Interval:  time.Second,
		NewTicker: func(time.Duration) poll.Ticker { return tick },
	}, func(context.Context) {
		calls.Add(1)
	})

	tick.tick()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	task.Stop()
	task.Stop() // idempotent
	assert.True(t, task.Stopped())
	tick.awaitLoopExit(t)

	// No further ticks are consumed after stop.
	select {
	case tick.ch <- time.Time{}:
		t.Fatal("tick delivered after stop")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestTaskStopFromInsideCallback(t *testing.T) {
	tick := newFakeTicker()

	var task *poll.Task
	started := make(chan struct{})
	task = poll.Start(context.Background(), poll.Config{
		Interval:  time.Second,
		NewTicker: func(time.Duration) poll.Ticker { return tick },
	}, func(context.Context) {
		task.Stop()
		close(started)
	})

	tick.tick()
	<-started

	require.True(t, task.Stopped())
	tick.awaitLoopExit(t)
}

func TestTaskStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tick := newFakeTicker()

	task := poll.Start(ctx, poll.Config{
		Interval:  time.Second,
		NewTicker: func(time.Duration) poll.Ticker { return tick },
	}, func(context.Context) {})

	cancel()
	tick.awaitLoopExit(t)

	select {
	case tick.ch <- time.Time{}:
		t.Fatal("tick delivered after cancel")
	case <-time.After(50 * time.Millisecond):
	}

	task.Stop()
}
