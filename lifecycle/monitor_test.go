package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/lifecycle"
	"github.com/stretchr/testify/require"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMonitor(c *clock, options ...lifecycle.Option) *lifecycle.Monitor {
	return lifecycle.NewMonitor(append([]lifecycle.Option{lifecycle.WithNowTime(c.Now)}, options...)...)
}

func signalCount(m *lifecycle.Monitor) int {
	n := 0
	for {
		select {
		case <-m.Signals():
			n++
		default:
			return n
		}
	}
}

func TestShortBackgroundDoesNotRequireReauth(t *testing.T) {
	c := newClock()
	m := newMonitor(c)

	m.HandleTransition(lifecycle.StateBackground)
	c.Advance(29 * time.Second)
	require.False(t, m.HandleTransition(lifecycle.StateActive))

	require.False(t, m.NeedsReauth())
	require.Zero(t, signalCount(m))
	require.Nil(t, m.Flag().BackgroundEnteredAt)
}

func TestLongBackgroundRequiresReauthOnce(t *testing.T) {
	c := newClock()
	m := newMonitor(c)

	m.HandleTransition(lifecycle.StateBackground)
	c.Advance(45 * time.Second)
	require.True(t, m.HandleTransition(lifecycle.StateActive))

	// A second foreground event within a second of the first.
	c.Advance(500 * time.Millisecond)
	require.False(t, m.HandleTransition(lifecycle.StateActive))

	require.True(t, m.NeedsReauth())
	require.Equal(t, 1, signalCount(m))
}

func TestThresholdIsInclusive(t *testing.T) {
	c := newClock()
	m := newMonitor(c, lifecycle.WithThreshold(10*time.Second))

	m.HandleTransition(lifecycle.StateBackground)
	c.Advance(10 * time.Second)
	require.True(t, m.HandleTransition(lifecycle.StateActive))
}

func TestRepeatedBackgroundWhileFlaggedSignalsOnce(t *testing.T) {
	c := newClock()
	m := newMonitor(c)

	for i := 0; i < 2; i++ {
		m.HandleTransition(lifecycle.StateBackground)
		c.Advance(time.Minute)
		m.HandleTransition(lifecycle.StateActive)
	}
	require.Equal(t, 1, signalCount(m))

	m.ClearReauth()
	m.HandleTransition(lifecycle.StateBackground)
	c.Advance(time.Minute)
	require.True(t, m.HandleTransition(lifecycle.StateActive))
	require.Equal(t, 1, signalCount(m))
}

func TestInactiveStartsTheClock(t *testing.T) {
	c := newClock()
	m := newMonitor(c)

	m.HandleTransition(lifecycle.StateInactive)
	entered := *m.Flag().BackgroundEnteredAt
	c.Advance(20 * time.Second)
	m.HandleTransition(lifecycle.StateBackground)
	require.Equal(t, entered, *m.Flag().BackgroundEnteredAt)

	c.Advance(15 * time.Second)
	require.True(t, m.HandleTransition(lifecycle.StateActive))
}

func TestAlwaysReauth(t *testing.T) {
	c := newClock()
	m := newMonitor(c, lifecycle.WithAlwaysReauth(true))

	m.HandleTransition(lifecycle.StateBackground)
	c.Advance(time.Second)
	require.True(t, m.HandleTransition(lifecycle.StateActive))
}

func TestActiveWithoutBackgroundIsIgnored(t *testing.T) {
	m := newMonitor(newClock(), lifecycle.WithAlwaysReauth(true))
	require.False(t, m.HandleTransition(lifecycle.StateActive))
	require.False(t, m.HandleTransition("suspended"))
}

func TestRun(t *testing.T) {
	c := newClock()
	m := newMonitor(c)
	events := make(chan lifecycle.AppState)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, events) }()

	events <- lifecycle.StateBackground
	// Run handles events in order, so this send returns once background is recorded.
	events <- lifecycle.StateInactive
	c.Advance(time.Minute)
	events <- lifecycle.StateActive

	select {
	case <-m.Signals():
	case <-time.After(time.Second):
		t.Fatal("no reauth signal")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunStopsWhenEventsClose(t *testing.T) {
	m := newMonitor(newClock())
	events := make(chan lifecycle.AppState)
	close(events)
	require.NoError(t, m.Run(context.Background(), events))
}
