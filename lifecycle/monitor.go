// Package lifecycle turns app foreground and background transitions into
// reauthentication requests.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultThreshold = 30 * time.Second

// AppState is the platform lifecycle state reported by the host.
type AppState string

const (
	StateActive     AppState = "active"
	StateInactive   AppState = "inactive"
	StateBackground AppState = "background"
)

// ReauthFlag is the reauthentication state shared by the monitor and the reauth flow.
type ReauthFlag struct {
	NeedsReauth         bool
	BackgroundEnteredAt *time.Time
}

// Monitor records when the app leaves the foreground and raises the reauth
// flag when it comes back after the threshold.
type Monitor struct {
	threshold time.Duration
	always    bool
	nowTime   func() time.Time
	log       zerolog.Logger

	mu      sync.Mutex
	flag    ReauthFlag
	signals chan struct{}
}

type Option func(*Monitor)

func WithThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithAlwaysReauth requires a PIN on every return from the background.
func WithAlwaysReauth(always bool) Option {
	return func(m *Monitor) {
		m.always = always
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Monitor) {
		m.nowTime = nowFunc
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

func NewMonitor(options ...Option) *Monitor {
	m := &Monitor{
		threshold: DefaultThreshold,
		nowTime:   time.Now,
		log:       log.Logger,
		signals:   make(chan struct{}, 1),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Signals delivers one value each time the flag goes from false to true.
func (m *Monitor) Signals() <-chan struct{} {
	return m.signals
}

// HandleTransition applies one lifecycle event and reports whether it raised the flag.
func (m *Monitor) HandleTransition(state AppState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowTime()
	switch state {
	case StateBackground, StateInactive:
		// inactive usually precedes background; the first one starts the clock.
		if m.flag.BackgroundEnteredAt == nil {
			m.flag.BackgroundEnteredAt = utils.Ptr(now)
			m.log.Debug().Str("state", string(state)).Msg("App left foreground")
		}
		return false

	case StateActive:
		entered := m.flag.BackgroundEnteredAt
		if entered == nil {
			return false
		}
		m.flag.BackgroundEnteredAt = nil

		elapsed := now.Sub(*entered)
		if elapsed < m.threshold && !m.always {
			m.log.Debug().Dur("elapsed", elapsed).Msg("Returned to foreground within threshold")
			return false
		}
		if m.flag.NeedsReauth {
			return false
		}
		m.flag.NeedsReauth = true
		m.log.Info().Dur("elapsed", elapsed).Bool("always", m.always).Msg("Reauthentication required")
		select {
		case m.signals <- struct{}{}:
		default:
		}
		return true

	default:
		m.log.Warn().Str("state", string(state)).Msg("Ignoring unknown app state")
		return false
	}
}

// Run applies events until ctx is done or events is closed.
func (m *Monitor) Run(ctx context.Context, events <-chan AppState) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-events:
			if !ok {
				return nil
			}
			m.HandleTransition(state)
		}
	}
}

func (m *Monitor) NeedsReauth() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flag.NeedsReauth
}

// ClearReauth lowers the flag so the next long background period signals again.
func (m *Monitor) ClearReauth() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flag.NeedsReauth = false
}

// Flag returns a copy of the current flag.
func (m *Monitor) Flag() ReauthFlag {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.flag
	if f.BackgroundEnteredAt != nil {
		f.BackgroundEnteredAt = utils.Ptr(*f.BackgroundEnteredAt)
	}
	return f
}
