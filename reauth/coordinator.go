// Package reauth asks for the PIN again after the app returns from a long
// stay in the background.
package reauth

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Team-SSOK/ssok-auth-client/internal/metrics"
	"github.com/Team-SSOK/ssok-auth-client/navigation"
	"github.com/Team-SSOK/ssok-auth-client/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session is the part of *sessions.Manager the reauth flow uses.
type Session interface {
	Snapshot() sessions.Snapshot
	LoginWithPin(ctx context.Context, pin string) error
	LockOut(ctx context.Context) error
	HandleUserNotFound(ctx context.Context) error
}

// Flag is satisfied by *lifecycle.Monitor.
type Flag interface {
	NeedsReauth() bool
	ClearReauth()
}

// backer is implemented by navigators that can return to the previous screen.
type backer interface {
	Back() bool
}

// Coordinator moves the user to the reauth screen once per raised flag.
type Coordinator struct {
	session Session
	flag    Flag
	nav     navigation.Navigator
	log     zerolog.Logger

	inFlight atomic.Bool
	promptMu sync.Mutex
	mu       sync.Mutex
	returnTo string
}

type CoordinatorOption func(*Coordinator)

func WithCoordinatorLogger(l zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = l
	}
}

func NewCoordinator(session Session, flag Flag, nav navigation.Navigator, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{session: session, flag: flag, nav: nav, log: log.Logger}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Run handles reauth signals until ctx is done or signals is closed.
func (c *Coordinator) Run(ctx context.Context, signals <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			c.Prompt()
		}
	}
}

// Watch ends a showing prompt when the session stops being authenticated,
// so a later sign-in starts from a clean flag. It returns when ctx is done
// or the source closes.
func (c *Coordinator) Watch(ctx context.Context, source navigation.SnapshotSource) error {
	snaps, unsubscribe := source.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			c.sessionChanged(snap)
		}
	}
}

func (c *Coordinator) sessionChanged(snap sessions.Snapshot) {
	if snap.IsAuthenticated || snap.IsLoading {
		return
	}
	if !c.inFlight.Load() && !c.flag.NeedsReauth() {
		return
	}
	c.log.Info().Str("reason", string(snap.ResetReason)).Msg("Session ended, dropping reauth prompt")
	c.abandon()
}

// Prompt shows the reauth screen if the flag is raised and no prompt is
// already showing. It reports whether it navigated.
func (c *Coordinator) Prompt() bool {
	c.promptMu.Lock()
	defer c.promptMu.Unlock()

	if !c.flag.NeedsReauth() {
		return false
	}
	if !c.session.Snapshot().IsAuthenticated {
		// Nothing to protect; the sign-in screen asks for the PIN anyway.
		c.abandon()
		return false
	}

	current := c.nav.CurrentRoute()
	if current == navigation.RouteReauth {
		c.log.Debug().Msg("Reauth prompt already showing")
		c.inFlight.Store(true)
		return false
	}
	if c.inFlight.Load() {
		// The reauth screen was left without a PIN submit.
		c.log.Info().Str("at", current).Msg("Replacing stale reauth prompt")
	}
	c.inFlight.Store(true)
	c.mu.Lock()
	c.returnTo = current
	c.mu.Unlock()

	metrics.ReauthPrompts.Inc()
	c.log.Info().Str("from", current).Msg("Showing reauth prompt")
	c.nav.Navigate(navigation.RouteReauth)
	return true
}

// InFlight reports whether the reauth screen is showing.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// complete clears the flag and returns to the screen the prompt interrupted.
func (c *Coordinator) complete() {
	c.flag.ClearReauth()

	c.mu.Lock()
	returnTo := c.returnTo
	c.returnTo = ""
	c.mu.Unlock()

	switch b, ok := c.nav.(backer); {
	case ok && returnTo != "" && c.nav.CurrentRoute() == navigation.RouteReauth && b.Back():
	case returnTo != "" && returnTo != navigation.RouteReauth:
		c.nav.Replace(returnTo)
	default:
		c.nav.Replace(navigation.RouteHome)
	}
	c.inFlight.Store(false)
}

// abandon ends the prompt without navigating; the session guard takes over.
func (c *Coordinator) abandon() {
	c.flag.ClearReauth()
	c.mu.Lock()
	c.returnTo = ""
	c.mu.Unlock()
	c.inFlight.Store(false)
}
