package navigation

import (
	"context"

	"github.com/Team-SSOK/ssok-auth-client/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SnapshotSource is satisfied by *sessions.Manager.
type SnapshotSource interface {
	Subscribe() (<-chan sessions.Snapshot, func())
}

// Guard redirects the host when the session ends: to sign-in after a logout
// and to onboarding after the user was found deleted.
type Guard struct {
	nav    Navigator
	source SnapshotSource
	log    zerolog.Logger
}

type GuardOption func(*Guard)

func WithGuardLogger(l zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.log = l
	}
}

func NewGuard(nav Navigator, source SnapshotSource, options ...GuardOption) *Guard {
	g := &Guard{nav: nav, source: source, log: log.Logger}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Run follows the session until ctx is done.
func (g *Guard) Run(ctx context.Context) error {
	snaps, cancel := g.source.Subscribe()
	defer cancel()

	var prev sessions.Snapshot
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			g.apply(prev, snap)
			prev = snap
		}
	}
}

func (g *Guard) apply(prev, cur sessions.Snapshot) {
	if cur.IsAuthenticated || cur.ResetReason == sessions.ReasonNone || cur.ResetReason == "" {
		return
	}
	if !prev.IsAuthenticated && prev.ResetReason == cur.ResetReason {
		return
	}

	target := RouteSignIn
	if cur.ResetReason == sessions.ReasonUserNotFound {
		target = RouteOnboarding
	}
	if g.nav.CurrentRoute() == target {
		return
	}
	g.log.Info().Str("reason", string(cur.ResetReason)).Str("route", target).Msg("Session ended, redirecting")
	g.nav.Replace(target)
}
