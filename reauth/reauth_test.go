package reauth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/internal/metrics"
	"github.com/Team-SSOK/ssok-auth-client/lifecycle"
	"github.com/Team-SSOK/ssok-auth-client/navigation"
	"github.com/Team-SSOK/ssok-auth-client/reauth"
	"github.com/Team-SSOK/ssok-auth-client/sessions"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const correctPin = "123456"

type fakeSession struct {
	mu             sync.Mutex
	authenticated  bool
	loginErr       error
	lockOuts       int
	userNotFounds  int
	pinSubmissions []string
}

func (s *fakeSession) Snapshot() sessions.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticated {
		return sessions.Snapshot{State: sessions.StateAuthenticated, IsAuthenticated: true}
	}
	return sessions.Snapshot{State: sessions.StateAnonymous}
}

func (s *fakeSession) LoginWithPin(_ context.Context, pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinSubmissions = append(s.pinSubmissions, pin)
	if s.loginErr != nil {
		return s.loginErr
	}
	if pin != correctPin {
		return apperrors.New(apperrors.KindAuthValidation, "PIN does not match.", apperrors.ErrInvalidPin)
	}
	return nil
}

func (s *fakeSession) LockOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockOuts++
	s.authenticated = false
	return nil
}

func (s *fakeSession) HandleUserNotFound(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userNotFounds++
	s.authenticated = false
	return nil
}

type testFixture struct {
	clock       time.Time
	monitor     *lifecycle.Monitor
	session     *fakeSession
	nav         *navigation.Stack
	coordinator *reauth.Coordinator
	flow        *reauth.Flow
}

func setupTestFixture(t *testing.T, options ...reauth.FlowOption) *testFixture {
	t.Helper()
	f := &testFixture{
		clock:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		session: &fakeSession{authenticated: true},
		nav:     navigation.NewStack(navigation.RouteHome),
	}
	f.nav.Navigate("/transfer")
	f.monitor = lifecycle.NewMonitor(lifecycle.WithNowTime(func() time.Time { return f.clock }))
	f.coordinator = reauth.NewCoordinator(f.session, f.monitor, f.nav)
	f.flow = reauth.NewFlow(f.coordinator, options...)
	return f
}

// background leaves the app in the background for d and brings it back.
func (f *testFixture) background(d time.Duration) {
	f.monitor.HandleTransition(lifecycle.StateBackground)
	f.clock = f.clock.Add(d)
	f.monitor.HandleTransition(lifecycle.StateActive)
}

// drainSignals feeds pending monitor signals to the coordinator.
func (f *testFixture) drainSignals() {
	for {
		select {
		case <-f.monitor.Signals():
			f.coordinator.Prompt()
		default:
			return
		}
	}
}

func (f *testFixture) reauthNavigations() int {
	n := 0
	for _, r := range f.nav.History() {
		if r == navigation.RouteReauth {
			n++
		}
	}
	return n
}

func TestReauthAfterLongBackground(t *testing.T) {
	f := setupTestFixture(t)

	f.background(45 * time.Second)
	f.drainSignals()
	// Two foreground events within a second.
	f.clock = f.clock.Add(400 * time.Millisecond)
	f.monitor.HandleTransition(lifecycle.StateActive)
	f.coordinator.Prompt()
	f.drainSignals()

	require.Equal(t, navigation.RouteReauth, f.nav.CurrentRoute())
	require.Equal(t, 1, f.reauthNavigations())

	out, err := f.flow.Submit(context.Background(), correctPin)
	require.NoError(t, err)
	require.Equal(t, reauth.ResultSuccess, out.Result)
	require.False(t, f.monitor.NeedsReauth())
	require.False(t, f.coordinator.InFlight())
	require.Equal(t, "/transfer", f.nav.CurrentRoute())
	require.Equal(t, 1, f.reauthNavigations())
}

func TestShortBackgroundNoPrompt(t *testing.T) {
	f := setupTestFixture(t)

	f.background(10 * time.Second)
	f.drainSignals()

	require.Equal(t, "/transfer", f.nav.CurrentRoute())
	require.Zero(t, f.reauthNavigations())
}

func TestRapidSignalsNavigateOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.background(time.Minute)
	prompts := testutil.ToFloat64(metrics.ReauthPrompts)

	var wg sync.WaitGroup
	navigated := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			navigated <- f.coordinator.Prompt()
		}()
	}
	wg.Wait()
	close(navigated)

	count := 0
	for ok := range navigated {
		if ok {
			count++
		}
	}
	require.Equal(t, 1, count)
	require.Equal(t, 1, f.reauthNavigations())
	require.Equal(t, prompts+1, testutil.ToFloat64(metrics.ReauthPrompts))
}

func TestAnonymousSessionClearsFlag(t *testing.T) {
	f := setupTestFixture(t)
	f.session.authenticated = false

	f.background(time.Minute)
	f.drainSignals()

	require.False(t, f.monitor.NeedsReauth())
	require.Zero(t, f.reauthNavigations())
}

func TestWrongPinRetriesThenLocksOut(t *testing.T) {
	f := setupTestFixture(t, reauth.WithMaxAttempts(3))
	f.background(time.Minute)
	f.drainSignals()

	for i := 1; i <= 2; i++ {
		out, err := f.flow.Submit(context.Background(), "000000")
		require.NoError(t, err)
		require.Equal(t, reauth.ResultRetry, out.Result)
		require.Equal(t, 3-i, out.AttemptsLeft)
		require.Equal(t, "PIN does not match.", out.Message)
		require.Equal(t, navigation.RouteReauth, f.nav.CurrentRoute())
	}

	out, err := f.flow.Submit(context.Background(), "000000")
	require.NoError(t, err)
	require.Equal(t, reauth.ResultLockedOut, out.Result)
	require.Equal(t, 1, f.session.lockOuts)
	require.False(t, f.monitor.NeedsReauth())
	require.False(t, f.coordinator.InFlight())
	require.Zero(t, f.flow.Attempts())
}

func TestSuccessResetsAttempts(t *testing.T) {
	f := setupTestFixture(t, reauth.WithMaxAttempts(2))
	f.background(time.Minute)
	f.drainSignals()

	out, _ := f.flow.Submit(context.Background(), "000000")
	require.Equal(t, 1, out.AttemptsLeft)
	out, _ = f.flow.Submit(context.Background(), correctPin)
	require.Equal(t, reauth.ResultSuccess, out.Result)
	require.Zero(t, f.flow.Attempts())
}

func TestUnlimitedAttempts(t *testing.T) {
	f := setupTestFixture(t, reauth.WithMaxAttempts(0))
	for i := 0; i < 20; i++ {
		out, err := f.flow.Submit(context.Background(), "000000")
		require.NoError(t, err)
		require.Equal(t, reauth.ResultRetry, out.Result)
		require.Equal(t, -1, out.AttemptsLeft)
	}
	require.Zero(t, f.session.lockOuts)
}

func TestNetworkFailureDoesNotCountAsAttempt(t *testing.T) {
	f := setupTestFixture(t, reauth.WithMaxAttempts(1))
	f.session.loginErr = apperrors.New(apperrors.KindNetwork, "Network error. Check your connection and try again.", apperrors.ErrNetwork)

	out, err := f.flow.Submit(context.Background(), correctPin)
	require.NoError(t, err)
	require.Equal(t, reauth.ResultRetry, out.Result)
	require.Equal(t, "Network error. Check your connection and try again.", out.Message)
	require.Zero(t, f.flow.Attempts())
	require.Zero(t, f.session.lockOuts)
}

func TestUserNotFoundShowsDialogThenResets(t *testing.T) {
	var shown []string
	dialog := reauth.DialogFunc(func(_ context.Context, message string) {
		shown = append(shown, message)
	})
	f := setupTestFixture(t, reauth.WithDialog(dialog))
	f.background(time.Minute)
	f.drainSignals()
	f.session.loginErr = apperrors.New(apperrors.KindUserNotFound, "User not found.", apperrors.ErrUserNotFound)

	out, err := f.flow.Submit(context.Background(), correctPin)
	require.NoError(t, err)
	require.Equal(t, reauth.ResultUserNotFound, out.Result)
	require.Equal(t, []string{"User not found."}, shown)
	require.Equal(t, 1, f.session.userNotFounds)
	require.False(t, f.coordinator.InFlight())
	require.False(t, f.monitor.NeedsReauth())
}

func TestRunHandlesSignals(t *testing.T) {
	f := setupTestFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.coordinator.Run(ctx, f.monitor.Signals()) }()

	f.background(time.Minute)
	require.Eventually(t, func() bool {
		return f.nav.CurrentRoute() == navigation.RouteReauth
	}, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

type snapshotFeed chan sessions.Snapshot

func (s snapshotFeed) Subscribe() (<-chan sessions.Snapshot, func()) {
	return s, func() {}
}

func TestStalePromptIsReplaced(t *testing.T) {
	f := setupTestFixture(t)
	f.background(time.Minute)
	f.drainSignals()
	require.Equal(t, navigation.RouteReauth, f.nav.CurrentRoute())

	// Logged out and signed in again without the reauth screen finishing.
	f.nav.Replace(navigation.RouteSignIn)
	f.nav.Replace(navigation.RouteHome)
	require.True(t, f.coordinator.InFlight())

	f.background(5 * time.Minute)
	require.True(t, f.coordinator.Prompt())
	require.Equal(t, navigation.RouteReauth, f.nav.CurrentRoute())

	out, err := f.flow.Submit(context.Background(), correctPin)
	require.NoError(t, err)
	require.Equal(t, reauth.ResultSuccess, out.Result)
	require.Equal(t, navigation.RouteHome, f.nav.CurrentRoute())
	require.False(t, f.coordinator.InFlight())
}

func TestWatchDropsPromptOnLogout(t *testing.T) {
	f := setupTestFixture(t)
	feed := make(snapshotFeed)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.coordinator.Watch(ctx, feed) }()

	f.background(time.Minute)
	f.drainSignals()
	require.True(t, f.coordinator.InFlight())

	feed <- sessions.Snapshot{State: sessions.StateAuthenticated, IsAuthenticated: true}
	require.True(t, f.coordinator.InFlight())

	feed <- sessions.Snapshot{State: sessions.StateAnonymous, ResetReason: sessions.ReasonSessionExpired}
	require.Eventually(t, func() bool {
		return !f.coordinator.InFlight() && !f.monitor.NeedsReauth()
	}, time.Second, time.Millisecond)

	// A fresh long background prompts again after the next sign-in.
	f.nav.Replace(navigation.RouteHome)
	f.background(5 * time.Minute)
	f.drainSignals()
	require.Equal(t, navigation.RouteReauth, f.nav.CurrentRoute())
	require.Equal(t, 2, f.reauthNavigations())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
