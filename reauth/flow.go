package reauth

import (
	"context"
	"sync"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts = 5
	msgLockedOut       = "Too many incorrect PIN attempts. Please sign in again."
)

type Result string

const (
	ResultSuccess      Result = "success"
	ResultRetry        Result = "retry"
	ResultLockedOut    Result = "locked_out"
	ResultUserNotFound Result = "user_not_found"
)

// Outcome tells the PIN screen what to do next.
type Outcome struct {
	Result Result
	// AttemptsLeft is -1 when attempts are unlimited.
	AttemptsLeft int
	Message      string
}

// Dialog shows the explanation before a deleted user is sent back to onboarding.
// ShowUserNotFound returns once the user acknowledged it.
type Dialog interface {
	ShowUserNotFound(ctx context.Context, message string)
}

type DialogFunc func(ctx context.Context, message string)

func (f DialogFunc) ShowUserNotFound(ctx context.Context, message string) {
	f(ctx, message)
}

// Flow is the controller behind the reauth PIN screen.
type Flow struct {
	coordinator *Coordinator
	session     Session
	dialog      Dialog
	maxAttempts int
	log         zerolog.Logger

	mu       sync.Mutex
	attempts int
}

type FlowOption func(*Flow)

// WithMaxAttempts sets how many wrong PINs end the session. 0 disables the lockout.
func WithMaxAttempts(n int) FlowOption {
	return func(f *Flow) {
		if n >= 0 {
			f.maxAttempts = n
		}
	}
}

func WithDialog(d Dialog) FlowOption {
	return func(f *Flow) {
		if d != nil {
			f.dialog = d
		}
	}
}

func WithFlowLogger(l zerolog.Logger) FlowOption {
	return func(f *Flow) {
		f.log = l
	}
}

func NewFlow(coordinator *Coordinator, options ...FlowOption) *Flow {
	f := &Flow{
		coordinator: coordinator,
		session:     coordinator.session,
		maxAttempts: DefaultMaxAttempts,
		log:         log.Logger,
	}
	for _, opt := range options {
		opt(f)
	}
	if f.dialog == nil {
		f.dialog = DialogFunc(func(_ context.Context, message string) {
			f.log.Warn().Str("message", message).Msg("User not found")
		})
	}
	return f
}

// Submit checks pin through the session manager. The error is only non-nil
// when the local reset after a lockout or a deleted user failed.
func (f *Flow) Submit(ctx context.Context, pin string) (Outcome, error) {
	err := f.session.LoginWithPin(ctx, pin)
	switch {
	case err == nil:
		f.resetAttempts()
		f.coordinator.complete()
		f.log.Info().Msg("Reauthenticated")
		return Outcome{Result: ResultSuccess, AttemptsLeft: f.attemptsLeft(0)}, nil

	case apperrors.IsKind(err, apperrors.KindUserNotFound):
		msg := apperrors.UserMessage(err)
		f.dialog.ShowUserNotFound(ctx, msg)
		resetErr := f.session.HandleUserNotFound(ctx)
		f.resetAttempts()
		f.coordinator.abandon()
		return Outcome{Result: ResultUserNotFound, Message: msg}, resetErr

	case apperrors.IsKind(err, apperrors.KindAuthValidation):
		attempts := f.countFailure()
		if f.maxAttempts > 0 && attempts >= f.maxAttempts {
			f.log.Warn().Int("attempts", attempts).Msg("Too many wrong PINs, locking out")
			lockErr := f.session.LockOut(ctx)
			f.resetAttempts()
			f.coordinator.abandon()
			return Outcome{Result: ResultLockedOut, Message: msgLockedOut}, lockErr
		}
		return Outcome{Result: ResultRetry, AttemptsLeft: f.attemptsLeft(attempts), Message: apperrors.UserMessage(err)}, nil

	default:
		// Network and storage failures are not the user's fault and do not count as attempts.
		f.log.Warn().Err(err).Msg("Reauth attempt failed")
		return Outcome{Result: ResultRetry, AttemptsLeft: f.attemptsLeft(f.currentAttempts()), Message: apperrors.UserMessage(err)}, nil
	}
}

// Attempts returns the number of wrong PINs entered since the last success.
func (f *Flow) Attempts() int {
	return f.currentAttempts()
}

func (f *Flow) attemptsLeft(attempts int) int {
	if f.maxAttempts == 0 {
		return -1
	}
	return f.maxAttempts - attempts
}

func (f *Flow) countFailure() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return f.attempts
}

func (f *Flow) currentAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *Flow) resetAttempts() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = 0
}
