package sessions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/internal/logging"
	"github.com/Team-SSOK/ssok-auth-client/internal/metrics"
	"github.com/Team-SSOK/ssok-auth-client/token"
	"github.com/Team-SSOK/ssok-auth-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	pushRegistrationTimeout = 10 * time.Second

	msgSessionExpired = "Your session has expired. Please sign in again."
)

// API is the part of the backend the session manager drives.
type API interface {
	Login(ctx context.Context, userID, pin string) (token.Pair, error)
	Register(ctx context.Context, phone, username, pin, deviceID string) (string, error)
	ResetPin(ctx context.Context, userID, pin string) error
	RegisterPushToken(ctx context.Context, pushToken string) error
}

// PushTokenSource returns the device push token registered after each login.
type PushTokenSource func(ctx context.Context) (string, error)

// Deps holds the collaborators of the Manager.
type Deps struct {
	Tokens token.Store // Persisted token pair
	Users  users.Repo  // Cached profile and registration status
	API    API         // Backend endpoints
}

// Manager is the session state machine. A single instance is created at
// start-up and passed to everything that needs the session.
type Manager struct {
	deps          Deps
	notifier      Notifier
	pushToken     PushTokenSource
	localPinCheck bool
	nowTime       func() time.Time
	log           zerolog.Logger

	// ops serialises operations that move the session between states.
	ops sync.Mutex
	// tokensMu orders the token writes of a login against ForceLogout.
	tokensMu sync.Mutex

	mu      sync.Mutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int

	background sync.WaitGroup
}

type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = l
	}
}

// WithLocalPinCheck rejects a PIN that does not match the cached hash before calling the backend.
func WithLocalPinCheck(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.localPinCheck = enabled
	}
}

func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithPushTokenSource enables push-token registration after every successful login.
func WithPushTokenSource(src PushTokenSource) ManagerOption {
	return func(m *Manager) {
		m.pushToken = src
	}
}

func NewManager(deps Deps, options ...ManagerOption) (*Manager, error) {
	if deps.Tokens == nil {
		return nil, errors.New("[NewManager] token store is required")
	}
	if deps.Users == nil {
		return nil, errors.New("[NewManager] users repo is required")
	}
	if deps.API == nil {
		return nil, errors.New("[NewManager] API is required")
	}

	m := &Manager{
		deps:    deps,
		nowTime: time.Now,
		log:     log.Logger,
		snap:    Snapshot{State: StateAnonymous, ResetReason: ReasonNone, IsLoading: true},
		subs:    make(map[int]chan Snapshot),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = logNotifier{log: m.log}
	}
	return m, nil
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone()
}

// Subscribe returns a channel receiving the current snapshot followed by every
// change. Slow readers only see the latest snapshot. cancel closes the channel.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snap.clone()
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Initialize restores the session persisted by a previous run. Callers keep
// protected routes hidden while Snapshot().IsLoading is true.
func (m *Manager) Initialize(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	m.update(func(s *Snapshot) {
		s.IsLoading = true
	})

	user, err := m.deps.Users.Get(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrNotRegistered) {
		m.storageFailed(ctx, err)
		m.update(func(s *Snapshot) {
			*s = Snapshot{State: StateAnonymous, ResetReason: ReasonNone, Error: apperrors.UserMessage(err)}
		})
		return err
	}

	pair, err := m.deps.Tokens.Tokens(ctx)
	if err != nil {
		m.storageFailed(ctx, err)
		m.update(func(s *Snapshot) {
			*s = Snapshot{State: StateAnonymous, ResetReason: ReasonNone, User: user, Error: apperrors.UserMessage(err)}
		})
		return err
	}

	if !user.Registered() {
		if pair.Complete() {
			// Tokens without a registered user cannot be used for PIN logins.
			m.log.Warn().Str("access_fp", pair.Fingerprint()).Msg("Discarding tokens of an unregistered device")
			if err := m.deps.Tokens.Clear(ctx); err != nil {
				m.log.Err(err).Msg("Failed to discard orphaned tokens")
			}
		}
		m.update(func(s *Snapshot) {
			*s = Snapshot{State: StateAnonymous, ResetReason: ReasonNone}
		})
		m.log.Info().Msg("No registered user, session is anonymous")
		return nil
	}

	if !pair.Complete() {
		m.update(func(s *Snapshot) {
			*s = Snapshot{State: StateAnonymous, ResetReason: ReasonNone, User: user}
		})
		m.log.Info().Str("user_id", user.ID).Msg("Registered user without tokens, PIN login required")
		return nil
	}

	now := m.nowTime()
	if exp, ok := pair.RefreshExpiresAt(); ok && !exp.After(now) {
		m.log.Warn().Str("user_id", user.ID).Time("refresh_exp", exp).Msg("Stored refresh token has expired, PIN login required")
		if err := m.deps.Tokens.Clear(ctx); err != nil {
			m.storageFailed(ctx, err)
		}
		m.update(func(s *Snapshot) {
			*s = Snapshot{State: StateAnonymous, ResetReason: ReasonSessionExpired, User: user, Error: msgSessionExpired}
		})
		return nil
	}
	if claims, err := pair.Claims(); err == nil && !claims.ExpiresAt.IsZero() && !claims.ExpiresAt.After(now) {
		m.log.Warn().Str("user_id", user.ID).Time("access_exp", claims.ExpiresAt).Msg("Restored access token has expired, first request will refresh it")
	}

	m.update(func(s *Snapshot) {
		*s = Snapshot{State: StateAuthenticated, ResetReason: ReasonNone, User: user}
	})
	m.log.Info().Str("user_id", user.ID).Str("access_fp", pair.Fingerprint()).Msg("Session restored")
	return nil
}

// LoginWithPin authenticates the registered user with pin. While already
// authenticated (reauthentication) the session stays authenticated on failure.
func (m *Manager) LoginWithPin(ctx context.Context, pin string) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	if err := users.ValidatePin(pin); err != nil {
		return m.loginFailed(err)
	}

	user, err := m.deps.Users.Get(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotRegistered) {
			return m.loginFailed(apperrors.New(apperrors.KindAuthValidation, "Please register before signing in.", err))
		}
		m.storageFailed(ctx, err)
		return m.loginFailed(err)
	}
	if !user.Registered() {
		return m.loginFailed(apperrors.New(apperrors.KindAuthValidation, "Please register before signing in.", apperrors.ErrNotRegistered))
	}

	if m.localPinCheck && user.PinHash != "" && !user.CheckPin(pin) {
		return m.loginFailed(apperrors.New(apperrors.KindAuthValidation, "PIN does not match.", apperrors.ErrInvalidPin))
	}

	m.update(func(s *Snapshot) {
		if !s.IsAuthenticated {
			s.State = StateAuthenticating
		}
		s.IsLoading = true
		s.Error = ""
	})

	pair, err := m.deps.API.Login(ctx, user.ID, pin)
	if err != nil {
		return m.loginFailed(err)
	}
	m.tokensMu.Lock()
	if err := m.deps.Tokens.Save(ctx, pair); err != nil {
		m.tokensMu.Unlock()
		m.storageFailed(ctx, err)
		return m.loginFailed(err)
	}

	user.LastLoginAt = m.nowTime()
	if hash, err := users.HashPin(pin); err == nil {
		user.PinHash = hash
	}
	if err := m.deps.Users.Save(ctx, user); err != nil {
		// The tokens are saved; a stale profile only affects the local PIN check.
		m.log.Warn().Err(err).Msg("Failed to update cached profile after login")
	}

	m.update(func(s *Snapshot) {
		*s = Snapshot{State: StateAuthenticated, ResetReason: ReasonNone, User: user}
	})
	m.tokensMu.Unlock()
	m.log.Info().Str("user_id", user.ID).Str("access_fp", pair.Fingerprint()).Msg("Logged in with PIN")

	m.registerPushToken(ctx)
	return nil
}

// Register signs the device up and caches the new identity. It does not log in.
func (m *Manager) Register(ctx context.Context, phone, username, pin, confirm string) (*users.AuthUser, error) {
	m.ops.Lock()
	defer m.ops.Unlock()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperrors.New(apperrors.KindAuthValidation, "Phone number is required.", apperrors.ErrInvalidInput)
	}
	if err := users.ValidatePinConfirmation(pin, confirm); err != nil {
		return nil, err
	}

	deviceID := users.NewDeviceID()
	if existing, err := m.deps.Users.Get(ctx); err == nil && existing.DeviceID != "" {
		deviceID = existing.DeviceID
	}

	m.setLoading(true)
	defer m.setLoading(false)

	id, err := m.deps.API.Register(ctx, phone, username, pin, deviceID)
	if err != nil {
		m.log.Warn().Err(err).Str("phone", logging.MaskPhone(phone)).Msg("Registration failed")
		return nil, err
	}

	hash, err := users.HashPin(pin)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager.Register] hash pin")
	}
	user := &users.AuthUser{
		ID:                 id,
		PhoneNumber:        phone,
		Username:           username,
		PinHash:            hash,
		RegistrationStatus: users.StatusRegistered,
		DeviceID:           deviceID,
		RegisteredAt:       m.nowTime(),
	}
	if err := m.deps.Users.Save(ctx, user); err != nil {
		m.storageFailed(ctx, err)
		return nil, err
	}

	m.update(func(s *Snapshot) {
		s.User = user
		s.Error = ""
	})
	m.log.Info().Str("user_id", id).Str("phone", logging.MaskPhone(phone)).Msg("Device registered")
	return user.Clone(), nil
}

// ResetPin replaces the PIN of userID (the cached user when empty) on the
// backend. The authentication state is left as it is.
func (m *Manager) ResetPin(ctx context.Context, userID, pin, confirm string) error {
	if err := users.ValidatePinConfirmation(pin, confirm); err != nil {
		return err
	}

	cached, err := m.deps.Users.Get(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrNotRegistered) {
		m.storageFailed(ctx, err)
		return err
	}
	if userID == "" {
		if cached == nil {
			return apperrors.New(apperrors.KindAuthValidation, "Please register before resetting your PIN.", apperrors.ErrNotRegistered)
		}
		userID = cached.ID
	}

	if err := m.deps.API.ResetPin(ctx, userID, pin); err != nil {
		return err
	}

	if cached != nil && cached.ID == userID {
		if hash, err := users.HashPin(pin); err == nil {
			cached.PinHash = hash
			if err := m.deps.Users.Save(ctx, cached); err != nil {
				m.log.Warn().Err(err).Msg("Failed to cache reset PIN")
			}
		}
	}
	m.log.Info().Str("user_id", userID).Msg("PIN reset")
	return nil
}

// Logout clears the tokens and the in-memory user. The device stays registered.
func (m *Manager) Logout(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()
	return m.reset(ctx, ReasonLogout, "")
}

// LockOut ends the session after too many wrong PINs.
func (m *Manager) LockOut(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()
	m.log.Warn().Err(apperrors.ErrTooManyAttempts).Msg("Locking session")
	return m.reset(ctx, ReasonLockedOut, "Too many incorrect PIN attempts. Please sign in again.")
}

// ForceLogout ends an authenticated session whose tokens can no longer be
// refreshed. It matches httpclient.AuthFailureHandler and may be called from
// inside an in-flight request, so it does not wait for other operations.
// staleAccess is the access token the failed request carried; a session
// that has since stored a different one is left alone.
func (m *Manager) ForceLogout(ctx context.Context, staleAccess string, cause error) {
	m.tokensMu.Lock()
	defer m.tokensMu.Unlock()

	if staleAccess != "" {
		pair, err := m.deps.Tokens.Tokens(ctx)
		if err == nil && pair.AccessToken != "" && pair.AccessToken != staleAccess {
			m.log.Info().Str("access_fp", pair.Fingerprint()).Msg("Ignoring refresh failure of a replaced session")
			return
		}
	}

	m.mu.Lock()
	if m.snap.State != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	m.setLocked(Snapshot{State: StateAnonymous, ResetReason: ReasonSessionExpired, Error: apperrors.UserMessage(cause)})
	m.mu.Unlock()

	m.log.Warn().Err(cause).Msg("Session expired, logging out")
	if err := m.deps.Tokens.Clear(ctx); err != nil {
		m.storageFailed(ctx, err)
	}
}

// HandleUserNotFound resets everything the device knows about the user so
// onboarding can start over. Unlike Logout it also drops the registration.
func (m *Manager) HandleUserNotFound(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	var errs []error
	if err := m.deps.Tokens.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.deps.Users.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err != nil {
		m.storageFailed(ctx, err)
	}

	m.update(func(s *Snapshot) {
		*s = Snapshot{State: StateAnonymous, ResetReason: ReasonUserNotFound}
	})
	m.log.Warn().Msg("User no longer exists on the backend, local data reset")
	return err
}

// Wait blocks until background push-token registrations have finished.
func (m *Manager) Wait() {
	m.background.Wait()
}

func (m *Manager) reset(ctx context.Context, reason ResetReason, message string) error {
	err := m.deps.Tokens.Clear(ctx)
	if err != nil {
		m.storageFailed(ctx, err)
	}
	m.update(func(s *Snapshot) {
		*s = Snapshot{State: StateAnonymous, ResetReason: reason, Error: message}
	})
	m.log.Info().Str("reason", string(reason)).Msg("Logged out")
	return err
}

func (m *Manager) loginFailed(err error) error {
	if apperrors.IsKind(err, apperrors.KindAuthValidation) &&
		(errors.Is(err, apperrors.ErrInvalidPin) || errors.Is(err, apperrors.ErrLoginRejected)) {
		metrics.PinFailures.Inc()
	}
	m.update(func(s *Snapshot) {
		if !s.IsAuthenticated {
			s.State = StateError
		}
		s.IsLoading = false
		s.Error = apperrors.UserMessage(err)
	})
	m.log.Info().Err(err).Str("kind", string(apperrors.KindOf(err))).Msg("PIN login failed")
	return err
}

func (m *Manager) registerPushToken(ctx context.Context) {
	if m.pushToken == nil {
		return
	}
	m.background.Add(1)
	go func() {
		defer m.background.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushRegistrationTimeout)
		defer cancel()

		pushToken, err := m.pushToken(pctx)
		if err != nil || pushToken == "" {
			m.log.Debug().Err(err).Msg("No push token to register")
			return
		}
		err = m.deps.API.RegisterPushToken(pctx, pushToken)
		switch {
		case err == nil:
			m.log.Debug().Msg("Push token registered")
		case apperrors.IsKind(err, apperrors.KindSoftNoRefresh):
			m.log.Info().Err(err).Msg("Push token registration skipped")
		default:
			m.log.Warn().Err(err).Msg("Push token registration failed")
		}
	}()
}

func (m *Manager) storageFailed(ctx context.Context, err error) {
	m.log.Err(err).Msg("Secure storage failure")
	m.notifier.Notify(ctx, apperrors.UserMessage(err))
}

func (m *Manager) setLoading(loading bool) {
	m.update(func(s *Snapshot) {
		s.IsLoading = loading
	})
}

func (m *Manager) update(fn func(s *Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.snap
	fn(&next)
	m.setLocked(next)
}

// setLocked stores next and publishes it. m.mu must be held.
func (m *Manager) setLocked(next Snapshot) {
	next.IsAuthenticated = next.State == StateAuthenticated
	if next.ResetReason == "" {
		next.ResetReason = ReasonNone
	}
	next.User = next.User.Clone()
	m.snap = next
	for _, ch := range m.subs {
		publish(ch, next.clone())
	}
}

// publish replaces whatever the subscriber has not read yet with s.
func publish(ch chan Snapshot, s Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
