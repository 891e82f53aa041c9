package sessions

import "github.com/Team-SSOK/ssok-auth-client/users"

type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateError          State = "error"
)

// ResetReason records why the session last left the authenticated state.
type ResetReason string

const (
	ReasonNone           ResetReason = "none"
	ReasonLogout         ResetReason = "logout"
	ReasonSessionExpired ResetReason = "session_expired"
	ReasonUserNotFound   ResetReason = "user_not_found"
	ReasonLockedOut      ResetReason = "locked_out"
)

// Snapshot is an immutable view of the session handed to observers.
type Snapshot struct {
	State           State
	IsAuthenticated bool
	IsLoading       bool
	Error           string          // User facing message of the last failure, empty when none
	User            *users.AuthUser // Cached identity, nil once logged out
	ResetReason     ResetReason
}

func (s Snapshot) clone() Snapshot {
	s.User = s.User.Clone()
	return s
}
