package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the session client
var (
	// Token errors
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrTokenRefreshFailed  = errors.New("token refresh failed")
	ErrInvalidTokenPair    = errors.New("invalid token pair")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRefreshUnauthorized = errors.New("refresh token rejected")

	// Authentication errors
	ErrInvalidPin       = errors.New("invalid pin")
	ErrPinMismatch      = errors.New("pin confirmation does not match")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotRegistered    = errors.New("user is not registered on this device")
	ErrLoginRejected    = errors.New("login rejected")
	ErrTooManyAttempts  = errors.New("too many pin attempts")
	ErrNotAuthenticated = errors.New("not authenticated")

	// Storage errors
	ErrNotFound       = errors.New("not found")
	ErrStorageFailure = errors.New("secure storage failure")

	// General errors
	ErrNetwork         = errors.New("network failure")
	ErrInvalidResponse = errors.New("invalid response")
	ErrInvalidInput    = errors.New("invalid input")
)

// Kind classifies a failure for the caller deciding how to recover from it.
type Kind string

const (
	KindStorage        Kind = "storage"
	KindTokenRefresh   Kind = "token_refresh"
	KindAuthValidation Kind = "auth_validation"
	KindUserNotFound   Kind = "user_not_found"
	KindNetwork        Kind = "network"
	// KindSoftNoRefresh marks a refresh failure on a non-critical call. Callers continue their flow.
	KindSoftNoRefresh Kind = "soft_no_refresh"
)

// Error is a typed failure crossing a component boundary. Message is the
// user-facing text; Err keeps the internal cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed error.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Storage wraps a secure-store failure.
func Storage(op string, err error) *Error {
	return &Error{
		Kind:    KindStorage,
		Message: "Secure storage is unavailable. Please try again.",
		Err:     fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err),
	}
}

// KindOf returns the kind of the first typed error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the human readable text for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong. Please try again."
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

