package users

import "context"

// Repo persists the single AuthUser registered on this device.
type Repo interface {
	// Get returns the cached user or apperrors.ErrNotRegistered.
	Get(ctx context.Context) (*AuthUser, error)
	Save(ctx context.Context, user *AuthUser) error
	// Clear forgets the user and registration status.
	Clear(ctx context.Context) error
}
