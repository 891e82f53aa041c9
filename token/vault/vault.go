// Package vault is the encrypted on-device key/value storage backing the token store.
package vault

import (
	"context"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = apperrors.ErrNotFound

// Vault stores opaque secrets keyed by fixed identifiers.
// Implementations must be safe for concurrent use and atomic per key.
type Vault interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete succeeds when the key does not exist.
	Delete(ctx context.Context, key string) error
}
