package token

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/token/vault"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Store owns the persisted token pair. Every failure is returned as a
// KindStorage error; callers decide what the user sees.
type Store interface {
	Tokens(ctx context.Context) (Pair, error)
	Save(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}

const (
	accessKeySuffix  = ".accessToken"
	refreshKeySuffix = ".refreshToken"
)

var _ Store = (*SecureStore)(nil)

// SecureStore keeps the pair as two vault entries. Both halves are written
// and read concurrently and reported jointly, and the lock keeps readers
// from observing a pair that is half written.
type SecureStore struct {
	vault      vault.Vault
	accessKey  string
	refreshKey string
	mu         sync.RWMutex
	log        zerolog.Logger
}

type SecureStoreOption func(*SecureStore)

func WithKeyPrefix(prefix string) SecureStoreOption {
	return func(s *SecureStore) {
		if prefix != "" {
			s.accessKey = prefix + accessKeySuffix
			s.refreshKey = prefix + refreshKeySuffix
		}
	}
}

func WithStoreLogger(l zerolog.Logger) SecureStoreOption {
	return func(s *SecureStore) {
		s.log = l
	}
}

func NewSecureStore(v vault.Vault, options ...SecureStoreOption) *SecureStore {
	s := &SecureStore{
		vault:      v,
		accessKey:  "ssok" + accessKeySuffix,
		refreshKey: "ssok" + refreshKeySuffix,
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Keys returns the vault identifiers of the access and refresh token.
func (s *SecureStore) Keys() (access, refresh string) {
	return s.accessKey, s.refreshKey
}

// Tokens returns the stored pair. A pair with a missing half is reported as empty.
func (s *SecureStore) Tokens(ctx context.Context) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var access, refresh []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.get(gctx, s.accessKey)
		access = v
		return err
	})
	g.Go(func() error {
		v, err := s.get(gctx, s.refreshKey)
		refresh = v
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("Failed to read tokens from secure storage")
		return Pair{}, apperrors.Storage("read tokens", err)
	}

	pair := Pair{AccessToken: string(access), RefreshToken: string(refresh)}
	if !pair.Complete() {
		if !pair.Empty() {
			s.log.Warn().Msg("Discarding incomplete token pair")
		}
		return Pair{}, nil
	}
	return pair, nil
}

// Save persists both tokens. If either write fails both keys are removed
// so the previous pair cannot be mixed with half of the new one.
func (s *SecureStore) Save(ctx context.Context, pair Pair) error {
	if !pair.Complete() {
		return apperrors.Storage("save tokens", apperrors.ErrInvalidTokenPair)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.vault.Put(gctx, s.accessKey, []byte(pair.AccessToken))
	})
	g.Go(func() error {
		return s.vault.Put(gctx, s.refreshKey, []byte(pair.RefreshToken))
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("Failed to save tokens, rolling back")
		if rbErr := s.deleteBoth(context.WithoutCancel(ctx)); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("Token rollback failed")
		}
		return apperrors.Storage("save tokens", err)
	}

	s.log.Debug().Str("access_fp", pair.Fingerprint()).Msg("Tokens saved")
	return nil
}

// Clear removes both tokens.
func (s *SecureStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteBoth(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear tokens")
		return apperrors.Storage("clear tokens", err)
	}
	return nil
}

func (s *SecureStore) deleteBoth(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.vault.Delete(gctx, s.accessKey)
	})
	g.Go(func() error {
		return s.vault.Delete(gctx, s.refreshKey)
	})
	return g.Wait()
}

func (s *SecureStore) get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.vault.Get(ctx, key)
	if errors.Is(err, vault.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
