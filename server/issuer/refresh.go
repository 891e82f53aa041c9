package issuer

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const refreshTokenLength = 32

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// StoredRefreshToken is the server-side record behind an opaque refresh token.
type StoredRefreshToken struct {
	Token  string    // The random token string sent to the client
	UserID string    // Owner
	Iat    time.Time // Issued at
}

// RefreshRepo stores refresh tokens keyed by the token string.
type RefreshRepo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByUserID(userID string) (*StoredRefreshToken, error)
}

// RefreshManager handles refresh token creation, validation, and rotation.
// Each user holds at most one refresh token.
type RefreshManager struct {
	repo RefreshRepo
	ttl  time.Duration
}

func NewRefreshManager(repo RefreshRepo, ttl time.Duration) *RefreshManager {
	return &RefreshManager{repo: repo, ttl: ttl}
}

// Create generates a new refresh token for userID, replacing any previous one.
func (m *RefreshManager) Create(userID string) (string, error) {
	if err := m.Revoke(userID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Rotate consumes token and returns its owner with a replacement token.
func (m *RefreshManager) Rotate(token string) (userID, next string, err error) {
	rt, err := m.repo.Get(token)
	if err != nil || rt == nil {
		return "", "", ErrRefreshTokenNotFound
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return "", "", fmt.Errorf("%w: expired", ErrRefreshTokenNotFound)
	}
	next, err = m.Create(rt.UserID)
	if err != nil {
		return "", "", err
	}
	return rt.UserID, next, nil
}

// Revoke deletes the refresh token of userID, if any.
func (m *RefreshManager) Revoke(userID string) error {
	existing, err := m.repo.GetByUserID(userID)
	if err != nil || existing == nil {
		return nil
	}
	if err := m.repo.Delete(existing.Token); err != nil {
		return fmt.Errorf("failed to delete existing refresh token: %w", err)
	}
	return nil
}

func (m *RefreshManager) IsExpired(rt *StoredRefreshToken) bool {
	return m.ttl > 0 && NowTimeFunc().Sub(rt.Iat) > m.ttl
}
