package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
)

const profileFile = "profile.json"

var _ Repo = (*FileRepo)(nil)

// FileRepo keeps the profile as JSON in the data folder.
type FileRepo struct {
	mu   sync.RWMutex
	path string
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	return &FileRepo{path: filepath.Join(dataDir, profileFile)}, nil
}

func (r *FileRepo) Get(_ context.Context) (*AuthUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.ErrNotRegistered
		}
		return nil, apperrors.Storage("read profile", err)
	}
	var u AuthUser
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, apperrors.Storage("decode profile", err)
	}
	if u.ID == "" {
		return nil, apperrors.ErrNotRegistered
	}
	return &u, nil
}

func (r *FileRepo) Save(_ context.Context, user *AuthUser) error {
	if user == nil {
		return apperrors.Storage("save profile", errors.New("nil user"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return apperrors.Storage("encode profile", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return apperrors.Storage("save profile", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.Storage("save profile", fmt.Errorf("rename: %w", err))
	}
	return nil
}

func (r *FileRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Storage("clear profile", err)
	}
	return nil
}
