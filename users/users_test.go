package users_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePin(t *testing.T) {
	require.NoError(t, users.ValidatePin("123456"))
	for _, pin := range []string{"", "12345", "1234567", "12a456", "１２３４５６"} {
		err := users.ValidatePin(pin)
		require.ErrorIs(t, err, apperrors.ErrInvalidPin, pin)
		require.True(t, apperrors.IsKind(err, apperrors.KindAuthValidation))
	}
}

func TestValidatePinConfirmation(t *testing.T) {
	require.NoError(t, users.ValidatePinConfirmation("123456", "123456"))
	require.ErrorIs(t, users.ValidatePinConfirmation("123456", "123457"), apperrors.ErrPinMismatch)
	require.ErrorIs(t, users.ValidatePinConfirmation("12345", "12345"), apperrors.ErrInvalidPin)
}

func TestPinHash(t *testing.T) {
	hash, err := users.HashPin("123456")
	require.NoError(t, err)

	u := &users.AuthUser{PinHash: hash}
	require.True(t, u.CheckPin("123456"))
	require.False(t, u.CheckPin("000000"))
	require.False(t, (&users.AuthUser{}).CheckPin("123456"))
}

func TestFileRepo(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := users.NewFileRepo(dir)
	require.NoError(t, err)

	_, err = repo.Get(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotRegistered)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &users.AuthUser{
		ID:                 "u-1",
		PhoneNumber:        "01012345678",
		RegistrationStatus: users.StatusRegistered,
		DeviceID:           users.NewDeviceID(),
		RegisteredAt:       now,
	}
	require.NoError(t, repo.Save(ctx, u))

	info, err := os.Stat(filepath.Join(dir, "profile.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := users.NewFileRepo(dir)
	require.NoError(t, err)
	got, err := reopened.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, u, got)
	require.True(t, got.Registered())

	require.NoError(t, repo.Clear(ctx))
	require.NoError(t, repo.Clear(ctx))
	_, err = repo.Get(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotRegistered)
}

func TestFileRepoCorruptProfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile.json"), []byte("{"), 0o600))
	repo, err := users.NewFileRepo(dir)
	require.NoError(t, err)

	_, err = repo.Get(context.Background())
	require.True(t, apperrors.IsKind(err, apperrors.KindStorage))
}
