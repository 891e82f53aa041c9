package token_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/token"
	"github.com/Team-SSOK/ssok-auth-client/token/vault"
	"github.com/Team-SSOK/ssok-auth-client/token/vault/vaultfake"
	"github.com/stretchr/testify/require"
)

const (
	accessKey  = "ssok.accessToken"
	refreshKey = "ssok.refreshToken"
)

func TestSecureStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := token.NewSecureStore(vaultfake.New())

	pairs := []token.Pair{
		{AccessToken: "a1", RefreshToken: "r1"},
		{AccessToken: "eyJ.long.access", RefreshToken: "0f0f0f"},
	}
	for _, p := range pairs {
		require.NoError(t, store.Save(ctx, p))
		got, err := store.Tokens(ctx)
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
}

func TestSecureStoreClear(t *testing.T) {
	ctx := context.Background()
	v := vaultfake.New()
	store := token.NewSecureStore(v)

	require.NoError(t, store.Save(ctx, token.Pair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, store.Clear(ctx))

	got, err := store.Tokens(ctx)
	require.NoError(t, err)
	require.True(t, got.Empty())
	require.False(t, v.Has(accessKey))
	require.False(t, v.Has(refreshKey))
}

func TestSecureStoreRejectsIncompletePair(t *testing.T) {
	err := token.NewSecureStore(vaultfake.New()).Save(context.Background(), token.Pair{AccessToken: "a"})
	require.True(t, apperrors.IsKind(err, apperrors.KindStorage))
	require.ErrorIs(t, err, apperrors.ErrInvalidTokenPair)
}

func TestSecureStorePartialWriteIsRolledBack(t *testing.T) {
	ctx := context.Background()
	v := vaultfake.New()
	store := token.NewSecureStore(v)
	require.NoError(t, store.Save(ctx, token.Pair{AccessToken: "old-a", RefreshToken: "old-r"}))

	v.FailPut(refreshKey, errors.New("keychain locked"))
	err := store.Save(ctx, token.Pair{AccessToken: "new-a", RefreshToken: "new-r"})
	require.True(t, apperrors.IsKind(err, apperrors.KindStorage))

	got, err := store.Tokens(ctx)
	require.NoError(t, err)
	require.True(t, got.Empty(), "a half-written pair must not be observable")
	require.False(t, v.Has(accessKey))
}

func TestSecureStoreHalfPairReadsAsEmpty(t *testing.T) {
	v := vaultfake.New()
	v.Set(accessKey, "orphan")
	got, err := token.NewSecureStore(v).Tokens(context.Background())
	require.NoError(t, err)
	require.True(t, got.Empty())
}

func TestSecureStoreReadFailure(t *testing.T) {
	v := vaultfake.New()
	v.Set(accessKey, "a")
	v.Set(refreshKey, "r")
	v.FailGet(accessKey, errors.New("io"))

	_, err := token.NewSecureStore(v).Tokens(context.Background())
	require.True(t, apperrors.IsKind(err, apperrors.KindStorage))
	require.NotEmpty(t, apperrors.UserMessage(err))
}

func TestSecureStoreClearFailure(t *testing.T) {
	v := vaultfake.New()
	v.FailDelete(refreshKey, errors.New("io"))
	err := token.NewSecureStore(v).Clear(context.Background())
	require.True(t, apperrors.IsKind(err, apperrors.KindStorage))
}

func TestSecureStoreKeyPrefix(t *testing.T) {
	v := vaultfake.New()
	store := token.NewSecureStore(v, token.WithKeyPrefix("bank"))
	access, refresh := store.Keys()
	require.Equal(t, "bank.accessToken", access)
	require.Equal(t, "bank.refreshToken", refresh)

	require.NoError(t, store.Save(context.Background(), token.Pair{AccessToken: "a", RefreshToken: "r"}))
	require.True(t, v.Has("bank.accessToken"))
}

func TestSecureStoreConcurrentReadersSeeWholePairs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fv, err := vault.NewFileVault(dir, []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	store := token.NewSecureStore(fv)
	require.NoError(t, store.Save(ctx, token.Pair{AccessToken: "a0", RefreshToken: "r0"}))

	valid := map[token.Pair]bool{
		{AccessToken: "a0", RefreshToken: "r0"}: true,
		{AccessToken: "a1", RefreshToken: "r1"}: true,
		{AccessToken: "a2", RefreshToken: "r2"}: true,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			p := token.Pair{AccessToken: "a1", RefreshToken: "r1"}
			if i%2 == 0 {
				p = token.Pair{AccessToken: "a2", RefreshToken: "r2"}
			}
			_ = store.Save(ctx, p)
		}
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				p, err := store.Tokens(ctx)
				if err != nil {
					continue
				}
				if !valid[p] {
					t.Errorf("observed mixed pair %+v", p)
				}
			}
		}()
	}
	wg.Wait()
}
