package issuer_test

import (
	"testing"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/server/issuer"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, now time.Time) *time.Time {
	t.Helper()
	current := now
	prev := issuer.NowTimeFunc
	issuer.NowTimeFunc = func() time.Time { return current }
	t.Cleanup(func() { issuer.NowTimeFunc = prev })
	return &current
}

func TestAccessTokenRoundTrip(t *testing.T) {
	now := fixedNow(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	a := issuer.NewAccessIssuer(issuer.NewHMACSigner("secret"), time.Minute)

	tok, err := a.Issue("user-1")
	require.NoError(t, err)

	sub, err := a.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)

	*now = now.Add(2 * time.Minute)
	_, err = a.Verify(tok)
	require.ErrorIs(t, err, issuer.ErrInvalidToken)
}

func TestAccessTokenWrongKeyAndAlgorithm(t *testing.T) {
	fixedNow(t, time.Now())
	a := issuer.NewAccessIssuer(issuer.NewHMACSigner("secret"), time.Minute)
	other := issuer.NewAccessIssuer(issuer.NewHMACSigner("other"), time.Minute)

	tok, err := other.Issue("user-1")
	require.NoError(t, err)
	_, err = a.Verify(tok)
	require.ErrorIs(t, err, issuer.ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Verify(none)
	require.ErrorIs(t, err, issuer.ErrInvalidToken)
}

func TestExpireAll(t *testing.T) {
	fixedNow(t, time.Now())
	a := issuer.NewAccessIssuer(issuer.NewHMACSigner("secret"), time.Minute)

	old, err := a.Issue("user-1")
	require.NoError(t, err)
	a.ExpireAll()

	_, err = a.Verify(old)
	require.ErrorIs(t, err, issuer.ErrInvalidToken)

	fresh, err := a.Issue("user-1")
	require.NoError(t, err)
	_, err = a.Verify(fresh)
	require.NoError(t, err)
}

func TestRefreshRotation(t *testing.T) {
	fixedNow(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	repo := issuer.NewInMemoryRefreshRepo()
	m := issuer.NewRefreshManager(repo, time.Hour)

	first, err := m.Create("user-1")
	require.NoError(t, err)
	second, err := m.Create("user-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Equal(t, 1, repo.Len(), "one refresh token per user")

	_, _, err = m.Rotate(first)
	require.ErrorIs(t, err, issuer.ErrRefreshTokenNotFound)

	userID, third, err := m.Rotate(second)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.NotEqual(t, second, third)

	_, _, err = m.Rotate(second)
	require.ErrorIs(t, err, issuer.ErrRefreshTokenNotFound, "rotated tokens cannot be reused")
}

func TestRefreshExpiryAndRevoke(t *testing.T) {
	now := fixedNow(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	repo := issuer.NewInMemoryRefreshRepo()
	m := issuer.NewRefreshManager(repo, time.Hour)

	tok, err := m.Create("user-1")
	require.NoError(t, err)
	*now = now.Add(2 * time.Hour)
	_, _, err = m.Rotate(tok)
	require.ErrorIs(t, err, issuer.ErrRefreshTokenNotFound)
	require.Zero(t, repo.Len())

	tok, err = m.Create("user-2")
	require.NoError(t, err)
	require.NoError(t, m.Revoke("user-2"))
	require.NoError(t, m.Revoke("user-2"))
	_, _, err = m.Rotate(tok)
	require.ErrorIs(t, err, issuer.ErrRefreshTokenNotFound)
}

func TestECDSASignerRoundTrip(t *testing.T) {
	fixedNow(t, time.Now())
	signer, err := issuer.NewSigner("es256", "")
	require.NoError(t, err)
	a := issuer.NewAccessIssuer(signer, time.Minute)

	tok, err := a.Issue("user-1")
	require.NoError(t, err)
	sub, err := a.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)

	hmac := issuer.NewAccessIssuer(issuer.NewHMACSigner("secret"), time.Minute)
	_, err = hmac.Verify(tok)
	require.ErrorIs(t, err, issuer.ErrInvalidToken)
}

func TestNewSigner(t *testing.T) {
	_, err := issuer.NewSigner("HS256", "")
	require.Error(t, err)

	_, err = issuer.NewSigner("RS1024", "secret")
	require.Error(t, err)

	s, err := issuer.NewSigner("", "secret")
	require.NoError(t, err)
	require.Equal(t, jwt.SigningMethodHS256, s.GetSigningMethod())
}
