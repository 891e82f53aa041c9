package token_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedAccessToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestPairCompleteness(t *testing.T) {
	require.True(t, token.Pair{AccessToken: "a", RefreshToken: "r"}.Complete())
	require.False(t, token.Pair{AccessToken: "a"}.Complete())
	require.False(t, token.Pair{RefreshToken: "r"}.Complete())
	require.True(t, token.Pair{}.Empty())
	require.False(t, token.Pair{AccessToken: "a"}.Empty())
}

func TestPairClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	pair := token.Pair{AccessToken: signedAccessToken(t, "42", exp), RefreshToken: "r"}

	claims, err := pair.Claims()
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.True(t, exp.Equal(claims.ExpiresAt))
}

func TestPairClaimsOpaqueToken(t *testing.T) {
	_, err := token.Pair{AccessToken: "opaque", RefreshToken: "r"}.Claims()
	require.Error(t, err)
}

func TestPairOAuth2(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	access := signedAccessToken(t, "42", exp)
	ot := token.Pair{AccessToken: access, RefreshToken: "r"}.OAuth2()

	require.True(t, ot.Valid())
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	ot.SetAuthHeader(req)
	require.Equal(t, "Bearer "+access, req.Header.Get("Authorization"))

	expired := token.Pair{AccessToken: signedAccessToken(t, "42", time.Now().Add(-time.Minute)), RefreshToken: "r"}.OAuth2()
	require.False(t, expired.Valid())
}
