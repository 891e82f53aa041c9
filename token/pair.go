package token

import (
	"time"

	"github.com/Team-SSOK/ssok-auth-client/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Pair is the access/refresh credential pair issued by the backend.
// It is either complete or empty; a half pair is never persisted.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Complete reports whether both tokens are present.
func (p Pair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Empty reports whether neither token is present.
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Fingerprint identifies the access token in logs without exposing it.
func (p Pair) Fingerprint() string {
	return logging.Fingerprint(p.AccessToken)
}

// AccessClaims are the fields the client reads from an access token.
// The signature is not verified on the device; the backend remains the authority.
type AccessClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// Claims parses the access token without verifying it.
func (p Pair) Claims() (AccessClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.AccessToken, claims); err != nil {
		return AccessClaims{}, err
	}

	var ac AccessClaims
	if sub, err := claims.GetSubject(); err == nil {
		ac.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ac.ExpiresAt = exp.Time
	}
	return ac, nil
}

// RefreshExpiresAt returns the exp claim of a JWT refresh token. ok is false
// for opaque tokens and tokens without exp.
func (p Pair) RefreshExpiresAt() (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.RefreshToken, claims); err != nil {
		return time.Time{}, false
	}
	t, err := claims.GetExpirationTime()
	if err != nil || t == nil {
		return time.Time{}, false
	}
	return t.Time, true
}

// OAuth2 converts the pair into an oauth2 bearer token. Opaque access tokens get a zero expiry.
func (p Pair) OAuth2() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
	}
	if claims, err := p.Claims(); err == nil {
		t.Expiry = claims.ExpiresAt
	}
	return t
}
