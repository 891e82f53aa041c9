// Package issuer mints the tokens handed out by the stub backend.
package issuer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var ErrInvalidToken = errors.New("invalid token")

const generationClaim = "gen"

// AccessIssuer creates and verifies short-lived JWT access tokens.
type AccessIssuer struct {
	signer Signer
	ttl    time.Duration
	// generation invalidates every token issued before the last ExpireAll.
	generation atomic.Int64
}

func NewAccessIssuer(signer Signer, ttl time.Duration) *AccessIssuer {
	return &AccessIssuer{signer: signer, ttl: ttl}
}

// Issue returns a signed access token for userID.
func (a *AccessIssuer) Issue(userID string) (string, error) {
	now := NowTimeFunc()
	claims := jwt.MapClaims{
		"sub":           userID,
		"iat":           now.Unix(),
		"exp":           now.Add(a.ttl).Unix(),
		"jti":           uuid.New().String(),
		generationClaim: a.generation.Load(),
	}
	signed, err := a.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("[AccessIssuer.Issue] %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and generation and returns the subject.
func (a *AccessIssuer) Verify(tokenStr string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{a.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(NowTimeFunc),
		jwt.WithExpirationRequired(),
	)
	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, a.signer.GetVerificationKey); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	gen, ok := claims[generationClaim].(float64)
	if !ok || int64(gen) < a.generation.Load() {
		return "", fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}

// ExpireAll invalidates every access token issued so far.
func (a *AccessIssuer) ExpireAll() {
	a.generation.Add(1)
}
