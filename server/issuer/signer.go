package issuer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer signs access tokens and hands out the key to verify them.
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
	GetVerificationKey(token *jwt.Token) (any, error)
	GetSigningMethod() jwt.SigningMethod
}

var _ Signer = (*HMACSigner)(nil)

// HMACSigner implements Signer using symmetric HMAC-SHA256
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{
		secret: []byte(secret),
	}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signed, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

var _ Signer = (*ECDSASigner)(nil)

// ECDSASigner signs with a P-256 key generated at start-up, so tokens do not
// outlive the process.
type ECDSASigner struct {
	key   *ecdsa.PrivateKey
	keyID string
}

func NewECDSASigner() (*ECDSASigner, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ES256 key: %w", err)
	}
	return &ECDSASigner{key: key, keyID: uuid.NewString()}, nil
}

func (e *ECDSASigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = e.keyID
	signed, err := token.SignedString(e.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with ECDSA: %w", err)
	}
	return signed, nil
}

func (e *ECDSASigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return &e.key.PublicKey, nil
}

func (e *ECDSASigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodES256
}

// NewSigner returns the signer for alg. HS256 requires a secret.
func NewSigner(alg, secret string) (Signer, error) {
	switch strings.ToUpper(alg) {
	case "", "HS256":
		if secret == "" {
			return nil, errors.New("HS256 requires a secret")
		}
		return NewHMACSigner(secret), nil
	case "ES256":
		return NewECDSASigner()
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", alg)
	}
}
