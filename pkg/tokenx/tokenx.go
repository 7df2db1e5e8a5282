// Package tokenx signs and verifies the compact, time-bound tokens the
// account service hands out: short-lived bearer tokens carrying a user id
// and longer-lived password-reset tokens carrying an email.
//
// Each purpose gets its own signing key, derived from the server secret
// with HMAC-SHA256 domain separation, so a reset token can never be
// replayed as a bearer token or vice versa.
package tokenx

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. The purpose is both a claim and the domain-separation
// label for the signing key.
const (
	PurposeAccess = "access"
	PurposeReset  = "reset"
)

// ErrInvalidToken covers signature mismatch, malformed structure, wrong
// purpose, missing subject and expiry. Callers cannot tell these apart,
// which keeps the token path free of oracles.
var ErrInvalidToken = errors.New("tokenx: invalid token")

// Claims are the signed token payload: registered sub/iat/exp plus the
// purpose tag.
type Claims struct {
	jwt.RegisteredClaims

	Purpose string `json:"purpose,omitempty"`
}

// Codec issues and verifies HS256 tokens for a single purpose.
// It is immutable after construction and safe for concurrent use.
type Codec struct {
	key     []byte
	purpose string
	ttl     time.Duration
}

// NewCodec derives a purpose-scoped key from secret and returns a codec
// issuing tokens valid for ttl.
func NewCodec(secret []byte, purpose string, ttl time.Duration) *Codec {
	return &Codec{
		key:     deriveKey(secret, purpose),
		purpose: purpose,
		ttl:     ttl,
	}
}

// deriveKey stretches the shared secret into an independent key per token
// purpose. Different labels yield unrelated keys under HMAC.
func deriveKey(secret []byte, purpose string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("tokenx/v1/" + purpose))
	return mac.Sum(nil)
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject expiring TTL from now.
func (c *Codec) Issue(subject string) (string, error) {
	return c.IssueAt(subject, time.Now().UTC())
}

// IssueAt is Issue with an explicit clock.
func (c *Codec) IssueAt(subject string, now time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("tokenx: empty subject")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Purpose: c.purpose,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify validates the token and returns its subject. Any failure is
// ErrInvalidToken.
func (c *Codec) Verify(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Purpose != c.purpose {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
