package service

import (
	"context"
	"errors"
	"time"

	"github.com/tidehaven/accountd/internal/account/domain"
	"github.com/tidehaven/accountd/internal/account/store"
	"github.com/tidehaven/accountd/pkg/cryptox"
	"github.com/tidehaven/accountd/pkg/idx"
	"github.com/tidehaven/accountd/pkg/slogx"
	"github.com/tidehaven/accountd/pkg/tokenx"
)

// AuthService owns the credential lifecycle: password verification, bearer
// token issuance and the authorization gate every authenticated endpoint
// runs through. It holds no mutable state; the codecs are immutable after
// construction.
type AuthService struct {
	Store  store.Store
	Bearer *tokenx.Codec
	Reset  *tokenx.Codec
}

// Authenticate turns (email, password) into a verified user. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if cryptox.VerifyPassword(password, u.PasswordHash) != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// IssueBearerToken signs a bearer token for the user id, valid for the
// configured bearer TTL.
func (s *AuthService) IssueBearerToken(userID idx.ID) (string, error) {
	return s.Bearer.Issue(userID.String())
}

// BearerTTL reports the bearer token lifetime.
func (s *AuthService) BearerTTL() time.Duration { return s.Bearer.TTL() }

// ResolvePrincipal runs the authorization gate for a presented bearer
// token: verify signature and expiry, parse the subject as a user id, load
// the user, and enforce the active flag.
//
// A missing user yields ErrUserNotFound rather than ErrInvalidToken. That
// reveals more than the login path does; it matches the upstream API and
// is kept deliberately.
func (s *AuthService) ResolvePrincipal(ctx context.Context, token string) (domain.User, error) {
	sub, err := s.Bearer.Verify(token)
	if err != nil {
		return domain.User{}, ErrInvalidToken
	}

	// A subject that is not id-shaped is a bad token, not a lookup miss.
	id, err := idx.Parse(sub)
	if err != nil {
		return domain.User{}, ErrInvalidToken
	}

	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if !u.IsActive {
		return domain.User{}, ErrInactiveUser
	}

	return u, nil
}

// RequireSuperuser enforces the elevated-role check for admin-only
// operations.
func (s *AuthService) RequireSuperuser(u domain.User) error {
	if !u.IsSuperuser {
		return ErrNotSuperuser
	}
	return nil
}

// IssueResetToken signs a password-reset token carrying the email. The
// token is not tracked server-side: it stays valid, and replayable, until
// its TTL passes. See DESIGN.md.
func (s *AuthService) IssueResetToken(ctx context.Context, email string) (string, error) {
	token, err := s.Reset.Issue(email)
	if err != nil {
		return "", err
	}
	slogx.FromContext(ctx).Info("password reset token issued", "email", email)
	return token, nil
}

// ResolveResetEmail verifies a reset token and returns the email it was
// issued for. Any failure is ErrInvalidToken.
func (s *AuthService) ResolveResetEmail(token string) (string, error) {
	email, err := s.Reset.Verify(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return email, nil
}

// ResetTTL reports the reset token lifetime.
func (s *AuthService) ResetTTL() time.Duration { return s.Reset.TTL() }

// HashPassword hashes a plaintext password for storage.
func (s *AuthService) HashPassword(password string) (string, error) {
	return cryptox.HashPassword(password)
}

// VerifyPassword reports whether plaintext matches the stored hash.
// Malformed hashes verify false.
func (s *AuthService) VerifyPassword(password, hash string) bool {
	return cryptox.VerifyPassword(password, hash) == nil
}
