package service

import (
	"context"
	"errors"

	"github.com/tidehaven/accountd/internal/account/domain"
	"github.com/tidehaven/accountd/internal/account/store"
	"github.com/tidehaven/accountd/pkg/cryptox"
	"github.com/tidehaven/accountd/pkg/idx"
	"github.com/tidehaven/accountd/pkg/slogx"
)

// UserService owns user lifecycle and the ownership/role policy around it.
type UserService struct {
	Store store.Store
}

// CreateUserInput carries the fields for a new user. Elevated flags are
// only reachable through the admin create path; signup pins them.
type CreateUserInput struct {
	Email       string
	FullName    string
	Password    string
	IsActive    bool
	IsSuperuser bool
}

// Create inserts a new user with a hashed password. Email collisions yield
// ErrDuplicateEmail.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	if _, err := s.Store.Users().GetUserByEmail(ctx, in.Email); err == nil {
		return domain.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New(),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsActive:     in.IsActive,
		IsSuperuser:  in.IsSuperuser,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created",
		"user_id", u.ID.String(), "superuser", u.IsSuperuser)

	// Reload so the caller sees store-assigned timestamps.
	return s.Store.Users().GetUserByID(ctx, u.ID)
}

// Register is the open signup path: always active, never a superuser.
func (s *UserService) Register(ctx context.Context, email, password, fullName string) (domain.User, error) {
	return s.Create(ctx, CreateUserInput{
		Email:    email,
		FullName: fullName,
		Password: password,
		IsActive: true,
	})
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, id idx.ID) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// GetByEmail fetches a user by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// List returns a page of users plus the total count.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]domain.User, int64, error) {
	count, err := s.Store.Users().CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}

	users, err := s.Store.Users().ListUsers(ctx, skip, limit)
	if err != nil {
		return nil, 0, err
	}

	return users, count, nil
}

// Update applies a partial update to the user with the given id. Only
// fields present in the patch change; a password in the patch is hashed
// before assignment. Changing the email to one owned by a different user
// yields ErrDuplicateEmail; re-stating the current email is a no-op.
func (s *UserService) Update(ctx context.Context, id idx.ID, patch domain.UserPatch) (domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	if patch.Email != nil && *patch.Email != u.Email {
		existing, err := s.Store.Users().GetUserByEmail(ctx, *patch.Email)
		if err == nil && existing.ID != id {
			return domain.User{}, ErrDuplicateEmail
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.User{}, err
		}
		u.Email = *patch.Email
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.IsSuperuser != nil {
		u.IsSuperuser = *patch.IsSuperuser
	}
	if patch.Password != nil {
		hash, err := cryptox.HashPassword(*patch.Password)
		if err != nil {
			return domain.User{}, err
		}
		u.PasswordHash = hash
	}

	if err := s.Store.Users().UpdateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.User{}, ErrDuplicateEmail
		case errors.Is(err, store.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	return s.Store.Users().GetUserByID(ctx, id)
}

// ChangePassword rotates the caller's own password after verifying the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, u domain.User, current, newPassword string) error {
	if cryptox.VerifyPassword(current, u.PasswordHash) != nil {
		return ErrIncorrectPassword
	}
	if current == newPassword {
		return ErrSamePassword
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", "user_id", u.ID.String())
	return nil
}

// ResetPassword completes the email reset flow for an already-verified
// email claim.
func (s *UserService) ResetPassword(ctx context.Context, email, newPassword string) error {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrInactiveUser
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset", "user_id", u.ID.String())
	return nil
}

// DeleteSelf removes the caller's own account. Superusers may never delete
// themselves.
func (s *UserService) DeleteSelf(ctx context.Context, u domain.User) error {
	if u.IsSuperuser {
		return ErrSelfDelete
	}
	return s.deleteByID(ctx, u.ID)
}

// Delete removes another user on behalf of an admin. The self-protection
// rule still applies: the target must not be the actor.
func (s *UserService) Delete(ctx context.Context, actor domain.User, id idx.ID) error {
	if id == actor.ID {
		return ErrSelfDelete
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.deleteByID(ctx, id)
}

func (s *UserService) deleteByID(ctx context.Context, id idx.ID) error {
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("user deleted", "user_id", id.String())
	return nil
}
