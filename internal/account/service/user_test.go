package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidehaven/accountd/internal/account/domain"
	"github.com/tidehaven/accountd/pkg/cryptox"
	"github.com/tidehaven/accountd/pkg/idx"
)

func strPtr(s string) *string { return &s }

func domainPatch(fullName, email *string) domain.UserPatch {
	return domain.UserPatch{FullName: fullName, Email: email}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	t.Run("creates with hashed password", func(t *testing.T) {
		u, err := svc.Create(ctx, CreateUserInput{
			Email:    "dave@example.com",
			FullName: "Dave",
			Password: "password123",
			IsActive: true,
		})
		require.NoError(t, err)
		require.Equal(t, "dave@example.com", u.Email)
		require.NotEqual(t, "password123", u.PasswordHash)
		require.NoError(t, cryptox.VerifyPassword("password123", u.PasswordHash))
		require.False(t, u.CreatedAt.IsZero())
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateUserInput{
			Email:    "dave@example.com",
			Password: "different-pass",
			IsActive: true,
		})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestRegisterNeverElevates(t *testing.T) {
	ctx := context.Background()
	svc := &UserService{Store: newTestStore(t)}

	u, err := svc.Register(ctx, "eve@example.com", "password123", "Eve")
	require.NoError(t, err)
	require.True(t, u.IsActive)
	require.False(t, u.IsSuperuser)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		seedUser(t, st, email, "password123", true, false)
	}

	t.Run("returns page and total count", func(t *testing.T) {
		users, count, err := svc.List(ctx, 0, 2)
		require.NoError(t, err)
		require.Len(t, users, 2)
		require.EqualValues(t, 3, count)
	})

	t.Run("skip past the end yields an empty page", func(t *testing.T) {
		users, count, err := svc.List(ctx, 10, 2)
		require.NoError(t, err)
		require.Empty(t, users)
		require.EqualValues(t, 3, count)
	})
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	alice := seedUser(t, st, "alice@example.com", "password123", true, false)
	seedUser(t, st, "taken@example.com", "password123", true, false)

	t.Run("patch changes only the named fields", func(t *testing.T) {
		u, err := svc.Update(ctx, alice.ID, domainPatch(strPtr("Alice A."), nil))
		require.NoError(t, err)
		require.Equal(t, "Alice A.", u.FullName)
		require.Equal(t, "alice@example.com", u.Email)
		require.True(t, u.IsActive)
	})

	t.Run("restating the current email is a no-op", func(t *testing.T) {
		u, err := svc.Update(ctx, alice.ID, domainPatch(nil, strPtr("alice@example.com")))
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", u.Email)
	})

	t.Run("taking another user's email conflicts", func(t *testing.T) {
		_, err := svc.Update(ctx, alice.ID, domainPatch(nil, strPtr("taken@example.com")))
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("patched password is hashed", func(t *testing.T) {
		patch := domainPatch(nil, nil)
		patch.Password = strPtr("new-password-1")

		u, err := svc.Update(ctx, alice.ID, patch)
		require.NoError(t, err)
		require.NoError(t, cryptox.VerifyPassword("new-password-1", u.PasswordHash))
	})

	t.Run("unknown user is a miss", func(t *testing.T) {
		_, err := svc.Update(ctx, idx.New(), domainPatch(strPtr("x"), nil))
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	user := seedUser(t, st, "frank@example.com", "old-password1", true, false)

	t.Run("wrong current password is rejected", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user, "not-the-password", "new-password1")
		require.ErrorIs(t, err, ErrIncorrectPassword)
	})

	t.Run("reusing the current password is rejected", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user, "old-password1", "old-password1")
		require.ErrorIs(t, err, ErrSamePassword)
	})

	t.Run("rotates the stored hash", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, user, "old-password1", "new-password1"))

		reloaded, err := svc.Get(ctx, user.ID)
		require.NoError(t, err)
		require.NoError(t, cryptox.VerifyPassword("new-password1", reloaded.PasswordHash))
		require.Error(t, cryptox.VerifyPassword("old-password1", reloaded.PasswordHash))
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	user := seedUser(t, st, "grace@example.com", "old-password1", true, false)
	seedUser(t, st, "idle@example.com", "old-password1", false, false)

	t.Run("sets the new password", func(t *testing.T) {
		require.NoError(t, svc.ResetPassword(ctx, "grace@example.com", "new-password1"))

		reloaded, err := svc.Get(ctx, user.ID)
		require.NoError(t, err)
		require.NoError(t, cryptox.VerifyPassword("new-password1", reloaded.PasswordHash))
	})

	t.Run("unknown email is a miss", func(t *testing.T) {
		err := svc.ResetPassword(ctx, "nobody@example.com", "new-password1")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("inactive accounts cannot reset", func(t *testing.T) {
		err := svc.ResetPassword(ctx, "idle@example.com", "new-password1")
		require.ErrorIs(t, err, ErrInactiveUser)
	})
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	admin := seedUser(t, st, "admin@example.com", "password123", true, true)
	member := seedUser(t, st, "member@example.com", "password123", true, false)

	t.Run("superuser cannot delete itself", func(t *testing.T) {
		require.ErrorIs(t, svc.DeleteSelf(ctx, admin), ErrSelfDelete)
		require.ErrorIs(t, svc.Delete(ctx, admin, admin.ID), ErrSelfDelete)
	})

	t.Run("admin deletes another user", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, admin, member.ID))

		_, err := svc.Get(ctx, member.ID)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("deleting a missing user is a miss", func(t *testing.T) {
		require.ErrorIs(t, svc.Delete(ctx, admin, idx.New()), ErrUserNotFound)
	})

	t.Run("regular user deletes itself", func(t *testing.T) {
		solo := seedUser(t, st, "solo@example.com", "password123", true, false)
		require.NoError(t, svc.DeleteSelf(ctx, solo))

		_, err := svc.Get(ctx, solo.ID)
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}
