package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tidehaven/accountd/internal/account/service"
	"github.com/tidehaven/accountd/pkg/httpx"
	"github.com/tidehaven/accountd/pkg/idx"
	"github.com/tidehaven/accountd/pkg/slogx"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

func (rt *Router) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	skip, limit, err := parsePage(r)
	if err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	users, count, err := rt.UserService.List(ctx, skip, limit)
	if err != nil {
		slogx.FromContext(ctx).Error("list users failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUsersPublic(users, count))
}

func parsePage(r *http.Request) (skip, limit int, err error) {
	skip, limit = 0, defaultListLimit

	if raw := r.URL.Query().Get("skip"); raw != "" {
		skip, err = strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return 0, 0, errors.New("skip: must be a non-negative integer")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return 0, 0, errors.New("limit: must be between 1 and 100")
		}
	}
	return skip, limit, nil
}

func (rt *Router) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := decodeJSON[userCreateRequest](w, r)
	if !ok {
		return
	}

	in := service.CreateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		IsActive: true,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	if req.IsSuperuser != nil {
		in.IsSuperuser = *req.IsSuperuser
	}

	user, err := rt.UserService.Create(ctx, in)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			httpx.Error(w, http.StatusBadRequest, "Email already registered")
			return
		}
		slogx.FromContext(ctx).Error("create user failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserPublic(user))
}

func (rt *Router) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := decodeJSON[userRegisterRequest](w, r)
	if !ok {
		return
	}

	user, err := rt.UserService.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			httpx.Error(w, http.StatusBadRequest,
				"The user with this email already exists in the system")
			return
		}
		slogx.FromContext(ctx).Error("signup failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserPublic(user))
}

func (rt *Router) handleReadMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserPublic(user))
}

func (rt *Router) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := currentUser(ctx)
	if !ok {
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
		return
	}

	req, ok := decodeJSON[userUpdateMeRequest](w, r)
	if !ok {
		return
	}

	updated, err := rt.UserService.Update(ctx, user.ID, req.patch())
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			httpx.Error(w, http.StatusConflict, "User with this email already exists")
			return
		}
		slogx.FromContext(ctx).Error("update me failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserPublic(updated))
}

func (rt *Router) handleUpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := currentUser(ctx)
	if !ok {
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
		return
	}

	req, ok := decodeJSON[updatePasswordRequest](w, r)
	if !ok {
		return
	}

	if err := rt.UserService.ChangePassword(ctx, user, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrIncorrectPassword):
			httpx.Error(w, http.StatusBadRequest, "Incorrect password")
		case errors.Is(err, service.ErrSamePassword):
			httpx.Error(w, http.StatusBadRequest,
				"New password cannot be the same as the current one")
		default:
			slogx.FromContext(ctx).Error("password change failed", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, Message{Message: "Password updated successfully"})
}

func (rt *Router) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := currentUser(ctx)
	if !ok {
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
		return
	}

	if err := rt.UserService.DeleteSelf(ctx, user); err != nil {
		if errors.Is(err, service.ErrSelfDelete) {
			httpx.Error(w, http.StatusForbidden,
				"Super users are not allowed to delete themselves")
			return
		}
		slogx.FromContext(ctx).Error("delete me failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, Message{Message: "User deleted successfully"})
}

// handleReadUser lets any authenticated user read themselves by id; reading
// anyone else requires the superuser role.
func (rt *Router) handleReadUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := currentUser(ctx)
	if !ok {
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
		return
	}

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	if id == actor.ID {
		httpx.WriteJSON(w, http.StatusOK, toUserPublic(actor))
		return
	}

	if err := rt.AuthService.RequireSuperuser(actor); err != nil {
		httpx.Error(w, http.StatusForbidden, "The user doesn't have enough privileges")
		return
	}

	user, err := rt.UserService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound,
				"The user with this id does not exist in the system")
			return
		}
		slogx.FromContext(ctx).Error("read user failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserPublic(user))
}

func (rt *Router) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	req, ok := decodeJSON[userUpdateRequest](w, r)
	if !ok {
		return
	}

	user, err := rt.UserService.Update(ctx, id, req.patch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			httpx.Error(w, http.StatusNotFound,
				"The user with this id does not exist in the system")
		case errors.Is(err, service.ErrDuplicateEmail):
			httpx.Error(w, http.StatusConflict, "User with this email already exists")
		default:
			slogx.FromContext(ctx).Error("update user failed", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserPublic(user))
}

func (rt *Router) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := currentUser(ctx)
	if !ok {
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
		return
	}

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	if err := rt.UserService.Delete(ctx, actor, id); err != nil {
		switch {
		case errors.Is(err, service.ErrSelfDelete):
			httpx.Error(w, http.StatusForbidden,
				"Super users are not allowed to delete themselves")
		case errors.Is(err, service.ErrUserNotFound):
			httpx.Error(w, http.StatusNotFound, "User not found")
		default:
			slogx.FromContext(ctx).Error("delete user failed", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, Message{Message: "User deleted successfully"})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (idx.ID, bool) {
	id, err := idx.Parse(r.PathValue("user_id"))
	if err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, "user_id: invalid id")
		return idx.Zero, false
	}
	return id, true
}
