package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tidehaven/accountd/internal/account/domain"
	"github.com/tidehaven/accountd/internal/account/service"
	"github.com/tidehaven/accountd/pkg/httpx"
	"github.com/tidehaven/accountd/pkg/slogx"
)

type ctxKey string

const ctxKeyUser ctxKey = "current_user"

// requireUser runs the authorization gate: bearer token → principal →
// active check. On success the resolved user is attached to the request
// context. Handlers never re-implement any of these steps.
func (rt *Router) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

		user, err := rt.AuthService.ResolvePrincipal(ctx, raw)
		if err != nil {
			writeGateError(ctx, w, err)
			return
		}

		ctx = context.WithValue(ctx, ctxKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSuperuser composes after requireUser and enforces the elevated
// role for admin-only operations.
func (rt *Router) requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(r.Context())
		if !ok {
			httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
			return
		}

		if err := rt.AuthService.RequireSuperuser(user); err != nil {
			httpx.Error(w, http.StatusForbidden, "The user doesn't have enough privileges")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func currentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(domain.User)
	return u, ok
}

// writeGateError maps gate failures onto the wire. Invalid tokens and
// missing users map differently on purpose; the login path stays uniform,
// the token path does not.
func writeGateError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInactiveUser):
		httpx.Error(w, http.StatusBadRequest, "Inactive user")
	default:
		slogx.FromContext(ctx).Error("authorization gate failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON parses and validates a request body. Validation failures are
// rendered as 422 like the upstream API.
func decodeJSON[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, "Invalid request body")
		return req, false
	}
	if err := req.Validate(); err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error())
		return req, false
	}
	return req, true
}
