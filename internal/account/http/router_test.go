package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidehaven/accountd/internal/account/domain"
	"github.com/tidehaven/accountd/internal/account/mail"
	"github.com/tidehaven/accountd/internal/account/service"
	"github.com/tidehaven/accountd/internal/account/store/drivers/sqlite"
	"github.com/tidehaven/accountd/pkg/cryptox"
	"github.com/tidehaven/accountd/pkg/idx"
	"github.com/tidehaven/accountd/pkg/tokenx"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rt := NewRouter("test", st, logger)
	rt.AuthService = &service.AuthService{
		Store:  st,
		Bearer: tokenx.NewCodec([]byte("test-secret"), tokenx.PurposeAccess, 30*time.Minute),
		Reset:  tokenx.NewCodec([]byte("test-secret"), tokenx.PurposeReset, time.Hour),
	}
	rt.UserService = &service.UserService{Store: st}
	rt.Mailer = mail.LogMailer{}
	rt.FrontendURL = "http://localhost:5173"
	rt.PresignTTL = 15 * time.Minute
	rt.ApplyRoutes()

	return rt
}

func seedRouterUser(t *testing.T, rt *Router, email, password string, active, super bool) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     active,
		IsSuperuser:  super,
	}
	require.NoError(t, rt.AuthService.Store.Users().CreateUser(ctx, u))
	return u
}

func bearerFor(t *testing.T, rt *Router, u domain.User) string {
	t.Helper()
	token, err := rt.AuthService.IssueBearerToken(u.ID)
	require.NoError(t, err)
	return token
}

func doJSON(rt *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	return rec
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestLoginAccessToken(t *testing.T) {
	rt := newTestRouter(t)
	seedRouterUser(t, rt, "alice@example.com", "password123", true, false)
	seedRouterUser(t, rt, "idle@example.com", "password123", false, false)

	login := func(username, password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {username}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/v1/login/access-token",
			strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid credentials return a usable token", func(t *testing.T) {
		rec := login("alice@example.com", "password123")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body Token
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "bearer", body.TokenType)

		me := doJSON(rt, http.MethodGet, "/v1/users/me", body.AccessToken, nil)
		require.Equal(t, http.StatusOK, me.Code)
	})

	t.Run("wrong password and unknown email look identical", func(t *testing.T) {
		wrongPass := login("alice@example.com", "wrong")
		unknown := login("nobody@example.com", "password123")

		require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.Equal(t, "Bearer", wrongPass.Header().Get("WWW-Authenticate"))
		require.Equal(t, detailOf(t, wrongPass), detailOf(t, unknown))
	})

	t.Run("inactive user cannot log in", func(t *testing.T) {
		rec := login("idle@example.com", "password123")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Inactive user", detailOf(t, rec))
	})

	t.Run("missing fields are unprocessable", func(t *testing.T) {
		rec := login("", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestAuthorizationGate(t *testing.T) {
	rt := newTestRouter(t)
	user := seedRouterUser(t, rt, "bob@example.com", "password123", true, false)

	t.Run("missing header is forbidden", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users/me", "", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "Could not validate credentials", detailOf(t, rec))
	})

	t.Run("garbage token is forbidden", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users/me", "garbage", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid token for a deleted user is not found", func(t *testing.T) {
		token := bearerFor(t, rt, user)
		require.NoError(t, rt.AuthService.Store.Users().DeleteUser(context.Background(), user.ID))

		rec := doJSON(rt, http.MethodGet, "/v1/users/me", token, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "User not found", detailOf(t, rec))
	})

	t.Run("inactive user is a bad request", func(t *testing.T) {
		idle := seedRouterUser(t, rt, "idle2@example.com", "password123", false, false)

		rec := doJSON(rt, http.MethodGet, "/v1/users/me", bearerFor(t, rt, idle), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Inactive user", detailOf(t, rec))
	})

	t.Run("non-superuser cannot reach admin routes", func(t *testing.T) {
		member := seedRouterUser(t, rt, "member@example.com", "password123", true, false)

		rec := doJSON(rt, http.MethodGet, "/v1/users", bearerFor(t, rt, member), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "The user doesn't have enough privileges", detailOf(t, rec))
	})
}

func TestTestToken(t *testing.T) {
	rt := newTestRouter(t)
	user := seedRouterUser(t, rt, "carol@example.com", "password123", true, false)

	rec := doJSON(rt, http.MethodPost, "/v1/login/test-token", bearerFor(t, rt, user), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body UserPublic
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, user.ID.String(), body.ID)
	require.Equal(t, "carol@example.com", body.Email)
}

func TestSignup(t *testing.T) {
	rt := newTestRouter(t)

	t.Run("creates an active non-superuser", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPost, "/v1/users/signup", "", map[string]string{
			"email":     "new@example.com",
			"password":  "password123",
			"full_name": "New User",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body UserPublic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body.IsActive)
		require.False(t, body.IsSuperuser)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPost, "/v1/users/signup", "", map[string]string{
			"email":    "new@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "The user with this email already exists in the system", detailOf(t, rec))
	})

	t.Run("short password is unprocessable", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPost, "/v1/users/signup", "", map[string]string{
			"email":    "short@example.com",
			"password": "short",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestAdminUserCRUD(t *testing.T) {
	rt := newTestRouter(t)
	admin := seedRouterUser(t, rt, "admin@example.com", "password123", true, true)
	adminToken := bearerFor(t, rt, admin)

	t.Run("create with elevated flags", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPost, "/v1/users", adminToken, map[string]any{
			"email":        "staff@example.com",
			"password":     "password123",
			"is_superuser": true,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body UserPublic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body.IsSuperuser)
	})

	t.Run("duplicate create is a bad request", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPost, "/v1/users", adminToken, map[string]string{
			"email":    "staff@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Email already registered", detailOf(t, rec))
	})

	t.Run("list paginates and counts", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users?skip=0&limit=1", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body UsersPublic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		require.EqualValues(t, 2, body.Count)
	})

	t.Run("bad pagination is unprocessable", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users?limit=1000", adminToken, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("update another user", func(t *testing.T) {
		target := seedRouterUser(t, rt, "target@example.com", "password123", true, false)

		rec := doJSON(rt, http.MethodPatch, "/v1/users/"+target.ID.String(), adminToken,
			map[string]any{"full_name": "Renamed", "is_active": false})
		require.Equal(t, http.StatusOK, rec.Code)

		var body UserPublic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "Renamed", body.FullName)
		require.False(t, body.IsActive)
	})

	t.Run("update to a taken email conflicts", func(t *testing.T) {
		target := seedRouterUser(t, rt, "conflict@example.com", "password123", true, false)

		rec := doJSON(rt, http.MethodPatch, "/v1/users/"+target.ID.String(), adminToken,
			map[string]string{"email": "staff@example.com"})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("update of a missing user is not found", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPatch, "/v1/users/"+idx.New().String(), adminToken,
			map[string]string{"full_name": "x"})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id is unprocessable", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users/not-an-id", adminToken, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("delete another user", func(t *testing.T) {
		target := seedRouterUser(t, rt, "doomed@example.com", "password123", true, false)

		rec := doJSON(rt, http.MethodDelete, "/v1/users/"+target.ID.String(), adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin cannot delete itself by id", func(t *testing.T) {
		rec := doJSON(rt, http.MethodDelete, "/v1/users/"+admin.ID.String(), adminToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "Super users are not allowed to delete themselves", detailOf(t, rec))
	})
}

func TestReadUserByID(t *testing.T) {
	rt := newTestRouter(t)
	admin := seedRouterUser(t, rt, "admin@example.com", "password123", true, true)
	member := seedRouterUser(t, rt, "member@example.com", "password123", true, false)

	t.Run("user reads itself", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users/"+member.ID.String(),
			bearerFor(t, rt, member), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("user cannot read others", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users/"+admin.ID.String(),
			bearerFor(t, rt, member), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("superuser reads anyone", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users/"+member.ID.String(),
			bearerFor(t, rt, admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("superuser read of a missing user is not found", func(t *testing.T) {
		rec := doJSON(rt, http.MethodGet, "/v1/users/"+idx.New().String(),
			bearerFor(t, rt, admin), nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSelfServiceEndpoints(t *testing.T) {
	rt := newTestRouter(t)
	user := seedRouterUser(t, rt, "self@example.com", "password123", true, false)
	token := bearerFor(t, rt, user)

	t.Run("update own profile", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPatch, "/v1/users/me", token,
			map[string]string{"full_name": "Self Service"})
		require.Equal(t, http.StatusOK, rec.Code)

		var body UserPublic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "Self Service", body.FullName)
	})

	t.Run("taking a taken email conflicts", func(t *testing.T) {
		seedRouterUser(t, rt, "other@example.com", "password123", true, false)

		rec := doJSON(rt, http.MethodPatch, "/v1/users/me", token,
			map[string]string{"email": "other@example.com"})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("password change requires the current password", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPatch, "/v1/users/me/password", token,
			map[string]string{"current_password": "wrong-password", "new_password": "new-password1"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Incorrect password", detailOf(t, rec))
	})

	t.Run("password change rejects reuse", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPatch, "/v1/users/me/password", token,
			map[string]string{"current_password": "password123", "new_password": "password123"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("password change succeeds", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPatch, "/v1/users/me/password", token,
			map[string]string{"current_password": "password123", "new_password": "new-password1"})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("regular user deletes itself", func(t *testing.T) {
		rec := doJSON(rt, http.MethodDelete, "/v1/users/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("superuser cannot delete itself", func(t *testing.T) {
		admin := seedRouterUser(t, rt, "admin2@example.com", "password123", true, true)

		rec := doJSON(rt, http.MethodDelete, "/v1/users/me", bearerFor(t, rt, admin), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPasswordRecoveryFlow(t *testing.T) {
	rt := newTestRouter(t)
	seedRouterUser(t, rt, "dora@example.com", "old-password1", true, false)

	t.Run("recovery response does not reveal account existence", func(t *testing.T) {
		known := doJSON(rt, http.MethodPost, "/v1/login/password-recovery/dora@example.com", "", nil)
		unknown := doJSON(rt, http.MethodPost, "/v1/login/password-recovery/nobody@example.com", "", nil)

		require.Equal(t, http.StatusOK, known.Code)
		require.Equal(t, http.StatusOK, unknown.Code)
		require.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("reset with a valid token updates the password", func(t *testing.T) {
		token, err := rt.AuthService.IssueResetToken(context.Background(), "dora@example.com")
		require.NoError(t, err)

		rec := doJSON(rt, http.MethodPost, "/v1/login/reset-password", "",
			map[string]string{"token": token, "new_password": "new-password1"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Password updated successfully", detailMessage(t, rec))

		form := url.Values{"username": {"dora@example.com"}, "password": {"new-password1"}}
		req := httptest.NewRequest(http.MethodPost, "/v1/login/access-token",
			strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		loginRec := httptest.NewRecorder()
		rt.ServeHTTP(loginRec, req)
		require.Equal(t, http.StatusOK, loginRec.Code)
	})

	t.Run("reset with an invalid token fails", func(t *testing.T) {
		rec := doJSON(rt, http.MethodPost, "/v1/login/reset-password", "",
			map[string]string{"token": "bogus", "new_password": "new-password1"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Invalid token", detailOf(t, rec))
	})

	t.Run("recovery preview requires superuser", func(t *testing.T) {
		member := seedRouterUser(t, rt, "plain@example.com", "password123", true, false)

		rec := doJSON(rt, http.MethodPost,
			"/v1/login/password-recovery-html-content/dora@example.com",
			bearerFor(t, rt, member), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("recovery preview renders the email", func(t *testing.T) {
		admin := seedRouterUser(t, rt, "previewer@example.com", "password123", true, true)

		rec := doJSON(rt, http.MethodPost,
			"/v1/login/password-recovery-html-content/dora@example.com",
			bearerFor(t, rt, admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		require.Contains(t, rec.Body.String(), "reset-password?token=")
	})
}

func detailMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestPresignRequiresStorage(t *testing.T) {
	rt := newTestRouter(t)
	user := seedRouterUser(t, rt, "files@example.com", "password123", true, false)
	token := bearerFor(t, rt, user)

	upload := doJSON(rt, http.MethodPost, "/v1/files/presign-upload", token,
		map[string]string{"key": "avatars/a.png", "content_type": "image/png"})
	require.Equal(t, http.StatusServiceUnavailable, upload.Code)

	download := doJSON(rt, http.MethodPost, "/v1/files/presign-download", token,
		map[string]string{"key": "avatars/a.png"})
	require.Equal(t, http.StatusServiceUnavailable, download.Code)
}

func TestHealthEndpoints(t *testing.T) {
	rt := newTestRouter(t)

	livez := doJSON(rt, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, livez.Code)

	readyz := doJSON(rt, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, readyz.Code)
}
