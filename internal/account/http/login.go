package http

import (
	"errors"
	"net/http"

	"github.com/tidehaven/accountd/internal/account/mail"
	"github.com/tidehaven/accountd/internal/account/service"
	"github.com/tidehaven/accountd/pkg/httpx"
	"github.com/tidehaven/accountd/pkg/slogx"
)

func (rt *Router) renderResetEmail(email, token string) (mail.Message, error) {
	return mail.RenderResetEmail(rt.FrontendURL, email, token, rt.AuthService.ResetTTL())
}

// handleLogin exchanges form credentials for a bearer token. Failures are
// uniform: unknown email and wrong password both return the same 401.
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		httpx.Error(w, http.StatusUnprocessableEntity, "Field required")
		return
	}

	user, err := rt.AuthService.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.Error(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		slogx.FromContext(ctx).Error("login failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !user.IsActive {
		httpx.Error(w, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := rt.AuthService.IssueBearerToken(user.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("token issue failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, Token{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// handleTestToken echoes the resolved principal. Its purpose is letting a
// client check whether its token is still good.
func (rt *Router) handleTestToken(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		httpx.Error(w, http.StatusForbidden, "Could not validate credentials")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserPublic(user))
}

// handlePasswordRecovery starts the email reset flow. The response does not
// reveal whether the email exists; the mail is only sent when it does.
func (rt *Router) handlePasswordRecovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.PathValue("email")

	user, err := rt.UserService.GetByEmail(ctx, email)
	switch {
	case err == nil && user.IsActive:
		token, err := rt.AuthService.IssueResetToken(ctx, email)
		if err != nil {
			slogx.FromContext(ctx).Error("reset token issue failed", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		msg, err := rt.renderResetEmail(email, token)
		if err != nil {
			slogx.FromContext(ctx).Error("reset email render failed", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		if err := rt.Mailer.Send(ctx, msg); err != nil {
			// Delivery failures are logged, not surfaced; surfacing them
			// would leak which emails exist.
			slogx.FromContext(ctx).Error("reset email send failed", "err", err)
		}
	case err != nil && !errors.Is(err, service.ErrUserNotFound):
		slogx.FromContext(ctx).Error("password recovery lookup failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, Message{Message: "Password recovery email sent"})
}

// handleResetPassword completes the reset flow with the emailed token.
func (rt *Router) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := decodeJSON[newPasswordRequest](w, r)
	if !ok {
		return
	}

	email, err := rt.AuthService.ResolveResetEmail(req.Token)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid token")
		return
	}

	if err := rt.UserService.ResetPassword(ctx, email, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			httpx.Error(w, http.StatusNotFound,
				"The user with this email does not exist in the system.")
		case errors.Is(err, service.ErrInactiveUser):
			httpx.Error(w, http.StatusBadRequest, "Inactive user")
		default:
			slogx.FromContext(ctx).Error("password reset failed", "err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, Message{Message: "Password updated successfully"})
}

// handleRecoveryHTMLContent previews the recovery email body for an admin.
func (rt *Router) handleRecoveryHTMLContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.PathValue("email")

	if _, err := rt.UserService.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound,
				"The user with this username does not exist in the system.")
			return
		}
		slogx.FromContext(ctx).Error("recovery preview lookup failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := rt.AuthService.IssueResetToken(ctx, email)
	if err != nil {
		slogx.FromContext(ctx).Error("reset token issue failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	msg, err := rt.renderResetEmail(email, token)
	if err != nil {
		slogx.FromContext(ctx).Error("reset email render failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Subject", msg.Subject)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msg.HTML))
}
