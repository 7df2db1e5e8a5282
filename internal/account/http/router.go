package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tidehaven/accountd/internal/account/mail"
	"github.com/tidehaven/accountd/internal/account/service"
	"github.com/tidehaven/accountd/internal/account/storage"
	"github.com/tidehaven/accountd/internal/account/store"
	"github.com/tidehaven/accountd/pkg/httpx"
	"github.com/tidehaven/accountd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService *service.AuthService
	UserService *service.UserService
	Mailer      mail.Mailer
	Files       storage.ObjectStore // nil when no provider is configured

	FrontendURL string
	PresignTTL  time.Duration
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	rt := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
	}

	rt.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(rt.logger),
	}

	return rt
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(rt.Mux, rt.middlewares...).ServeHTTP(w, req)
}

func (rt *Router) ApplyRoutes() {
	rt.registerLogin()
	rt.registerUsers()
	rt.registerFiles()
	rt.registerSystem()
}

func (rt *Router) registerLogin() {
	rt.Mux.HandleFunc("POST /v1/login/access-token", rt.handleLogin)
	rt.Mux.Handle("POST /v1/login/test-token",
		rt.requireUser(http.HandlerFunc(rt.handleTestToken)))
	rt.Mux.HandleFunc("POST /v1/login/password-recovery/{email}", rt.handlePasswordRecovery)
	rt.Mux.HandleFunc("POST /v1/login/reset-password", rt.handleResetPassword)
	rt.Mux.Handle("POST /v1/login/password-recovery-html-content/{email}",
		httpx.Chain(http.HandlerFunc(rt.handleRecoveryHTMLContent),
			rt.requireUser, rt.requireSuperuser))
}

func (rt *Router) registerUsers() {
	admin := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, rt.requireUser, rt.requireSuperuser)
	}

	rt.Mux.Handle("GET /v1/users", admin(rt.handleListUsers))
	rt.Mux.Handle("POST /v1/users", admin(rt.handleCreateUser))
	rt.Mux.HandleFunc("POST /v1/users/signup", rt.handleSignup)

	rt.Mux.Handle("GET /v1/users/me", rt.requireUser(http.HandlerFunc(rt.handleReadMe)))
	rt.Mux.Handle("PATCH /v1/users/me", rt.requireUser(http.HandlerFunc(rt.handleUpdateMe)))
	rt.Mux.Handle("PATCH /v1/users/me/password", rt.requireUser(http.HandlerFunc(rt.handleUpdateMyPassword)))
	rt.Mux.Handle("DELETE /v1/users/me", rt.requireUser(http.HandlerFunc(rt.handleDeleteMe)))

	rt.Mux.Handle("GET /v1/users/{user_id}", rt.requireUser(http.HandlerFunc(rt.handleReadUser)))
	rt.Mux.Handle("PATCH /v1/users/{user_id}", admin(rt.handleUpdateUser))
	rt.Mux.Handle("DELETE /v1/users/{user_id}", admin(rt.handleDeleteUser))
}

func (rt *Router) registerFiles() {
	rt.Mux.Handle("POST /v1/files/presign-upload",
		rt.requireUser(http.HandlerFunc(rt.handlePresignUpload)))
	rt.Mux.Handle("POST /v1/files/presign-download",
		rt.requireUser(http.HandlerFunc(rt.handlePresignDownload)))
}

func (rt *Router) registerSystem() {
	rt.Mux.HandleFunc("GET /livez", rt.handleLivez)
	rt.Mux.HandleFunc("GET /readyz", rt.handleReadyz)
}
