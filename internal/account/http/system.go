package http

import (
	"net/http"
	"time"

	"github.com/tidehaven/accountd/pkg/httpx"
	"github.com/tidehaven/accountd/pkg/slogx"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// handleLivez reports process liveness. It never touches dependencies.
func (rt *Router) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: rt.buildVersion,
		Uptime:  time.Since(rt.startTime).Truncate(time.Second).String(),
	})
}

// handleReadyz reports readiness to serve, which requires the store.
func (rt *Router) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := rt.store.Ping(ctx); err != nil {
		slogx.FromContext(ctx).Warn("readiness check failed", "err", err)
		httpx.Error(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:  "ready",
		Version: rt.buildVersion,
		Uptime:  time.Since(rt.startTime).Truncate(time.Second).String(),
	})
}
