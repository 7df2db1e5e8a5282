package http

import (
	"net/http"

	"github.com/tidehaven/accountd/pkg/httpx"
	"github.com/tidehaven/accountd/pkg/slogx"
)

// handlePresignUpload issues a presigned PUT URL for the configured bucket.
// The service never proxies object bytes.
func (rt *Router) handlePresignUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if rt.Files == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	req, ok := decodeJSON[presignUploadRequest](w, r)
	if !ok {
		return
	}

	url, err := rt.Files.PresignUpload(ctx, req.Key, req.ContentType, rt.PresignTTL)
	if err != nil {
		slogx.FromContext(ctx).Error("presign upload failed", "key", req.Key, "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, PresignedURL{
		URL:       url,
		ExpiresIn: int64(rt.PresignTTL.Seconds()),
	})
}

// handlePresignDownload issues a presigned GET URL.
func (rt *Router) handlePresignDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if rt.Files == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	req, ok := decodeJSON[presignDownloadRequest](w, r)
	if !ok {
		return
	}

	url, err := rt.Files.PresignDownload(ctx, req.Key, rt.PresignTTL)
	if err != nil {
		slogx.FromContext(ctx).Error("presign download failed", "key", req.Key, "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, PresignedURL{
		URL:       url,
		ExpiresIn: int64(rt.PresignTTL.Seconds()),
	})
}
