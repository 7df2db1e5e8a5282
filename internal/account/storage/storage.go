// Package storage abstracts object storage for user file upload and
// download. Clients never stream bytes through the account service; they
// get presigned URLs and talk to the provider directly.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ObjectStore issues presigned URLs for a single configured bucket.
type ObjectStore interface {
	// PresignUpload returns a URL authorizing a PUT of the object key.
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)

	// PresignDownload returns a URL authorizing a GET of the object key.
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Config selects and configures a provider. COS and other S3-compatible
// stores are reached through the s3 provider with a custom endpoint.
type Config struct {
	Provider     string // "s3" or "" (disabled)
	Bucket       string
	Region       string
	Endpoint     string // optional custom endpoint (COS, MinIO)
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// ErrDisabled is returned by New when no provider is configured.
var ErrDisabled = errors.New("storage: no provider configured")

// New builds the configured ObjectStore.
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Provider {
	case "":
		return nil, ErrDisabled
	case "s3", "cos":
		return newS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
