// Package storage is the object storage boundary for submission attachments.
package storage

import (
	"context"
	"io"
	"strings"

	"devlense/internal/config"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"
)

// ObjectStore uploads attachment bodies and resolves their public URLs.
type ObjectStore interface {
	// Upload stores body at path inside bucket and returns the public URL of the object.
	Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) (string, error)
	// PublicURL returns the URL an uploaded object is reachable at.
	PublicURL(bucket, path string) string
}

// StoreType represents the type of object storage backend.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewObjectStore creates the backend named by cfg.Type
func NewObjectStore(ctx context.Context, cfg *config.StorageConfig, logger *observability.Logger) (ObjectStore, error) {
	storeType := StoreType(cfg.Type)
	if storeType == "" {
		storeType = StoreTypeFS
	}

	logger.Info(ctx, "Initializing object store", map[string]interface{}{
		"type":   string(storeType),
		"bucket": cfg.Bucket,
	})

	switch storeType {
	case StoreTypeFS:
		return NewFileStore(cfg.DataDir, joinURL(cfg.PublicBaseURL, config.StorageRoute))
	case StoreTypeS3:
		return NewS3Store(ctx, S3StoreConfig{
			Region:        cfg.S3.Region,
			Endpoint:      cfg.S3.Endpoint,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	case StoreTypeGCS:
		return NewGCSStore(ctx, GCSStoreConfig{PublicBaseURL: cfg.PublicBaseURL})
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported object storage type: %s", storeType)
	}
}

// validateObjectPath rejects empty names and anything that could escape the bucket.
func validateObjectPath(bucket, path string) error {
	if bucket == "" || path == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "bucket and path are required")
	}
	if strings.ContainsAny(bucket, "/\\") {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid bucket name: %s", bucket)
	}
	if strings.HasPrefix(path, "/") || strings.Contains(path, "\\") {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid object path: %s", path)
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid object path: %s", path)
		}
	}
	return nil
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		out += "/" + p
	}
	if out == "" {
		return "/"
	}
	return out
}

func uploadError(backend string, err error) error {
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeUploadFailed, contextutils.SeverityError,
		backend+" upload failed", err.Error(), err)
}

