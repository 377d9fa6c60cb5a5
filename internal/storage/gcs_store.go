package storage

import (
	"context"
	"io"

	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"cloud.google.com/go/storage"
)

// GCSStore uploads to Google Cloud Storage using application default credentials.
type GCSStore struct {
	client        *storage.Client
	publicBaseURL string
}

// GCSStoreConfig holds configuration for GCSStore.
type GCSStoreConfig struct {
	PublicBaseURL string
}

// NewGCSStore creates a new GCS-backed object store.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create GCS client")
	}
	return &GCSStore{client: client, publicBaseURL: cfg.PublicBaseURL}, nil
}

func (s *GCSStore) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) (result0 string, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "GCSStore.Upload", observability.AttributeObjectPath(bucket, path)...)
	defer observability.FinishSpan(span, &err)

	if err := validateObjectPath(bucket, path); err != nil {
		return "", err
	}

	w := s.client.Bucket(bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", uploadError("gcs", err)
	}
	if err := w.Close(); err != nil {
		return "", uploadError("gcs", err)
	}

	return s.PublicURL(bucket, path), nil
}

func (s *GCSStore) PublicURL(bucket, path string) string {
	base := s.publicBaseURL
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return joinURL(base, bucket, path)
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
