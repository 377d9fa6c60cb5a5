package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"devlense/internal/observability"
	contextutils "devlense/internal/utils"
)

// FileStore keeps objects under a local directory, one subdirectory per bucket.
// The directory is served by the HTTP router at baseURL.
type FileStore struct {
	baseDir string
	baseURL string
}

// NewFileStore creates the base directory if needed
func NewFileStore(baseDir, baseURL string) (*FileStore, error) {
	if baseDir == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "file store directory is required")
	}
	//nolint:gosec // G301: uploaded images are served publicly
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to ensure storage dir %s", baseDir)
	}
	return &FileStore{baseDir: baseDir, baseURL: baseURL}, nil
}

// Root is the directory served as static files
func (s *FileStore) Root() string {
	return s.baseDir
}

// Upload writes to a temp file and renames it into place so readers never see a partial image.
func (s *FileStore) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) (result0 string, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "FileStore.Upload", observability.AttributeObjectPath(bucket, path)...)
	defer observability.FinishSpan(span, &err)

	if err := validateObjectPath(bucket, path); err != nil {
		return "", err
	}

	target := filepath.Join(s.baseDir, bucket, filepath.FromSlash(path))
	//nolint:gosec // G301: see NewFileStore
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", uploadError("fs", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", uploadError("fs", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	written, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		return "", uploadError("fs", copyErr)
	}
	if closeErr != nil {
		return "", uploadError("fs", closeErr)
	}
	if size >= 0 && written != size {
		return "", uploadError("fs", fmt.Errorf("short write: %d of %d bytes", written, size))
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", uploadError("fs", err)
	}

	return s.PublicURL(bucket, path), nil
}

// PublicURL returns baseURL/bucket/path
func (s *FileStore) PublicURL(bucket, path string) string {
	return joinURL(s.baseURL, bucket, path)
}
