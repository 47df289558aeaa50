package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/phrazzld/adsmith-api/internal/platform/logger"
)

// LocalStore keeps objects under a directory on disk. The API serves that directory
// through Handler.
type LocalStore struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates root if needed.
func NewLocalStore(root, publicBaseURL string, log *slog.Logger) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local store root cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local store root: %w", err)
	}
	return &LocalStore{
		root:    abs,
		baseURL: publicBaseURL,
		logger:  log.With(slog.String("component", "local_object_store")),
	}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the store root", ErrInvalidKey, key)
	}
	return p, nil
}

// Put writes data atomically by renaming a temporary file into place.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary object: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write object: %w", errors.Join(writeErr, closeErr))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to set object permissions: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to move object into place: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).DebugContext(ctx, "stored object",
		slog.String("key", key),
		slog.String("content_type", contentType),
		slog.Int("bytes", len(data)))
	return publicURL(s.baseURL, key), nil
}

// Delete removes the object file.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).DebugContext(ctx, "deleted object", slog.String("key", key))
	return nil
}

// Handler serves stored objects. Mount it with the public base path stripped.
// Directory listings are not served.
func (s *LocalStore) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
