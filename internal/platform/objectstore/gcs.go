package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

var _ Store = (*GCSStore)(nil)

// NewGCSStore wraps an existing client. When publicBaseURL is empty the objects are
// addressed through https://storage.googleapis.com/{bucket}.
func NewGCSStore(client *storage.Client, bucket, publicBaseURL string, log *slog.Logger) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage client cannot be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	if publicBaseURL == "" {
		publicBaseURL = DefaultGCSBaseURL(bucket)
	}
	return &GCSStore{
		client:  client,
		bucket:  bucket,
		baseURL: publicBaseURL,
		logger:  log.With(slog.String("component", "gcs_object_store"), slog.String("bucket", bucket)),
	}, nil
}

// DefaultGCSBaseURL is the public URL prefix of a bucket.
func DefaultGCSBaseURL(bucket string) string {
	return "https://storage.googleapis.com/" + bucket
}

// Put uploads data with the given content type.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %q: %w", key, err)
	}

	logger.FromContextOrDefault(ctx, s.logger).DebugContext(ctx, "uploaded object",
		slog.String("key", key),
		slog.String("content_type", contentType),
		slog.Int("bytes", len(data)))
	return publicURL(s.baseURL, key), nil
}

// Delete removes the object. A missing object is ignored.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}
