// Package objectstore stores generated images and returns the public URLs they are
// served from. Two backends are provided: Google Cloud Storage for deployments and
// the local filesystem for development.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys that are empty or escape the store's namespace.
var ErrInvalidKey = errors.New("invalid object key")

// Store persists objects by key.
type Store interface {
	// Put writes data under key and returns the URL it can be fetched from.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "generations"

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ExtensionFor returns the file extension for mimeType, defaulting to png.
func ExtensionFor(mimeType string) string {
	if ext, ok := extensions[normalizeMIME(mimeType)]; ok {
		return ext
	}
	return "png"
}

// IsRasterMIME reports whether mimeType is one of the raster image types the
// stores accept. Parameters such as charset are ignored.
func IsRasterMIME(mimeType string) bool {
	_, ok := extensions[normalizeMIME(mimeType)]
	return ok
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// NewKey builds a unique key of the form
// generations/{userID|anon}/{unixMillis}-{uuid}.{ext}.
func NewKey(userID uuid.UUID, mimeType string, now time.Time) string {
	owner := "anon"
	if userID != uuid.Nil {
		owner = userID.String()
	}
	return fmt.Sprintf("%s/%s/%d-%s.%s", keyPrefix, owner, now.UnixMilli(), uuid.NewString(), ExtensionFor(mimeType))
}

// validateKey rejects keys that could not have come from NewKey-style naming.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
