package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	userID := uuid.MustParse("6f1c0a52-52e4-4b0e-9d5b-0b8f8f7a3c11")

	key := NewKey(userID, "image/jpeg", now)
	pattern := regexp.MustCompile(`^generations/6f1c0a52-52e4-4b0e-9d5b-0b8f8f7a3c11/1700000000123-[0-9a-f-]{36}\.jpg$`)
	assert.Regexp(t, pattern, key)

	anon := NewKey(uuid.Nil, "", now)
	assert.Regexp(t, regexp.MustCompile(`^generations/anon/1700000000123-[0-9a-f-]{36}\.png$`), anon)

	assert.NotEqual(t, NewKey(userID, "image/png", now), NewKey(userID, "image/png", now))
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"image/png":                "png",
		"image/jpeg":               "jpg",
		"IMAGE/WEBP":               "webp",
		"image/gif; charset=bin":   "gif",
		"application/octet-stream": "png",
		"":                         "png",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtensionFor(in), "mime %q", in)
	}
}

func TestIsRasterMIME(t *testing.T) {
	tests := map[string]bool{
		"image/png":                true,
		"IMAGE/JPEG; charset=bin":  true,
		"image/webp":               true,
		"image/svg+xml":            false,
		"text/xml; charset=utf-8":  false,
		"application/octet-stream": false,
		"":                         false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsRasterMIME(in), "mime %q", in)
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"generations/anon/1-a.png", "a/b/c.png", "x.png"}
	for _, k := range valid {
		assert.NoError(t, validateKey(k), k)
	}
	invalid := []string{"", "/abs/path.png", "a/../b.png", "../escape.png", "a//b.png", `a\b.png`, "a/./b.png"}
	for _, k := range invalid {
		assert.ErrorIs(t, validateKey(k), ErrInvalidKey, k)
	}
}

func TestLocalStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://localhost:8080/media/", nil)
	require.NoError(t, err)

	ctx := context.Background()
	key := "generations/anon/1-abc.png"
	url, err := store.Put(ctx, key, []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/generations/anon/1-abc.png", url)

	path := filepath.Join(root, "generations", "anon", "1-abc.png")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/media", nil)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../etc/passwd", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, store.Delete(context.Background(), "../x"), ErrInvalidKey)
}

func TestLocalStoreHandler(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/media", nil)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "generations/anon/1-a.png", []byte("\x89PNG\r\n\x1a\n"), "image/png")
	require.NoError(t, err)

	handler := http.StripPrefix("/media", store.Handler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/generations/anon/1-a.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), body)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/generations/anon/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/generations/anon/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewGCSStoreValidation(t *testing.T) {
	_, err := NewGCSStore(nil, "bucket", "", nil)
	assert.Error(t, err)
	assert.Equal(t, "https://storage.googleapis.com/generations", DefaultGCSBaseURL("generations"))
}
