package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func allowAll(context.Context, string) error { return nil }

func inlineImageResponse(data []byte, mimeType string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"inlineData": map[string]any{
					"mimeType": mimeType,
					"data":     base64.StdEncoding.EncodeToString(data),
				}},
			}}},
		},
	})
	return string(b)
}

func testGenerationRequest() domain.GenerationRequest {
	return domain.GenerationRequest{Prompt: "red lipstick", Style: "catalog", Width: 512, Height: 768, Variations: 1}
}

func TestImageGeneratorInline(t *testing.T) {
	var captured generateContentRequest
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = io.WriteString(w, inlineImageResponse(pngHeader, "image/png"))
	}))
	defer server.Close()

	gen, err := NewImageGenerator(testRetryClient(server.Client()), testLLMConfig(server.URL), testLogger())
	require.NoError(t, err)

	img, err := gen.Generate(context.Background(), testGenerationRequest())
	require.NoError(t, err)
	assert.Equal(t, pngHeader, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)

	assert.Equal(t, "/models/image-model:generateContent", gotPath)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t,
		"Generate a single image (512x768) from this prompt. Return the image inline as base64 (or a direct URL). "+
			"Prompt: red lipstick, style: catalog",
		captured.Contents[0].Parts[0].Text)
	assert.Equal(t, 1024, captured.GenerationConfig.MaxOutputTokens)
	assert.Nil(t, captured.GenerationConfig.Temperature)
}

func TestImageGeneratorSniffsMissingMIME(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"b64":"`+base64.StdEncoding.EncodeToString(pngHeader)+`"}`)
	}))
	defer server.Close()

	gen, err := NewImageGenerator(testRetryClient(server.Client()), testLLMConfig(server.URL), testLogger())
	require.NoError(t, err)

	img, err := gen.Generate(context.Background(), testGenerationRequest())
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestImageGeneratorContentTypes(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	tests := []struct {
		name     string
		data     []byte
		mimeType string
		wantMIME string
		wantErr  bool
	}{
		{name: "raster type kept", data: pngHeader, mimeType: "image/webp", wantMIME: "image/webp"},
		{name: "svg rejected", data: svg, mimeType: "image/svg+xml", wantErr: true},
		{name: "svg label on png bytes is sniffed", data: pngHeader, mimeType: "image/svg+xml", wantMIME: "image/png"},
		{name: "non-image label is sniffed", data: pngHeader, mimeType: "application/octet-stream", wantMIME: "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, inlineImageResponse(tt.data, tt.mimeType))
			}))
			defer server.Close()

			gen, err := NewImageGenerator(testRetryClient(server.Client()), testLLMConfig(server.URL), testLogger())
			require.NoError(t, err)

			img, err := gen.Generate(context.Background(), testGenerationRequest())
			if tt.wantErr {
				assert.ErrorIs(t, err, generation.ErrNoImageData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, img.MIMEType)
		})
	}
}

func TestImageGeneratorRejectsOversizedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, inlineImageResponse(bytes.Repeat([]byte{0x89}, 256), "image/png"))
	}))
	defer server.Close()

	cfg := testLLMConfig(server.URL)
	cfg.MaxImageBytes = 64
	gen, err := NewImageGenerator(testRetryClient(server.Client()), cfg, testLogger())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), testGenerationRequest())
	assert.ErrorIs(t, err, generation.ErrResponseTooLarge)
	assert.NotErrorIs(t, err, generation.ErrNoImageData)
}

func TestImageGeneratorDownloadsRemoteURL(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer cdn.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"url":"`+cdn.URL+`/img.jpg"}`)
	}))
	defer api.Close()

	var guarded atomic.Int32
	guard := func(ctx context.Context, raw string) error {
		guarded.Add(1)
		return nil
	}
	gen, err := NewImageGenerator(testRetryClient(api.Client()), testLLMConfig(api.URL), testLogger(),
		WithURLGuard(guard), WithDownloader(cdn.Client()))
	require.NoError(t, err)

	img, err := gen.Generate(context.Background(), testGenerationRequest())
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), img.Data)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, int32(1), guarded.Load())
}

func TestImageGeneratorDownloadFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		maxSize int64
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
			},
			maxSize: 40,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cdn := httptest.NewServer(tc.handler)
			defer cdn.Close()
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"image":{"url":"`+cdn.URL+`/img.png"}}`)
			}))
			defer api.Close()

			cfg := testLLMConfig(api.URL)
			if tc.maxSize > 0 {
				cfg.MaxImageBytes = tc.maxSize
			}
			gen, err := NewImageGenerator(testRetryClient(api.Client()), cfg, testLogger(),
				WithURLGuard(allowAll), WithDownloader(cdn.Client()))
			require.NoError(t, err)

			_, err = gen.Generate(context.Background(), testGenerationRequest())
			assert.ErrorIs(t, err, generation.ErrDownloadFailed)
		})
	}
}

func TestImageGeneratorBlocksUnsafeURL(t *testing.T) {
	var fetched atomic.Int32
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched.Add(1)
		_, _ = w.Write(pngHeader)
	}))
	defer cdn.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"url":"`+cdn.URL+`/internal.png"}`)
	}))
	defer api.Close()

	// Default guard: httptest listens on loopback, which must be refused.
	gen, err := NewImageGenerator(testRetryClient(api.Client()), testLLMConfig(api.URL), testLogger())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), testGenerationRequest())
	assert.ErrorIs(t, err, generation.ErrDownloadFailed)
	assert.ErrorIs(t, err, ErrUnsafeURL)
	assert.Equal(t, int32(0), fetched.Load())
}

func TestImageGeneratorNoImageData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, textResponse("I am unable to create that image."))
	}))
	defer server.Close()

	gen, err := NewImageGenerator(testRetryClient(server.Client()), testLLMConfig(server.URL), testLogger())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), testGenerationRequest())
	assert.ErrorIs(t, err, generation.ErrNoImageData)
}

func TestImageGeneratorValidation(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	gen, err := NewImageGenerator(testRetryClient(server.Client()), testLLMConfig(server.URL), testLogger())
	require.NoError(t, err)

	tests := []struct {
		name string
		req  domain.GenerationRequest
	}{
		{name: "empty prompt", req: domain.GenerationRequest{Prompt: " ", Width: 10, Height: 10}},
		{name: "zero width", req: domain.GenerationRequest{Prompt: "p", Width: 0, Height: 10}},
		{name: "oversized", req: domain.GenerationRequest{Prompt: "p", Width: 10, Height: 5000}},
		{name: "unknown style", req: domain.GenerationRequest{Prompt: "p", Style: "neon", Width: 10, Height: 10}},
		{name: "too long", req: domain.GenerationRequest{Prompt: strings.Repeat("p", domain.MaxPromptLength+1), Width: 10, Height: 10}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gen.Generate(context.Background(), tc.req)
			assert.ErrorIs(t, err, generation.ErrInvalidInput)
		})
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewImageGeneratorRequiresKey(t *testing.T) {
	cfg := testLLMConfig("http://unused")
	cfg.GeminiAPIKey = " "
	_, err := NewImageGenerator(testRetryClient(http.DefaultClient), cfg, testLogger())
	assert.ErrorIs(t, err, generation.ErrNotConfigured)

	var zero ImageGenerator
	_, err = zero.Generate(context.Background(), testGenerationRequest())
	assert.ErrorIs(t, err, generation.ErrNotConfigured)
}
