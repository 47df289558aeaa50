package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/adsmith-api/internal/config"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/platform/httpretry"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/platform/objectstore"
	"github.com/phrazzld/adsmith-api/internal/redact"
)

const (
	targetImage = "gemini.image"

	// imageBaseDelay is the backoff unit for image calls, which are slower to
	// recover than text calls.
	imageBaseDelay = 400 * time.Millisecond

	maxRedirects = 5
)

// ImageGenerator implements generation.ImageGenerator over the generateContent endpoint.
type ImageGenerator struct {
	client     *httpretry.Client
	downloader *http.Client
	guard      URLGuard
	endpoint   endpoint
	policy     httpretry.Policy
	maxBytes   int64
	logger     *slog.Logger
}

var _ generation.ImageGenerator = (*ImageGenerator)(nil)

// ImageOption configures an ImageGenerator.
type ImageOption func(*ImageGenerator)

// WithDownloader sets the client used to fetch images returned by URL.
func WithDownloader(c *http.Client) ImageOption {
	return func(g *ImageGenerator) {
		if c != nil {
			g.downloader = c
		}
	}
}

// WithURLGuard replaces the SSRF guard applied before every download.
func WithURLGuard(guard URLGuard) ImageOption {
	return func(g *ImageGenerator) {
		if guard != nil {
			g.guard = guard
		}
	}
}

// NewImageGenerator creates an ImageGenerator for cfg.ImageModel.
//
// Returns generation.ErrNotConfigured when cfg carries no credential.
func NewImageGenerator(client *httpretry.Client, cfg config.LLMConfig, log *slog.Logger, opts ...ImageOption) (*ImageGenerator, error) {
	if client == nil {
		return nil, errors.New("retry client cannot be nil")
	}
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key is empty", generation.ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.ImageModel) == "" {
		return nil, fmt.Errorf("%w: image model is empty", generation.ErrNotConfigured)
	}

	policy := policyFromConfig(cfg)
	policy.BaseDelay = imageBaseDelay

	g := &ImageGenerator{
		client:   client,
		guard:    SafeURLGuard(nil),
		endpoint: newEndpoint(cfg, cfg.ImageModel),
		policy:   policy,
		maxBytes: cfg.MaxImageBytes,
		logger:   log.With(slog.String("component", "gemini_image")),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.maxBytes <= 0 {
		g.maxBytes = 20 << 20
	}
	if g.downloader == nil {
		g.downloader = &http.Client{
			Timeout:       policy.PerAttemptTimeout,
			CheckRedirect: g.checkRedirect,
		}
	}
	return g, nil
}

// Generate asks the image model for one image and returns the decoded bytes.
func (g *ImageGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Image, error) {
	if g == nil || g.client == nil || g.endpoint.apiKey == "" {
		return nil, generation.ErrNotConfigured
	}
	if req.Variations == 0 {
		req.Variations = 1
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrInvalidInput, err)
	}

	log := logger.FromContextOrDefault(ctx, g.logger)

	composed := req.Prompt
	if req.Style != "" {
		composed += ", style: " + req.Style
	}
	text := fmt.Sprintf(
		"Generate a single image (%dx%d) from this prompt. Return the image inline as base64 (or a direct URL). Prompt: %s",
		req.Width, req.Height, composed)

	body, err := marshalRequest(userMessage(text, generationConfig{MaxOutputTokens: 1024}))
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "requesting image generation",
		slog.String("model", g.endpoint.model),
		slog.Int("width", req.Width),
		slog.Int("height", req.Height))

	resp, err := g.client.Execute(ctx, targetImage, g.endpoint.requestFunc(body), g.policy)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Inline payloads are base64, so the document may legitimately be a third larger
	// than the image itself.
	raw, err := readBody(ctx, resp.Body, g.maxBytes*2)
	if err != nil {
		return nil, err
	}

	payload, err := ExtractImage(raw)
	if err != nil {
		log.ErrorContext(ctx, "no image data in upstream response",
			slog.String("raw", redact.Snippet(string(raw), diagnosticSnippet)))
		return nil, err
	}

	var img *domain.Image
	switch payload.Kind {
	case PayloadImageBytes:
		if int64(len(payload.Data)) > g.maxBytes {
			return nil, fmt.Errorf("%w: inline image is %d bytes", generation.ErrNoImageData, len(payload.Data))
		}
		img = &domain.Image{Data: payload.Data, MIMEType: payload.MIMEType}
	case PayloadRemoteURL:
		img, err = g.download(ctx, payload.URL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, generation.ErrNoImageData
	}

	if !objectstore.IsRasterMIME(img.MIMEType) {
		img.MIMEType = http.DetectContentType(img.Data)
		if !objectstore.IsRasterMIME(img.MIMEType) {
			return nil, fmt.Errorf("%w: unsupported content type %q", generation.ErrNoImageData, img.MIMEType)
		}
	}

	log.InfoContext(ctx, "image generated",
		slog.String("source", payload.Kind.String()),
		slog.String("mime_type", img.MIMEType),
		slog.Int("bytes", len(img.Data)))
	return img, nil
}

func (g *ImageGenerator) download(ctx context.Context, rawURL string) (*domain.Image, error) {
	if err := g.guard(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrDownloadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrDownloadFailed, err)
	}
	resp, err := g.downloader.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", httpretry.ErrAborted, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", generation.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, diagnosticSnippet))
		logger.FromContextOrDefault(ctx, g.logger).WarnContext(ctx, "image download failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", redact.String(string(snippet))))
		return nil, fmt.Errorf("%w: status %d", generation.ErrDownloadFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", httpretry.ErrAborted, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", generation.ErrDownloadFailed, err)
	}
	if int64(len(data)) > g.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", generation.ErrDownloadFailed, g.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", generation.ErrDownloadFailed)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return &domain.Image{Data: data, MIMEType: strings.TrimSpace(mimeType)}, nil
}

func (g *ImageGenerator) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return g.guard(req.Context(), req.URL.String())
}
