package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/adsmith-api/internal/config"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/platform/httpretry"
)

// oauthTokenPrefix identifies Google OAuth access tokens, which are sent as bearer
// credentials instead of API keys.
const oauthTokenPrefix = "ya29."

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

func userMessage(text string, cfg generationConfig) generateContentRequest {
	return generateContentRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: text}}}},
		GenerationConfig: cfg,
	}
}

// endpoint identifies one generateContent call target.
type endpoint struct {
	baseURL string
	apiKey  string
	model   string
}

func newEndpoint(cfg config.LLMConfig, model string) endpoint {
	return endpoint{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.GeminiAPIKey,
		model:   model,
	}
}

func (e endpoint) url() string {
	return fmt.Sprintf("%s/models/%s:generateContent", e.baseURL, url.PathEscape(e.model))
}

// requestFunc returns a builder that produces a fresh request per attempt.
func (e endpoint) requestFunc(body []byte) httpretry.RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if strings.HasPrefix(e.apiKey, oauthTokenPrefix) {
			req.Header.Set("Authorization", "Bearer "+e.apiKey)
		} else {
			req.Header.Set("x-goog-api-key", e.apiKey)
		}
		return req, nil
	}
}

// readBody reads a successful response of at most limit bytes. A larger document is
// rejected with generation.ErrResponseTooLarge. A read failure caused by the caller
// going away is reported as httpretry.ErrAborted.
func readBody(ctx context.Context, body io.Reader, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", httpretry.ErrAborted, ctx.Err())
		}
		return nil, fmt.Errorf("%w: failed to read response body: %w", httpretry.ErrTransient, err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", generation.ErrResponseTooLarge, limit)
	}
	return raw, nil
}

func marshalRequest(r generateContentRequest) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return b, nil
}

// policyFromConfig builds the retry policy shared by the adapters. Zero values in the
// configuration keep the httpretry defaults.
func policyFromConfig(cfg config.LLMConfig) httpretry.Policy {
	p := httpretry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelayMillis > 0 {
		p.BaseDelay = time.Duration(cfg.BaseDelayMillis) * time.Millisecond
	}
	if cfg.AttemptTimeoutSeconds > 0 {
		p.PerAttemptTimeout = time.Duration(cfg.AttemptTimeoutSeconds) * time.Second
	}
	return p
}
