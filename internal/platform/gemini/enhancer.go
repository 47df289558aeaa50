package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/adsmith-api/internal/config"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/platform/httpretry"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/redact"
)

const (
	enhanceSystemInstruction = "You are an expert prompt engineer for AI image generation. " +
		"Transform the user's brief into a detailed, vivid prompt for a commercial beauty product advertisement. " +
		"Include: subject details, composition, camera technique, lighting setup, color palette, textures, mood, " +
		"and professional photography keywords. Return ONLY the enhanced prompt as a single paragraph."

	// minEnhancedLength is the shortest text accepted as a real rewrite.
	minEnhancedLength = 10

	// maxTextResponseBytes caps how much of a text response is read.
	maxTextResponseBytes = 4 << 20

	// diagnosticSnippet is how much of an unusable response is logged.
	diagnosticSnippet = 2000

	targetEnhance = "gemini.enhance"
)

// Fixed sampling parameters for prompt enhancement.
var (
	enhanceTemperature = 0.7
	enhanceTopK        = 40
	enhanceTopP        = 0.95
)

// Enhancer implements generation.PromptEnhancer over the generateContent endpoint.
type Enhancer struct {
	client   *httpretry.Client
	endpoint endpoint
	policy   httpretry.Policy
	logger   *slog.Logger
}

var _ generation.PromptEnhancer = (*Enhancer)(nil)

// NewEnhancer creates an Enhancer for cfg.TextModel.
//
// Returns generation.ErrNotConfigured when cfg carries no credential.
func NewEnhancer(client *httpretry.Client, cfg config.LLMConfig, log *slog.Logger) (*Enhancer, error) {
	if client == nil {
		return nil, errors.New("retry client cannot be nil")
	}
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key is empty", generation.ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.TextModel) == "" {
		return nil, fmt.Errorf("%w: text model is empty", generation.ErrNotConfigured)
	}

	return &Enhancer{
		client:   client,
		endpoint: newEndpoint(cfg, cfg.TextModel),
		policy:   policyFromConfig(cfg),
		logger:   log.With(slog.String("component", "gemini_enhancer")),
	}, nil
}

// Enhance rewrites prompt into a detailed photography prompt. style is optional.
func (e *Enhancer) Enhance(ctx context.Context, prompt, style string) (string, error) {
	if e == nil || e.client == nil || e.endpoint.apiKey == "" {
		return "", generation.ErrNotConfigured
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", generation.ErrInvalidInput)
	}

	log := logger.FromContextOrDefault(ctx, e.logger)

	message := enhanceSystemInstruction + "\n\nUser prompt: " + prompt
	if style = strings.TrimSpace(style); style != "" {
		message += "\nStyle: " + style
	}
	body, err := marshalRequest(userMessage(message, generationConfig{
		Temperature:     &enhanceTemperature,
		TopK:            &enhanceTopK,
		TopP:            &enhanceTopP,
		MaxOutputTokens: 1024,
	}))
	if err != nil {
		return "", err
	}

	log.DebugContext(ctx, "requesting prompt enhancement",
		slog.String("model", e.endpoint.model),
		slog.Int("prompt_length", len(prompt)),
		slog.String("style", style))

	resp, err := e.client.Execute(ctx, targetEnhance, e.endpoint.requestFunc(body), e.policy)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := readBody(ctx, resp.Body, maxTextResponseBytes)
	if err != nil {
		return "", err
	}

	text, err := ExtractText(raw)
	if n := utf8.RuneCountInString(text); err == nil && n < minEnhancedLength {
		err = fmt.Errorf("%w: enhanced prompt is only %d characters", generation.ErrEmptyOrMissingText, n)
	}
	if err != nil {
		log.ErrorContext(ctx, "unusable enhancement response",
			slog.String("error", err.Error()),
			slog.String("raw", redact.Snippet(string(raw), diagnosticSnippet)))
		return "", err
	}

	log.InfoContext(ctx, "prompt enhanced",
		slog.Int("prompt_length", len(prompt)),
		slog.Int("enhanced_length", len(text)))
	return text, nil
}
