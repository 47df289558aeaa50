package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/adsmith-api/internal/config"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"google.golang.org/genai"
)

// maxModelPages bounds pagination of the model listing.
const maxModelPages = 10

// modelsAPI is the part of the genai SDK the lister uses.
type modelsAPI interface {
	List(ctx context.Context, cfg *genai.ListModelsConfig) (genai.Page[genai.Model], error)
}

// ModelLister implements generation.ModelLister with the genai SDK.
type ModelLister struct {
	models modelsAPI
	logger *slog.Logger
}

var _ generation.ModelLister = (*ModelLister)(nil)

// NewModelLister creates a genai client for the Gemini API backend.
func NewModelLister(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (*ModelLister, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key is empty", generation.ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %v", generation.ErrNotConfigured, err)
	}

	return newModelLister(client.Models, log), nil
}

func newModelLister(models modelsAPI, log *slog.Logger) *ModelLister {
	return &ModelLister{
		models: models,
		logger: log.With(slog.String("component", "gemini_models")),
	}
}

// ListModels returns every model visible to the credential.
func (l *ModelLister) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	if l == nil || l.models == nil {
		return nil, generation.ErrNotConfigured
	}
	log := logger.FromContextOrDefault(ctx, l.logger)

	var out []domain.ModelInfo
	page, err := l.models.List(ctx, &genai.ListModelsConfig{})
	for pages := 1; ; pages++ {
		if errors.Is(err, genai.ErrPageDone) {
			break
		}
		if err != nil {
			log.ErrorContext(ctx, "failed to list models", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		for _, m := range page.Items {
			if m == nil {
				continue
			}
			out = append(out, domain.ModelInfo{
				Name:             m.Name,
				DisplayName:      m.DisplayName,
				Description:      m.Description,
				SupportedActions: m.SupportedActions,
			})
		}
		if page.NextPageToken == "" || pages >= maxModelPages {
			break
		}
		page, err = l.models.List(ctx, &genai.ListModelsConfig{PageToken: page.NextPageToken})
	}

	log.DebugContext(ctx, "listed models", slog.Int("count", len(out)))
	return out, nil
}
