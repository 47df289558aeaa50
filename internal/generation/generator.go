package generation

import (
	"context"

	"github.com/phrazzld/adsmith-api/internal/domain"
)

// PromptEnhancer rewrites a short user brief into a detailed image prompt.
type PromptEnhancer interface {
	// Enhance returns the refined prompt. style may be empty.
	Enhance(ctx context.Context, prompt, style string) (string, error)
}

// ImageGenerator produces one image for a request. It does not persist anything;
// req.Variations is ignored and callers fan out themselves.
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Image, error)
}

// ModelLister lists the models available to the configured credential.
type ModelLister interface {
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)
}
