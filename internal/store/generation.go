package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
)

// GenerationStore defines the interface for generation record persistence.
type GenerationStore interface {
	// Create saves a validated generation record.
	// Returns ErrInvalidEntity if the owning user does not exist.
	Create(ctx context.Context, generation *domain.Generation) error

	// ListByUser returns one page of the user's generations, newest first,
	// together with the total number of records the user owns.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Generation, int, error)

	// DeleteOwned removes the generation only if it belongs to userID and
	// returns the deleted record so the caller can clean up its objects.
	// Returns ErrGenerationNotFound otherwise.
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) (*domain.Generation, error)
}
