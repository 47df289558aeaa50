package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/store"
)

const generationColumns = `id, user_id, original_prompt, enhanced_prompt, style_preset, image_urls, image_keys, created_at`

// PostgresGenerationStore implements store.GenerationStore on PostgreSQL.
// Image URLs and keys live in text[] columns. Arrays are passed to the pgx
// driver as []string and scanned back through a pgtype.Map.
type PostgresGenerationStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// NewPostgresGenerationStore creates a generation store. Deletes run in their
// own transaction, so a *sql.DB is required rather than a store.DBTX.
func NewPostgresGenerationStore(db *sql.DB, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Create implements store.GenerationStore.Create.
func (s *PostgresGenerationStore) Create(ctx context.Context, g *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := g.Validate(); err != nil {
		log.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()))
		return err
	}

	keys := g.ImageKeys
	if keys == nil {
		keys = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (`+generationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.UserID, g.OriginalPrompt, g.EnhancedPrompt, g.StylePreset, g.ImageURLs, keys, g.CreatedAt)
	if err != nil {
		log.Error("failed to insert generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()),
			slog.String("user_id", g.UserID.String()))
		return store.NewStoreError("generation", "create", "failed to insert generation", MapError(err))
	}

	log.Debug("generation created", slog.String("generation_id", g.ID.String()))
	return nil
}

// ListByUser implements store.GenerationStore.ListByUser.
func (s *PostgresGenerationStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.Generation, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM generations WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		log.Error("failed to count generations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, store.NewStoreError("generation", "list", "failed to count generations", MapError(err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+generationColumns+`
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		log.Error("failed to list generations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, store.NewStoreError("generation", "list", "failed to list generations", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	typeMap := pgtype.NewMap()
	generations := make([]domain.Generation, 0, limit)
	for rows.Next() {
		g, err := scanGeneration(rows, typeMap)
		if err != nil {
			return nil, 0, store.NewStoreError("generation", "list", "failed to scan generation", err)
		}
		generations = append(generations, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.NewStoreError("generation", "list", "failed to iterate generations", MapError(err))
	}

	return generations, total, nil
}

// DeleteOwned implements store.GenerationStore.DeleteOwned. The row is locked,
// read and deleted in one transaction so the returned record matches what was removed.
func (s *PostgresGenerationStore) DeleteOwned(ctx context.Context, id, userID uuid.UUID) (*domain.Generation, error) {
	var deleted *domain.Generation

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+generationColumns+`
			FROM generations
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, id, userID)
		g, err := scanGeneration(row, pgtype.NewMap())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ErrGenerationNotFound
			}
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, store.ErrGenerationNotFound); err != nil {
			return err
		}

		deleted = g
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrGenerationNotFound) {
			return nil, err
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return nil, store.NewStoreError("generation", "delete", "failed to delete generation", err)
	}

	return deleted, nil
}

func scanGeneration(row rowScanner, typeMap *pgtype.Map) (*domain.Generation, error) {
	var g domain.Generation
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&g.OriginalPrompt,
		&g.EnhancedPrompt,
		&g.StylePreset,
		typeMap.SQLScanner(&g.ImageURLs),
		typeMap.SQLScanner(&g.ImageKeys),
		&g.CreatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}
	if len(g.ImageKeys) != 0 && len(g.ImageKeys) != len(g.ImageURLs) {
		return nil, fmt.Errorf("%w: generation %s has %d keys for %d urls",
			store.ErrInvalidEntity, g.ID, len(g.ImageKeys), len(g.ImageURLs))
	}
	return &g, nil
}
