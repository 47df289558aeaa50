package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/platform/objectstore"
	"github.com/phrazzld/adsmith-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// Gallery paging bounds.
const (
	DefaultGalleryLimit = 20
	MaxGalleryLimit     = 100
)

// WarningDBInsertFailed is reported when images were stored but the record was not.
const WarningDBInsertFailed = "db_insert_failed"

// Generation outcomes reported to a Recorder.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailure = "failure"
)

const (
	variationConcurrency = 2
	cleanupTimeout       = 10 * time.Second
)

// GenerateInput is one generate request after JSON decoding.
type GenerateInput struct {
	Prompt         string
	EnhancedPrompt string
	StylePreset    string
	Width          int
	Height         int
	Variations     int
}

// GenerateResult holds the public image URLs. GenerationID is nil and Warning
// is set when the record could not be persisted.
type GenerateResult struct {
	ImageURLs    []string
	GenerationID *uuid.UUID
	Warning      string
}

// Gallery is one page of a user's generations.
type Gallery struct {
	Generations []domain.Generation
	Total       int
	Limit       int
	Offset      int
}

// Recorder counts generate outcomes. metrics.Collector satisfies it.
type Recorder interface {
	ObserveGeneration(result string)
}

// GenerationService runs the enhance, generate and gallery use cases.
type GenerationService interface {
	Generate(ctx context.Context, userID uuid.UUID, in GenerateInput) (*GenerateResult, error)
	Enhance(ctx context.Context, prompt, style string) (string, error)
	ListGallery(ctx context.Context, userID uuid.UUID, limit, offset int) (*Gallery, error)
	DeleteGeneration(ctx context.Context, userID, generationID uuid.UUID) error
}

// GenerationServiceImpl implements GenerationService.
type GenerationServiceImpl struct {
	enhancer    generation.PromptEnhancer
	images      generation.ImageGenerator
	objects     objectstore.Store
	generations store.GenerationStore
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
}

var _ GenerationService = (*GenerationServiceImpl)(nil)

// GenerationOption configures a GenerationServiceImpl.
type GenerationOption func(*GenerationServiceImpl)

// WithRecorder reports generate outcomes to r.
func WithRecorder(r Recorder) GenerationOption {
	return func(s *GenerationServiceImpl) {
		if r != nil {
			s.recorder = r
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveGeneration(string) {}

// NewGenerationService creates a GenerationService.
func NewGenerationService(
	enhancer generation.PromptEnhancer,
	images generation.ImageGenerator,
	objects objectstore.Store,
	generations store.GenerationStore,
	logger *slog.Logger,
	opts ...GenerationOption,
) (*GenerationServiceImpl, error) {
	if enhancer == nil || images == nil {
		return nil, fmt.Errorf("%w: generation adapters are required", generation.ErrNotConfigured)
	}
	if objects == nil || generations == nil {
		return nil, errors.New("object store and generation store are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &GenerationServiceImpl{
		enhancer:    enhancer,
		images:      images,
		objects:     objects,
		generations: generations,
		recorder:    nopRecorder{},
		logger:      logger.With(slog.String("component", "generation_service")),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type storedImage struct {
	key string
	url string
}

// Generate renders in.Variations images, uploads them and records the result.
func (s *GenerationServiceImpl) Generate(
	ctx context.Context,
	userID uuid.UUID,
	in GenerateInput,
) (*GenerateResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))

	prompt := strings.TrimSpace(in.Prompt)
	finalPrompt := strings.TrimSpace(in.EnhancedPrompt)
	if finalPrompt == "" {
		finalPrompt = prompt
	}
	if finalPrompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", generation.ErrInvalidInput)
	}

	req, err := domain.NewGenerationRequest(finalPrompt, in.StylePreset, in.Width, in.Height, in.Variations)
	if err != nil {
		return nil, err
	}

	images, err := s.renderAndUpload(ctx, userID, req)
	if err != nil {
		s.recorder.ObserveGeneration(ResultFailure)
		return nil, err
	}

	urls := make([]string, len(images))
	keys := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.url
		keys[i] = img.key
	}
	result := &GenerateResult{ImageURLs: urls}

	record, err := domain.NewGeneration(userID, prompt, finalPrompt, req.Style, urls, keys)
	if err == nil {
		err = s.generations.Create(ctx, record)
	}
	if err != nil {
		log.Warn("generation stored without a record",
			slog.String("warning", WarningDBInsertFailed),
			slog.String("error", err.Error()),
			slog.Int("images", len(urls)))
		s.recorder.ObserveGeneration(ResultPartial)
		result.Warning = WarningDBInsertFailed
		return result, nil
	}

	log.Info("generation completed",
		slog.String("generation_id", record.ID.String()),
		slog.Int("images", len(urls)))
	s.recorder.ObserveGeneration(ResultSuccess)
	result.GenerationID = &record.ID
	return result, nil
}

// renderAndUpload fans out one adapter call per variation. On any failure the
// objects already uploaded are removed and the first error is returned.
func (s *GenerationServiceImpl) renderAndUpload(
	ctx context.Context,
	userID uuid.UUID,
	req domain.GenerationRequest,
) ([]storedImage, error) {
	stored := make([]storedImage, req.Variations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(variationConcurrency)
	for i := range stored {
		g.Go(func() error {
			img, err := s.images.Generate(gctx, req)
			if err != nil {
				return err
			}
			key := objectstore.NewKey(userID, img.MIMEType, s.now())
			url, err := s.objects.Put(gctx, key, img.Data, img.MIMEType)
			if err != nil {
				return fmt.Errorf("failed to store image: %w", err)
			}
			stored[i] = storedImage{key: key, url: url}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		keys := make([]string, 0, len(stored))
		for _, img := range stored {
			if img.key != "" {
				keys = append(keys, img.key)
			}
		}
		s.deleteObjects(ctx, keys)
		return nil, err
	}
	return stored, nil
}

// deleteObjects removes keys best-effort. It runs detached from ctx so a
// cancelled request still cleans up.
func (s *GenerationServiceImpl) deleteObjects(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		if err := s.objects.Delete(cleanupCtx, key); err != nil {
			log.Warn("failed to delete stored image",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
}

// Enhance validates the style and delegates to the prompt enhancer.
func (s *GenerationServiceImpl) Enhance(ctx context.Context, prompt, style string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", generation.ErrInvalidInput)
	}
	style = strings.TrimSpace(style)
	if err := domain.ValidateStyle(style); err != nil {
		return "", err
	}
	return s.enhancer.Enhance(ctx, prompt, style)
}

// ListGallery returns one page of the user's generations, newest first.
func (s *GenerationServiceImpl) ListGallery(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) (*Gallery, error) {
	limit, offset = ClampPage(limit, offset)

	generations, total, err := s.generations.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return &Gallery{Generations: generations, Total: total, Limit: limit, Offset: offset}, nil
}

// ClampPage applies the gallery defaults: limit 20 within 1..100, offset at least 0.
func ClampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultGalleryLimit
	case limit > MaxGalleryLimit:
		limit = MaxGalleryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// DeleteGeneration removes a generation owned by userID, then its stored images.
// Returns store.ErrGenerationNotFound when the record is missing or not owned.
func (s *GenerationServiceImpl) DeleteGeneration(ctx context.Context, userID, generationID uuid.UUID) error {
	deleted, err := s.generations.DeleteOwned(ctx, generationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("generation deleted",
		slog.String("generation_id", generationID.String()),
		slog.String("user_id", userID.String()))
	s.deleteObjects(ctx, deleted.ImageKeys)
	return nil
}
