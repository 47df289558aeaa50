package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc      *GenerationServiceImpl
	enhancer *fakeEnhancer
	images   *fakeImages
	objects  *fakeObjects
	store    *fakeGenerationStore
	recorder *fakeRecorder
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		enhancer: &fakeEnhancer{},
		images:   &fakeImages{},
		objects:  newFakeObjects(),
		store:    &fakeGenerationStore{},
		recorder: &fakeRecorder{},
	}
	svc, err := NewGenerationService(f.enhancer, f.images, f.objects, f.store, discardLogger(), WithRecorder(f.recorder))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewGenerationServiceRequiresDependencies(t *testing.T) {
	_, err := NewGenerationService(nil, &fakeImages{}, newFakeObjects(), &fakeGenerationStore{}, nil)
	assert.ErrorIs(t, err, generation.ErrNotConfigured)

	_, err = NewGenerationService(&fakeEnhancer{}, &fakeImages{}, nil, &fakeGenerationStore{}, nil)
	assert.Error(t, err)
}

func TestGenerateStoresEveryVariation(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()

	result, err := f.svc.Generate(context.Background(), userID, GenerateInput{
		Prompt:         "  red sneaker ",
		EnhancedPrompt: "A red sneaker on white marble, studio light",
		StylePreset:    "catalog",
		Variations:     3,
	})
	require.NoError(t, err)
	require.Len(t, result.ImageURLs, 3)
	require.NotNil(t, result.GenerationID)
	assert.Empty(t, result.Warning)

	require.Equal(t, 3, f.images.calls())
	for _, req := range f.images.requests {
		assert.Equal(t, "A red sneaker on white marble, studio light", req.Prompt)
		assert.Equal(t, "catalog", req.Style)
		assert.Equal(t, domain.DefaultImageSize, req.Width)
		assert.Equal(t, domain.DefaultImageSize, req.Height)
	}

	require.Len(t, f.store.created, 1)
	record := f.store.created[0]
	assert.Equal(t, *result.GenerationID, record.ID)
	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, "red sneaker", record.OriginalPrompt)
	assert.Equal(t, "A red sneaker on white marble, studio light", record.EnhancedPrompt)
	assert.Equal(t, result.ImageURLs, record.ImageURLs)
	require.Len(t, record.ImageKeys, 3)
	for i, key := range record.ImageKeys {
		assert.True(t, strings.HasPrefix(key, "generations/"+userID.String()+"/"), key)
		assert.Equal(t, "https://cdn.test/"+key, record.ImageURLs[i])
	}

	assert.Equal(t, []string{ResultSuccess}, f.recorder.results)
}

func TestGenerateFallsBackToPrompt(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Generate(context.Background(), uuid.New(), GenerateInput{Prompt: "blue mug", EnhancedPrompt: "   "})
	require.NoError(t, err)

	require.Len(t, f.images.requests, 1)
	assert.Equal(t, "blue mug", f.images.requests[0].Prompt)
	assert.Equal(t, "blue mug", f.store.created[0].EnhancedPrompt)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		in    GenerateInput
		errIs error
	}{
		{name: "both prompts blank", in: GenerateInput{Prompt: " ", EnhancedPrompt: ""}, errIs: generation.ErrInvalidInput},
		{name: "unknown style", in: GenerateInput{Prompt: "mug", StylePreset: "watercolor"}, errIs: domain.ErrUnknownStylePreset},
		{name: "too many variations", in: GenerateInput{Prompt: "mug", Variations: 9}, errIs: domain.ErrValidation},
		{name: "oversized", in: GenerateInput{Prompt: "mug", Width: 8192}, errIs: domain.ErrInvalidDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			_, err := f.svc.Generate(context.Background(), uuid.New(), tt.in)
			assert.ErrorIs(t, err, tt.errIs)
			assert.Zero(t, f.images.calls())
		})
	}
}

func TestGenerateCleansUpAfterVariationFailure(t *testing.T) {
	f := newServiceFixture(t)
	upstreamErr := errors.New("upstream exhausted")
	f.images.GenerateFunc = func(_ context.Context, call int, _ domain.GenerationRequest) (*domain.Image, error) {
		if call == 2 {
			return nil, upstreamErr
		}
		return &domain.Image{Data: []byte("ok"), MIMEType: "image/jpeg"}, nil
	}

	_, err := f.svc.Generate(context.Background(), uuid.New(), GenerateInput{Prompt: "lamp", Variations: 4})
	assert.ErrorIs(t, err, upstreamErr)

	put := f.objects.putKeys()
	deleted := append([]string(nil), f.objects.deletes...)
	sort.Strings(put)
	sort.Strings(deleted)
	assert.Equal(t, put, deleted)
	assert.Empty(t, f.store.created)
	assert.Equal(t, []string{ResultFailure}, f.recorder.results)
}

func TestGenerateUploadFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.objects.PutErr = errors.New("bucket unavailable")

	_, err := f.svc.Generate(context.Background(), uuid.New(), GenerateInput{Prompt: "lamp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store image")
}

func TestGenerateReportsInsertFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.store.CreateErr = errors.New("connection refused")

	result, err := f.svc.Generate(context.Background(), uuid.New(), GenerateInput{Prompt: "lamp", Variations: 2})
	require.NoError(t, err)
	assert.Len(t, result.ImageURLs, 2)
	assert.Nil(t, result.GenerationID)
	assert.Equal(t, WarningDBInsertFailed, result.Warning)
	assert.Empty(t, f.objects.deletes)
	assert.Equal(t, []string{ResultPartial}, f.recorder.results)
}

func TestEnhance(t *testing.T) {
	f := newServiceFixture(t)
	var gotPrompt, gotStyle string
	f.enhancer.EnhanceFunc = func(_ context.Context, prompt, style string) (string, error) {
		gotPrompt, gotStyle = prompt, style
		return "A detailed prompt", nil
	}

	out, err := f.svc.Enhance(context.Background(), "  lamp  ", " social-ad ")
	require.NoError(t, err)
	assert.Equal(t, "A detailed prompt", out)
	assert.Equal(t, "lamp", gotPrompt)
	assert.Equal(t, "social-ad", gotStyle)

	_, err = f.svc.Enhance(context.Background(), "   ", "")
	assert.ErrorIs(t, err, generation.ErrInvalidInput)

	_, err = f.svc.Enhance(context.Background(), "lamp", "cubist")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListGalleryClampsPaging(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{name: "defaults", limit: 0, offset: 0, wantLimit: 20, wantOffset: 0},
		{name: "negative", limit: -5, offset: -1, wantLimit: 20, wantOffset: 0},
		{name: "too large", limit: 1000, offset: 40, wantLimit: 100, wantOffset: 40},
		{name: "in range", limit: 5, offset: 10, wantLimit: 5, wantOffset: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			userID := uuid.New()
			f.store.ListFunc = func(_ context.Context, gotUser uuid.UUID, limit, offset int) ([]domain.Generation, int, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, tt.wantLimit, limit)
				assert.Equal(t, tt.wantOffset, offset)
				return []domain.Generation{{ID: uuid.New()}}, 42, nil
			}

			gallery, err := f.svc.ListGallery(context.Background(), userID, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, 42, gallery.Total)
			assert.Equal(t, tt.wantLimit, gallery.Limit)
			assert.Equal(t, tt.wantOffset, gallery.Offset)
			assert.Len(t, gallery.Generations, 1)
		})
	}
}

func TestListGalleryStoreFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.store.ListFunc = func(context.Context, uuid.UUID, int, int) ([]domain.Generation, int, error) {
		return nil, 0, errors.New("timeout")
	}
	_, err := f.svc.ListGallery(context.Background(), uuid.New(), 0, 0)
	assert.Error(t, err)
}

func TestDeleteGeneration(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Deleted = &domain.Generation{ID: uuid.New(), ImageKeys: []string{"generations/a.png", "generations/b.png"}}
	f.objects.DeleteErr = errors.New("already gone")

	require.NoError(t, f.svc.DeleteGeneration(context.Background(), uuid.New(), f.store.Deleted.ID))
	assert.Equal(t, []string{"generations/a.png", "generations/b.png"}, f.objects.deletes)
}

func TestDeleteGenerationNotOwned(t *testing.T) {
	f := newServiceFixture(t)
	f.store.DeleteOwnedErr = store.ErrGenerationNotFound

	err := f.svc.DeleteGeneration(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrGenerationNotFound)
	assert.Empty(t, f.objects.deletes)
}
