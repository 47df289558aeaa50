package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/adsmith-api/internal/config"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels serves pages keyed by page token.
type fakeModels struct {
	pages  map[string]genai.Page[genai.Model]
	err    error
	tokens []string
}

func (f *fakeModels) List(_ context.Context, cfg *genai.ListModelsConfig) (genai.Page[genai.Model], error) {
	token := ""
	if cfg != nil {
		token = cfg.PageToken
	}
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return genai.Page[genai.Model]{}, f.err
	}
	return f.pages[token], nil
}

func TestModelListerPaginates(t *testing.T) {
	fake := &fakeModels{pages: map[string]genai.Page[genai.Model]{
		"": {
			Items: []*genai.Model{
				{Name: "models/text-model", DisplayName: "Text", SupportedActions: []string{"generateContent"}},
				nil,
			},
			NextPageToken: "page-2",
		},
		"page-2": {
			Items: []*genai.Model{{Name: "models/image-model", Description: "Images"}},
		},
	}}

	lister := newModelLister(fake, testLogger())
	models, err := lister.ListModels(context.Background())
	require.NoError(t, err)

	require.Len(t, models, 2)
	assert.Equal(t, "models/text-model", models[0].Name)
	assert.Equal(t, "Text", models[0].DisplayName)
	assert.Equal(t, []string{"generateContent"}, models[0].SupportedActions)
	assert.Equal(t, "models/image-model", models[1].Name)
	assert.Equal(t, "Images", models[1].Description)
	assert.Equal(t, []string{"", "page-2"}, fake.tokens)
}

func TestModelListerPropagatesErrors(t *testing.T) {
	lister := newModelLister(&fakeModels{err: errors.New("permission denied")}, testLogger())
	_, err := lister.ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestModelListerPageDone(t *testing.T) {
	lister := newModelLister(&fakeModels{err: genai.ErrPageDone}, testLogger())
	models, err := lister.ListModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestNewModelListerRequiresKey(t *testing.T) {
	_, err := NewModelLister(context.Background(), config.LLMConfig{}, testLogger())
	assert.ErrorIs(t, err, generation.ErrNotConfigured)

	var zero ModelLister
	_, err = zero.ListModels(context.Background())
	assert.ErrorIs(t, err, generation.ErrNotConfigured)
}
