package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEnhancer struct {
	EnhanceFunc func(ctx context.Context, prompt, style string) (string, error)
}

func (f *fakeEnhancer) Enhance(ctx context.Context, prompt, style string) (string, error) {
	if f.EnhanceFunc != nil {
		return f.EnhanceFunc(ctx, prompt, style)
	}
	return "enhanced: " + prompt, nil
}

type fakeImages struct {
	mu       sync.Mutex
	requests []domain.GenerationRequest

	GenerateFunc func(ctx context.Context, call int, req domain.GenerationRequest) (*domain.Image, error)
}

func (f *fakeImages) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Image, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	f.mu.Unlock()

	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, call, req)
	}
	return &domain.Image{Data: []byte(fmt.Sprintf("image-%d", call)), MIMEType: "image/png"}, nil
}

func (f *fakeImages) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeObjects struct {
	mu      sync.Mutex
	puts    map[string][]byte
	deletes []string

	PutErr    error
	DeleteErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{puts: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if f.PutErr != nil {
		return "", f.PutErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[key] = data
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return f.DeleteErr
}

func (f *fakeObjects) putKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.puts))
	for k := range f.puts {
		keys = append(keys, k)
	}
	return keys
}

type fakeGenerationStore struct {
	created []*domain.Generation

	CreateErr      error
	ListFunc       func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Generation, int, error)
	DeleteOwnedErr error
	Deleted        *domain.Generation
}

func (f *fakeGenerationStore) Create(_ context.Context, g *domain.Generation) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.created = append(f.created, g)
	return nil
}

func (f *fakeGenerationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Generation, int, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, userID, limit, offset)
	}
	return []domain.Generation{}, 0, nil
}

func (f *fakeGenerationStore) DeleteOwned(_ context.Context, _, _ uuid.UUID) (*domain.Generation, error) {
	if f.DeleteOwnedErr != nil {
		return nil, f.DeleteOwnedErr
	}
	return f.Deleted, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []string
}

func (f *fakeRecorder) ObserveGeneration(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

type fakeUserStore struct {
	users map[string]*domain.User

	CreateErr error
	GetErr    error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	stored := *user
	f.users[user.Email] = &stored
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}
