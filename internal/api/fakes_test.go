package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/api/shared"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/service"
	"github.com/phrazzld/adsmith-api/internal/service/auth"
	"github.com/stretchr/testify/require"
)

type fakeGenerationService struct {
	generate func(ctx context.Context, userID uuid.UUID, in service.GenerateInput) (*service.GenerateResult, error)
	enhance  func(ctx context.Context, prompt, style string) (string, error)
	list     func(ctx context.Context, userID uuid.UUID, limit, offset int) (*service.Gallery, error)
	delete   func(ctx context.Context, userID, generationID uuid.UUID) error
}

func (f *fakeGenerationService) Generate(
	ctx context.Context,
	userID uuid.UUID,
	in service.GenerateInput,
) (*service.GenerateResult, error) {
	return f.generate(ctx, userID, in)
}

func (f *fakeGenerationService) Enhance(ctx context.Context, prompt, style string) (string, error) {
	return f.enhance(ctx, prompt, style)
}

func (f *fakeGenerationService) ListGallery(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) (*service.Gallery, error) {
	return f.list(ctx, userID, limit, offset)
}

func (f *fakeGenerationService) DeleteGeneration(ctx context.Context, userID, generationID uuid.UUID) error {
	return f.delete(ctx, userID, generationID)
}

type fakeUserService struct {
	register     func(ctx context.Context, email, password string) (*domain.User, error)
	authenticate func(ctx context.Context, email, password string) (*domain.User, error)
	getUser      func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

func (f *fakeUserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	return f.register(ctx, email, password)
}

func (f *fakeUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	return f.authenticate(ctx, email, password)
}

func (f *fakeUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return f.getUser(ctx, userID)
}

type fakeJWTService struct {
	validateRefresh func(token string) (*auth.Claims, error)
	generateErr     error
}

func (f *fakeJWTService) GenerateToken(_ context.Context, userID uuid.UUID) (string, error) {
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return "access-" + userID.String(), nil
}

func (f *fakeJWTService) GenerateRefreshToken(_ context.Context, userID uuid.UUID) (string, error) {
	return "refresh-" + userID.String(), nil
}

func (f *fakeJWTService) ValidateToken(context.Context, string) (*auth.Claims, error) {
	return nil, auth.ErrInvalidToken
}

func (f *fakeJWTService) ValidateRefreshToken(_ context.Context, token string) (*auth.Claims, error) {
	return f.validateRefresh(token)
}

type fakeModelLister struct {
	models []domain.ModelInfo
	err    error
}

func (f *fakeModelLister) ListModels(context.Context) ([]domain.ModelInfo, error) {
	return f.models, f.err
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(shared.WithUserID(req.Context(), userID))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
