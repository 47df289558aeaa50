package service

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/service/auth"
	"github.com/phrazzld/adsmith-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(users *fakeUserStore) *UserServiceImpl {
	bcrypt := auth.NewBcryptVerifier(4)
	return NewUserService(users, bcrypt, bcrypt, discardLogger())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestUserService(users)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Owner@Example.com", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", user.Email)
	assert.NotEmpty(t, user.HashedPassword)
	assert.NotEqual(t, "correct-horse-battery", users.users["owner@example.com"].HashedPassword)

	got, err := svc.Authenticate(ctx, "owner@example.com", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "owner@example.com", "wrong-password-here")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse-battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	fetched, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, fetched.Email)
}

func TestRegisterFailures(t *testing.T) {
	ctx := context.Background()

	_, err := newTestUserService(newFakeUserStore()).Register(ctx, "owner@example.com", "short")
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)

	users := newFakeUserStore()
	users.CreateErr = store.ErrEmailExists
	_, err = newTestUserService(users).Register(ctx, "owner@example.com", "correct-horse-battery")
	assert.ErrorIs(t, err, store.ErrEmailExists)
}

func TestAuthenticateStoreFailure(t *testing.T) {
	users := newFakeUserStore()
	users.GetErr = errors.New("connection refused")

	_, err := newTestUserService(users).Authenticate(context.Background(), "owner@example.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
