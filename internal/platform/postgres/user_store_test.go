package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/platform/postgres"
	"github.com/phrazzld/adsmith-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHashedUser(t *testing.T) *domain.User {
	t.Helper()
	user, err := domain.NewUser("Owner@Example.com", "correct-horse-battery")
	require.NoError(t, err)
	user.HashedPassword = "$2a$10$hashedpasswordvalue"
	return user
}

func TestUserStoreCreate(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresUserStore(db, nil)
	user := newHashedUser(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, "owner@example.com", user.HashedPassword, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), user))
	assert.Empty(t, user.Password)
}

func TestUserStoreCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresUserStore(db, nil)
	user := newHashedUser(t)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(newPgError("23505"))

	err := s.Create(context.Background(), user)
	assert.ErrorIs(t, err, store.ErrEmailExists)
	assert.True(t, store.IsDuplicateError(err))
}

func TestUserStoreCreateRejectsUnhashedOrInvalidUser(t *testing.T) {
	db, _ := newMock(t)
	s := postgres.NewPostgresUserStore(db, nil)

	unhashed, err := domain.NewUser("a@example.com", "correct-horse-battery")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Create(context.Background(), unhashed), store.ErrInvalidEntity)

	invalid := newHashedUser(t)
	invalid.Email = "not-an-email"
	assert.ErrorIs(t, s.Create(context.Background(), invalid), domain.ErrValidation)
}

func TestUserStoreCreateDatabaseError(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresUserStore(db, nil)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

	err := s.Create(context.Background(), newHashedUser(t))
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "create", storeErr.Operation)
}

func TestUserStoreGet(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresUserStore(db, nil)
	ctx := context.Background()

	id := uuid.New()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	columns := []string{"id", "email", "hashed_password", "created_at", "updated_at"}

	mock.ExpectQuery(`FROM users WHERE email = lower\(\$1\)`).
		WithArgs("Owner@Example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "owner@example.com", "hash", now, now))

	user, err := s.GetByEmail(ctx, "Owner@Example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "owner@example.com", user.Email)
	assert.Equal(t, "hash", user.HashedPassword)
	assert.Equal(t, now, user.CreatedAt)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = s.GetByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(errors.New("timeout"))

	_, err = s.GetByID(ctx, id)
	require.Error(t, err)
	assert.False(t, store.IsNotFoundError(err))
}
