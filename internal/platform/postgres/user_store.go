package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/store"
)

const userColumns = `id, email, hashed_password, created_at, updated_at`

// PostgresUserStore implements store.UserStore on PostgreSQL.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// NewPostgresUserStore creates a user store over db, which may be a *sql.DB or *sql.Tx.
// If logger is nil, slog.Default() is used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Create implements store.UserStore.Create.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user.HashedPassword == "" {
		return store.NewStoreError("user", "create", "password must be hashed before storing", store.ErrInvalidEntity)
	}
	if err := user.Validate(); err != nil {
		log.Debug("user validation failed during create", slog.String("error", err.Error()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.HashedPassword, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("email already registered", slog.String("user_id", user.ID.String()))
			return MapUniqueViolation(err, "user", store.ErrEmailExists)
		}
		log.Error("failed to insert user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return store.NewStoreError("user", "create", "failed to insert user", MapError(err))
	}

	// The plaintext password is never kept past registration.
	user.Password = ""
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.scanUser(ctx, row, slog.String("user_id", id.String()))
}

// GetByEmail implements store.UserStore.GetByEmail. Emails are compared in lower case.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return s.scanUser(ctx, row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresUserStore) scanUser(ctx context.Context, row rowScanner, attrs ...any) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.HashedPassword, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load user",
			append(attrs, slog.String("error", err.Error()))...)
		return nil, store.NewStoreError("user", "get", "failed to load user", mapped)
	}
	return &user, nil
}
