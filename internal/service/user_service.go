package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/service/auth"
	"github.com/phrazzld/adsmith-api/internal/store"
)

// UserService provides registration and credential checks.
type UserService interface {
	// Register validates the credentials, hashes the password and stores a new user.
	// Returns store.ErrEmailExists if the email is taken.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Authenticate returns the user matching email and password, or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	verifier  auth.PasswordVerifier
	logger    *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService. A single bcrypt value usually
// serves as both hasher and verifier.
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	logger *slog.Logger,
) *UserServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		verifier:  verifier,
		logger:    logger.With(slog.String("component", "user_service")),
	}
}

// Register implements UserService.Register.
func (s *UserServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, password)
	if err != nil {
		log.Debug("invalid registration data", slog.String("error", err.Error()))
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	user.HashedPassword = hashed

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register an existing email")
		} else {
			log.Error("failed to save user", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate implements UserService.Authenticate.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to look up user by email", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("password mismatch", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser implements UserService.GetUser.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve user",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}
