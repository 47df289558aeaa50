package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/api/shared"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/service"
	"github.com/phrazzld/adsmith-api/internal/service/auth"
	"github.com/phrazzld/adsmith-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	users         service.UserService
	jwtService    auth.JWTService
	tokenLifetime time.Duration
	now           func() time.Time
}

// NewAuthHandler creates a new AuthHandler. tokenLifetime is only used to
// report expires_at and must match the JWT service configuration.
func NewAuthHandler(users service.UserService, jwtService auth.JWTService, tokenLifetime time.Duration) *AuthHandler {
	return &AuthHandler{
		users:         users,
		jwtService:    jwtService,
		tokenLifetime: tokenLifetime,
		now:           time.Now,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	resp, ok := h.issueTokens(w, r, user.ID)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid credentials", err,
				shared.WithElevatedLogLevel())
			return
		}
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	resp, ok := h.issueTokens(w, r, user.ID)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RefreshToken handles POST /api/auth/refresh. It exchanges a valid refresh
// token for a new token pair, provided the user still exists.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid refresh token", err,
			shared.WithElevatedLogLevel())
		return
	}

	if _, err := h.users.GetUser(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid refresh token", err)
			return
		}
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	resp, ok := h.issueTokens(w, r, claims.UserID)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
	})
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (AuthResponse, bool) {
	expiresAt := h.now().Add(h.tokenLifetime)

	accessToken, err := h.jwtService.GenerateToken(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to generate access token",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return AuthResponse{}, false
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to generate refresh token",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return AuthResponse{}, false
	}

	return AuthResponse{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.UTC().Format(time.RFC3339),
	}, true
}
