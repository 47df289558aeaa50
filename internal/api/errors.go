package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/adsmith-api/internal/api/shared"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/platform/httpretry"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/platform/ratelimit"
	"github.com/phrazzld/adsmith-api/internal/redact"
	"github.com/phrazzld/adsmith-api/internal/service"
	"github.com/phrazzld/adsmith-api/internal/service/auth"
	"github.com/phrazzld/adsmith-api/internal/store"
)

// StatusClientClosedRequest is reported when the client went away before the
// upstream call finished. Nothing is written to the closed connection.
const StatusClientClosedRequest = 499

// DefaultRetryAfterSeconds is sent with 503 responses when the upstream gave no hint.
const DefaultRetryAfterSeconds = 3

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, generation.ErrInvalidInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, httpretry.ErrTransient):
		return http.StatusServiceUnavailable

	case errors.Is(err, httpretry.ErrAborted):
		return StatusClientClosedRequest

	// Default: internal server error. This covers missing configuration,
	// unexpected upstream statuses and unusable upstream output.
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)

	case errors.Is(err, generation.ErrInvalidInput):
		return "Invalid request"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrGenerationNotFound):
		return "Generation not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, ratelimit.ErrRateLimited):
		return "Too many requests. Please slow down."

	case errors.Is(err, httpretry.ErrTransient):
		return "Service temporarily busy. Please try again."

	case errors.Is(err, generation.ErrNotConfigured):
		return "Image service is not configured"

	case errors.Is(err, generation.ErrEmptyOrMissingText),
		errors.Is(err, generation.ErrNoImageData),
		errors.Is(err, generation.ErrDownloadFailed),
		errors.Is(err, generation.ErrResponseTooLarge):
		return "The image service returned an unusable response"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status and safe message, logs the redacted detail
// and writes the response. fallback replaces the safe message for 500s when set.
// Aborted requests are logged at debug and only get a bare status.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)

	if status == StatusClientClosedRequest {
		logger.FromContext(r.Context()).Debug("client went away before the request finished",
			slog.String("path", r.URL.Path),
			slog.String("error", redact.Error(err)))
		w.WriteHeader(status)
		return
	}

	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	switch status {
	case http.StatusServiceUnavailable:
		opts = append(opts, shared.WithRetryAfter(retryAfterSeconds(err)))
	case http.StatusTooManyRequests:
		var limited *ratelimit.LimitedError
		if errors.As(err, &limited) {
			opts = append(opts, shared.WithRetryAfter(ratelimit.RetryAfterSeconds(limited.RetryAfter)))
		}
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// retryAfterSeconds prefers the upstream hint, falling back to DefaultRetryAfterSeconds.
func retryAfterSeconds(err error) int {
	var statusErr *httpretry.StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return ratelimit.RetryAfterSeconds(statusErr.RetryAfter)
	}
	return DefaultRetryAfterSeconds
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}
