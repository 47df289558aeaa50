package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/api/shared"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/platform/httpretry"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/service"
)

// Client-facing messages for the enhance route.
const (
	MessageEnhanceTimeout = "Service timed out. Please try again."
	MessageEnhanceBusy    = "Service temporarily busy. Please try again."
)

// DefaultEnhanceTimeout bounds a single enhance request.
const DefaultEnhanceTimeout = 25 * time.Second

// GenerationHandler serves the enhance, generate, styles and gallery routes.
type GenerationHandler struct {
	generations       service.GenerationService
	enhanceTimeout    time.Duration
	retryAfterSeconds int
}

// GenerationHandlerOption configures a GenerationHandler.
type GenerationHandlerOption func(*GenerationHandler)

// WithEnhanceTimeout overrides DefaultEnhanceTimeout.
func WithEnhanceTimeout(d time.Duration) GenerationHandlerOption {
	return func(h *GenerationHandler) {
		if d > 0 {
			h.enhanceTimeout = d
		}
	}
}

// WithRetryAfterSeconds sets the Retry-After value of enhance 503 responses.
func WithRetryAfterSeconds(seconds int) GenerationHandlerOption {
	return func(h *GenerationHandler) {
		if seconds > 0 {
			h.retryAfterSeconds = seconds
		}
	}
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(generations service.GenerationService, opts ...GenerationHandlerOption) *GenerationHandler {
	h := &GenerationHandler{
		generations:       generations,
		enhanceTimeout:    DefaultEnhanceTimeout,
		retryAfterSeconds: DefaultRetryAfterSeconds,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Styles handles GET /api/styles.
func (h *GenerationHandler) Styles(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, StylesResponse{Styles: domain.StylePresets})
}

type enhanceOutcome struct {
	prompt string
	err    error
}

// Enhance handles POST /api/enhance. The service call races the enhance
// timeout; whichever finishes first decides the response.
func (h *GenerationHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req EnhanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Prompt is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.enhanceTimeout)
	defer cancel()

	done := make(chan enhanceOutcome, 1)
	go func() {
		prompt, err := h.generations.Enhance(ctx, req.Prompt, req.StylePreset)
		done <- enhanceOutcome{prompt: prompt, err: err}
	}()

	var out enhanceOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = enhanceOutcome{err: ctx.Err()}
	}

	if out.err == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, EnhanceResponse{EnhancedPrompt: out.prompt})
		return
	}

	switch {
	case r.Context().Err() != nil:
		// The client is gone; HandleAPIError logs it at debug.
		HandleAPIError(w, r, httpretry.ErrAborted, "")
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, MessageEnhanceTimeout, out.err,
			shared.WithRetryAfter(h.retryAfterSeconds))
	case errors.Is(out.err, httpretry.ErrTransient):
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, MessageEnhanceBusy, out.err,
			shared.WithRetryAfter(h.retryAfterSeconds))
	default:
		HandleAPIError(w, r, out.err, "Failed to enhance prompt")
	}
}

// Generate handles POST /api/generate.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req GenerateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.generations.Generate(r.Context(), userID, service.GenerateInput{
		Prompt:         req.Prompt,
		EnhancedPrompt: req.EnhancedPrompt,
		StylePreset:    req.StylePreset,
		Width:          req.Width,
		Height:         req.Height,
		Variations:     req.NumVariations,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate images")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toGenerateResponse(result))
}

// Gallery handles GET /api/gallery?limit=&offset=.
func (h *GenerationHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, ok := queryInt(r, "limit", service.DefaultGalleryLimit)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid offset")
		return
	}

	gallery, err := h.generations.ListGallery(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load gallery")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toGalleryResponse(gallery))
}

// DeleteGeneration handles DELETE /api/gallery with a {generationId} body.
func (h *GenerationHandler) DeleteGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req DeleteGenerationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.GenerationID) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "generationId is required")
		return
	}
	generationID, err := uuid.Parse(strings.TrimSpace(req.GenerationID))
	if err != nil {
		logger.FromContext(r.Context()).Debug("invalid generation id",
			slog.String("value", req.GenerationID))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid generationId")
		return
	}

	if err := h.generations.DeleteGeneration(r.Context(), userID, generationID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SuccessResponse{Success: true})
}
