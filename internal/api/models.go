package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/adsmith-api/internal/domain"
	"github.com/phrazzld/adsmith-api/internal/service"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`

	// AccessToken keeps the "token" JSON name used by existing clients.
	AccessToken string `json:"token"`

	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// EnhanceRequest is the body of POST /api/enhance.
type EnhanceRequest struct {
	Prompt      string `json:"prompt"`
	StylePreset string `json:"stylePreset"`
}

// EnhanceResponse carries the refined prompt.
type EnhanceResponse struct {
	EnhancedPrompt string `json:"enhancedPrompt"`
}

// GenerateRequest is the body of POST /api/generate. Zero sizes and variation
// counts fall back to the 1024x1024 single-image defaults.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	EnhancedPrompt string `json:"enhancedPrompt"`
	StylePreset    string `json:"stylePreset"`
	Width          int    `json:"width"         validate:"gte=0,lte=4096"`
	Height         int    `json:"height"        validate:"gte=0,lte=4096"`
	NumVariations  int    `json:"numVariations" validate:"gte=0,lte=4"`
}

// GenerateResponse lists the stored images. GenerationID is omitted and Warning
// set when the images were stored but the record was not.
type GenerateResponse struct {
	ImageURLs    []string   `json:"imageUrls"`
	GenerationID *uuid.UUID `json:"generationId,omitempty"`
	Warning      string     `json:"warning,omitempty"`
}

// GenerationResponse is one gallery entry.
type GenerationResponse struct {
	ID             uuid.UUID `json:"id"`
	OriginalPrompt string    `json:"originalPrompt"`
	EnhancedPrompt string    `json:"enhancedPrompt"`
	StylePreset    string    `json:"stylePreset,omitempty"`
	ImageURLs      []string  `json:"imageUrls"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GalleryResponse is one page of the caller's generations.
type GalleryResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Total       int                  `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// DeleteGenerationRequest is the body of DELETE /api/gallery.
type DeleteGenerationRequest struct {
	GenerationID string `json:"generationId"`
}

// SuccessResponse acknowledges an operation with no other payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// StylesResponse lists the style presets.
type StylesResponse struct {
	Styles []domain.StylePreset `json:"styles"`
}

// ModelsResponse lists the upstream models visible to the configured key.
type ModelsResponse struct {
	Models []domain.ModelInfo `json:"models"`
}

func toGenerateResponse(result *service.GenerateResult) GenerateResponse {
	return GenerateResponse{
		ImageURLs:    result.ImageURLs,
		GenerationID: result.GenerationID,
		Warning:      result.Warning,
	}
}

func toGalleryResponse(gallery *service.Gallery) GalleryResponse {
	items := make([]GenerationResponse, 0, len(gallery.Generations))
	for _, g := range gallery.Generations {
		urls := g.ImageURLs
		if urls == nil {
			urls = []string{}
		}
		items = append(items, GenerationResponse{
			ID:             g.ID,
			OriginalPrompt: g.OriginalPrompt,
			EnhancedPrompt: g.EnhancedPrompt,
			StylePreset:    g.StylePreset,
			ImageURLs:      urls,
			CreatedAt:      g.CreatedAt,
		})
	}
	return GalleryResponse{
		Generations: items,
		Total:       gallery.Total,
		Limit:       gallery.Limit,
		Offset:      gallery.Offset,
	}
}
