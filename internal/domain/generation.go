package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request limits.
const (
	DefaultImageSize = 1024
	MaxImageSize     = 4096
	MaxVariations    = 4
	MaxPromptLength  = 4000
)

// Generation validation errors.
var (
	ErrEmptyPrompt      = errors.New("prompt cannot be empty")
	ErrPromptTooLong    = errors.New("prompt is too long")
	ErrInvalidDimension = errors.New("image dimensions must be between 1 and 4096")
	ErrInvalidVariation = errors.New("variations must be between 1 and 4")
	ErrNoImages         = errors.New("generation must reference at least one image")
	ErrImageKeyMismatch = errors.New("image keys must match image URLs")
)

// GenerationRequest is one user submission to the image adapter.
type GenerationRequest struct {
	Prompt     string
	Style      string
	Width      int
	Height     int
	Variations int
}

// NewGenerationRequest builds a request, applying the 1024x1024 single-image
// defaults for zero values, and validates it.
func NewGenerationRequest(prompt, style string, width, height, variations int) (GenerationRequest, error) {
	req := GenerationRequest{
		Prompt:     strings.TrimSpace(prompt),
		Style:      strings.TrimSpace(style),
		Width:      width,
		Height:     height,
		Variations: variations,
	}
	if req.Width == 0 {
		req.Width = DefaultImageSize
	}
	if req.Height == 0 {
		req.Height = DefaultImageSize
	}
	if req.Variations == 0 {
		req.Variations = 1
	}
	return req, req.Validate()
}

// Validate checks the request fields.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewValidationError("prompt", "is required", ErrEmptyPrompt)
	}
	if len(r.Prompt) > MaxPromptLength {
		return NewValidationError("prompt", "exceeds maximum length", ErrPromptTooLong)
	}
	if r.Width <= 0 || r.Width > MaxImageSize || r.Height <= 0 || r.Height > MaxImageSize {
		return NewValidationError("size", "is out of range", ErrInvalidDimension)
	}
	if r.Variations < 1 || r.Variations > MaxVariations {
		return NewValidationError("numVariations", "is out of range", ErrInvalidVariation)
	}
	return ValidateStyle(r.Style)
}

// Image is a decoded image returned by the image adapter.
type Image struct {
	Data     []byte
	MIMEType string
}

// Generation is a persisted record of one successful generate call.
type Generation struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	OriginalPrompt string    `json:"original_prompt"`
	EnhancedPrompt string    `json:"enhanced_prompt"`
	StylePreset    string    `json:"style_preset,omitempty"`
	ImageURLs      []string  `json:"image_url"`
	ImageKeys      []string  `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewGeneration creates a validated Generation with a fresh ID and timestamp.
func NewGeneration(userID uuid.UUID, originalPrompt, enhancedPrompt, style string, urls, keys []string) (*Generation, error) {
	g := &Generation{
		ID:             uuid.New(),
		UserID:         userID,
		OriginalPrompt: originalPrompt,
		EnhancedPrompt: enhancedPrompt,
		StylePreset:    style,
		ImageURLs:      urls,
		ImageKeys:      keys,
		CreatedAt:      time.Now().UTC(),
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the record fields.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return NewValidationError("id", "must be set", nil)
	}
	if g.UserID == uuid.Nil {
		return NewValidationError("user_id", "must be set", ErrEmptyUserID)
	}
	if strings.TrimSpace(g.EnhancedPrompt) == "" {
		return NewValidationError("enhanced_prompt", "is required", ErrEmptyPrompt)
	}
	if len(g.ImageURLs) == 0 {
		return NewValidationError("image_url", "is required", ErrNoImages)
	}
	if g.ImageKeys != nil && len(g.ImageKeys) != len(g.ImageURLs) {
		return NewValidationError("image_keys", "length mismatch", ErrImageKeyMismatch)
	}
	return nil
}

// ModelInfo describes an upstream model, as returned by the debug listing.
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"display_name,omitempty"`
	Description      string   `json:"description,omitempty"`
	SupportedActions []string `json:"supported_actions,omitempty"`
}
