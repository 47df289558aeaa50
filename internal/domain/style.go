package domain

import "errors"

// ErrUnknownStylePreset is returned for a style tag that is not one of StylePresets.
var ErrUnknownStylePreset = errors.New("unknown style preset")

// StylePreset is a named rendering style offered to users.
type StylePreset struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// StylePresets lists the supported presets in display order.
var StylePresets = []StylePreset{
	{ID: "photorealistic", Label: "Photorealistic", Description: "Professional photography style"},
	{ID: "oil-painting", Label: "Oil Painting", Description: "Artistic oil painting effect"},
	{ID: "social-ad", Label: "Social Ad", Description: "Optimized for social media"},
	{ID: "catalog", Label: "Catalog", Description: "Product catalog style"},
}

// ValidateStyle accepts an empty style (no preset) or a known preset ID.
func ValidateStyle(style string) error {
	if style == "" {
		return nil
	}
	for _, p := range StylePresets {
		if p.ID == style {
			return nil
		}
	}
	return NewValidationError("stylePreset", "must be one of the supported presets", ErrUnknownStylePreset)
}
