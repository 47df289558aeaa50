package generation

import "errors"

// Errors returned by generation adapters.
var (
	// ErrInvalidInput is returned for a caller mistake such as an empty prompt.
	ErrInvalidInput = errors.New("invalid generation input")

	// ErrNotConfigured is returned when the adapter has no credential.
	ErrNotConfigured = errors.New("generative AI credential is not configured")

	// ErrEmptyOrMissingText is returned when no usable text could be extracted
	// from a successful upstream response, or the text is implausibly short.
	ErrEmptyOrMissingText = errors.New("upstream response contained no usable text")

	// ErrNoImageData is returned when no image payload could be extracted from a
	// successful upstream response.
	ErrNoImageData = errors.New("upstream response contained no image data")

	// ErrDownloadFailed is returned when an image referenced by URL could not be fetched.
	ErrDownloadFailed = errors.New("failed to fetch image")

	// ErrResponseTooLarge is returned when a successful upstream document exceeds
	// the size the adapter is willing to read.
	ErrResponseTooLarge = errors.New("upstream response too large")
)
