package service

import "errors"

// Service errors that callers check with errors.Is. The API layer maps them
// to HTTP status codes.
var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are reported identically.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
