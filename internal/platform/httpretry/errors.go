package httpretry

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every error returned by Execute wraps exactly one of them.
var (
	// ErrAborted is returned when the caller's context is done before or during
	// the operation. Attempts are never retried after an abort.
	ErrAborted = errors.New("request aborted")

	// ErrTransient marks a retryable condition: a transient status or a
	// transport failure. Execute returns it once attempts are exhausted.
	ErrTransient = errors.New("transient upstream failure")

	// ErrEndpointNotFound is returned for a 404 response.
	ErrEndpointNotFound = errors.New("upstream endpoint not found")

	// ErrUpstream is returned for any other non-success status.
	ErrUpstream = errors.New("unexpected upstream status")
)

// StatusError carries the response details of a failed attempt.
type StatusError struct {
	StatusCode int
	Body       string
	// RetryAfter is the parsed server hint; zero when absent or not numeric.
	RetryAfter time.Duration
	kind       error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", e.kind, e.StatusCode, e.Body)
}

// Unwrap returns the error kind.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// IsRetryableStatus reports whether status is one of the transient codes.
func IsRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
