// Package ratelimit throttles expensive per-user operations such as image generation.
//
// Two backends implement Limiter: Memory keeps a token bucket per key inside the
// process, and Redis keeps a fixed-window counter that all instances share.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is wrapped by every *LimitedError.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitedError reports a rejected request and when the caller may try again.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("%v: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

// Unwrap returns ErrRateLimited.
func (e *LimitedError) Unwrap() error {
	return ErrRateLimited
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	// Allow returns nil when the request may proceed, a *LimitedError when it is
	// throttled, or another error when the backend failed.
	Allow(ctx context.Context, key string) error
}

// RetryAfterSeconds rounds d up to whole seconds, with a floor of one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
