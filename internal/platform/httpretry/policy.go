package httpretry

import (
	"errors"
	"time"
)

// Policy bounds one Execute call. It is plain configuration supplied per call.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the backoff unit: attempt n waits BaseDelay*2^(n-1) plus jitter.
	BaseDelay time.Duration
	// PerAttemptTimeout aborts a single attempt. Zero disables it.
	PerAttemptTimeout time.Duration
}

// DefaultPolicy matches the upstream client defaults: 3 attempts, 300ms base delay
// and a 30s per-attempt timeout.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 300 * time.Millisecond, PerAttemptTimeout: 30 * time.Second}
}

// Validate rejects policies that cannot make progress.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if p.BaseDelay < 0 {
		return errors.New("base delay cannot be negative")
	}
	if p.PerAttemptTimeout < 0 {
		return errors.New("per-attempt timeout cannot be negative")
	}
	return nil
}

// backoff returns BaseDelay*2^(attempt-1) for a 1-based attempt number.
func (p Policy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Cap the shift so large attempt counts cannot overflow.
	shift := attempt - 1
	if shift > 20 {
		shift = 20
	}
	return p.BaseDelay * time.Duration(1<<shift)
}
