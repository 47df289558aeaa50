package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory keeps one token bucket per key.
type Memory struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

var _ Limiter = (*Memory)(nil)

// NewMemory allows requestsPerMinute steady-state requests per key with the given burst.
func NewMemory(requestsPerMinute, burst int) *Memory {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Memory{
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow consumes one token for key.
func (m *Memory) Allow(_ context.Context, key string) error {
	now := m.now()

	m.mu.Lock()
	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	m.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return &LimitedError{RetryAfter: time.Minute}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &LimitedError{RetryAfter: delay}
	}
	return nil
}

// StartJanitor evicts keys idle for longer than idle, checking every interval,
// until ctx is cancelled.
func (m *Memory) StartJanitor(ctx context.Context, interval, idle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictIdle(idle)
			}
		}
	}()
}

func (m *Memory) evictIdle(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for key, v := range m.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(m.visitors, key)
			evicted++
		}
	}
	return evicted
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}
