package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "adsmith:ratelimit:"
	redisWindow    = time.Minute
)

// Redis is a fixed-window counter shared by every instance using the same server.
type Redis struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

var _ Limiter = (*Redis)(nil)

// NewRedis allows requestsPerMinute requests per key in each one-minute window.
func NewRedis(client *redis.Client, requestsPerMinute int) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if requestsPerMinute < 1 {
		return nil, errors.New("requests per minute must be at least 1")
	}
	return &Redis{client: client, limit: int64(requestsPerMinute), now: time.Now}, nil
}

// NewRedisClient parses a redis:// URL and verifies the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

// Allow increments the counter of the current window for key.
func (r *Redis) Allow(ctx context.Context, key string) error {
	now := r.now()
	windowStart := now.Truncate(redisWindow)
	redisKey := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, windowStart.Unix())

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, redisWindow+time.Second)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}

	if incr.Val() > r.limit {
		return &LimitedError{RetryAfter: windowStart.Add(redisWindow).Sub(now)}
	}
	return nil
}
