package httpretry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/redact"
)

const (
	// maxJitter bounds the random delay added to every computed backoff.
	maxJitter = 200 * time.Millisecond

	// maxErrorBody caps how much of a failed response is kept in a StatusError.
	maxErrorBody = 8 << 10

	// notFoundLogSnippet is how much of a 404 body is logged.
	notFoundLogSnippet = 500
)

// Outcome labels one attempt for observers.
type Outcome string

// Attempt outcomes.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTransient Outcome = "transient"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeUpstream  Outcome = "upstream"
	OutcomeTransport Outcome = "transport"
	OutcomeAborted   Outcome = "aborted"
)

// Doer is the transport used for each attempt. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives one call per attempt. status is 0 when no response was received.
type Observer interface {
	ObserveAttempt(target string, attempt, status int, outcome Outcome, elapsed time.Duration)
}

// RequestFunc builds a fresh request for one attempt. It is called once per attempt
// so request bodies can be replayed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client executes requests under a Policy. It is safe for concurrent use.
type Client struct {
	doer     Doer
	logger   *slog.Logger
	observer Observer
	sleep    Sleeper
	jitter   func() time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an attempt observer, such as a metrics collector.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithSleeper replaces the backoff wait; tests use it to record delays.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithJitter replaces the jitter source.
func WithJitter(j func() time.Duration) Option {
	return func(c *Client) {
		if j != nil {
			c.jitter = j
		}
	}
}

// New creates a Client. A nil doer uses http.DefaultClient.
func New(doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	c := &Client{
		doer:   doer,
		logger: slog.Default(),
		sleep:  sleepContext,
		jitter: func() time.Duration { return rand.N(maxJitter) },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "httpretry"))
	return c
}

// Execute runs newRequest under policy and returns the first successful (2xx) response.
// The caller must close the returned body. target names the upstream operation in
// logs and metrics.
//
// Failure modes:
//   - ErrAborted: ctx was done before an attempt started, during an attempt, or
//     during a backoff wait. Remaining attempts are not consumed.
//   - *StatusError wrapping ErrEndpointNotFound: the upstream answered 404.
//   - *StatusError wrapping ErrUpstream: any other non-retryable status.
//   - the last recorded error (a *StatusError or transport error wrapping
//     ErrTransient) once MaxAttempts attempts have failed transiently.
func (c *Client) Execute(ctx context.Context, target string, newRequest RequestFunc, policy Policy) (*http.Response, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	log := logger.FromContextOrDefault(ctx, c.logger).With(slog.String("target", target))

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w before attempt %d/%d: %w", ErrAborted, attempt, policy.MaxAttempts, err)
		}

		resp, wait, err := c.attempt(ctx, log, target, attempt, newRequest, policy)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrAborted) || !errors.Is(err, ErrTransient) {
			return nil, err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		log.Warn("transient upstream failure, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", policy.MaxAttempts),
			slog.Duration("delay", wait),
			slog.String("error", redact.Error(err)))

		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("%w during backoff after attempt %d/%d: %w", ErrAborted, attempt, policy.MaxAttempts, err)
		}
	}

	log.Warn("upstream retries exhausted",
		slog.Int("max_attempts", policy.MaxAttempts),
		slog.String("error", redact.Error(lastErr)))
	return nil, lastErr
}

// attempt performs one try. On a transient failure it also returns how long to wait
// before the next attempt.
func (c *Client) attempt(
	ctx context.Context,
	log *slog.Logger,
	target string,
	attempt int,
	newRequest RequestFunc,
	policy Policy,
) (*http.Response, time.Duration, error) {
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if policy.PerAttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, policy.PerAttemptTimeout)
	}

	req, err := newRequest(attemptCtx)
	if err != nil {
		cancel()
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		cancel()
		if ctx.Err() != nil {
			c.observe(target, attempt, 0, OutcomeAborted, elapsed)
			return nil, 0, fmt.Errorf("%w during attempt %d/%d: %w", ErrAborted, attempt, policy.MaxAttempts, ctx.Err())
		}
		c.observe(target, attempt, 0, OutcomeTransport, elapsed)
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("attempt timed out after %s: %w", policy.PerAttemptTimeout, err)
		}
		return nil, c.backoff(policy, attempt), fmt.Errorf("%w: attempt %d/%d: %w", ErrTransient, attempt, policy.MaxAttempts, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.observe(target, attempt, resp.StatusCode, OutcomeSuccess, elapsed)
		// The attempt context must outlive this function until the caller has read the body.
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, 0, nil
	}

	body := readErrorBody(resp.Body)
	cancel()

	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: body}

	switch {
	case IsRetryableStatus(resp.StatusCode):
		c.observe(target, attempt, resp.StatusCode, OutcomeTransient, elapsed)
		statusErr.kind = ErrTransient
		wait := c.backoff(policy, attempt)
		if hint, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			statusErr.RetryAfter = hint
			wait = hint
		}
		return nil, wait, statusErr

	case resp.StatusCode == http.StatusNotFound:
		c.observe(target, attempt, resp.StatusCode, OutcomeNotFound, elapsed)
		statusErr.kind = ErrEndpointNotFound
		log.Error("upstream returned 404, check endpoint URL and model name",
			slog.Int("status", resp.StatusCode),
			slog.String("body", redact.Snippet(body, notFoundLogSnippet)))
		return nil, 0, statusErr

	default:
		c.observe(target, attempt, resp.StatusCode, OutcomeUpstream, elapsed)
		statusErr.kind = ErrUpstream
		return nil, 0, statusErr
	}
}

func (c *Client) backoff(policy Policy, attempt int) time.Duration {
	return policy.backoff(attempt) + c.jitter()
}

func (c *Client) observe(target string, attempt, status int, outcome Outcome, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveAttempt(target, attempt, status, outcome, elapsed)
	}
}

// parseRetryAfter accepts a non-negative number of seconds, integer or decimal.
// HTTP-date values are not honored and fall back to computed backoff.
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func readErrorBody(body io.ReadCloser) string {
	if body == nil {
		return ""
	}
	defer body.Close()
	b, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(b)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cancelOnClose releases the attempt context when the response body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
