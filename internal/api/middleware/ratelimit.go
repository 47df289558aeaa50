package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/phrazzld/adsmith-api/internal/api/shared"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/platform/ratelimit"
)

// RateLimitRecorder counts rejected requests. metrics.Collector satisfies it.
type RateLimitRecorder interface {
	ObserveRateLimited()
}

// RateLimit throttles requests per authenticated user, falling back to the
// client IP for anonymous requests. A limiter backend failure lets the
// request through.
func RateLimit(limiter ratelimit.Limiter, recorder RateLimitRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := limiter.Allow(r.Context(), rateLimitKey(r))
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var limited *ratelimit.LimitedError
			if !errors.As(err, &limited) {
				logger.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request",
					slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if recorder != nil {
				recorder.ObserveRateLimited()
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
				"Too many requests. Please slow down.", err,
				shared.WithRetryAfter(ratelimit.RetryAfterSeconds(limited.RetryAfter)))
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if userID, ok := shared.GetUserID(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
