// Package metrics exposes Prometheus instruments for the HTTP API, outbound
// generative-AI attempts and generation outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/adsmith-api/internal/platform/httpretry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adsmith"

// Collector owns every instrument. Create one per registry.
type Collector struct {
	registry prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamAttempts        *prometheus.CounterVec
	upstreamAttemptDuration *prometheus.HistogramVec

	generationsTotal *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

var _ httpretry.Observer = (*Collector)(nil)

// NewCollector registers the instruments on reg. Passing a fresh prometheus.NewRegistry()
// keeps tests isolated from the global registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	c := &Collector{registry: reg}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	c.upstreamAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Outbound generative-AI attempts by target and outcome",
		},
		[]string{"target", "outcome", "status"},
	)

	c.upstreamAttemptDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_attempt_duration_seconds",
			Help:      "Duration of a single outbound generative-AI attempt",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"target"},
	)

	c.generationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Completed generate calls by result",
		},
		[]string{"result"},
	)

	c.rateLimited = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the generation rate limiter",
	})

	return c
}

// ObserveAttempt implements httpretry.Observer.
func (c *Collector) ObserveAttempt(target string, _ int, status int, outcome httpretry.Outcome, elapsed time.Duration) {
	c.upstreamAttempts.WithLabelValues(target, string(outcome), statusLabel(status)).Inc()
	c.upstreamAttemptDuration.WithLabelValues(target).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveGeneration counts a generate call by result: success, partial (stored
// without a record) or failure.
func (c *Collector) ObserveGeneration(result string) {
	c.generationsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts one throttled request.
func (c *Collector) ObserveRateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}
