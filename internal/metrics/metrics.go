package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    *prometheus.CounterVec

	// Generation metrics
	ShotsTotal           *prometheus.CounterVec
	GenerationDuration   *prometheus.HistogramVec
	UpstreamRequestTotal *prometheus.CounterVec
	BreakerState         *prometheus.GaugeVec

	// Video polling
	PollAttemptsTotal *prometheus.CounterVec

	// Storage
	BlobOperationsTotal *prometheus.CounterVec
	SetsPersistedTotal  *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	defaultM    *Metrics
)

// Default returns the process-wide metrics, registering them on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultM = New("studio", prometheus.DefaultRegisterer)
	})
	return defaultM
}

// New creates a Metrics instance registered on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "studio"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RateLimitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the per-user rate limiter",
			},
			[]string{"group"},
		),

		ShotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "shots_total",
				Help:      "Shots processed by outcome",
			},
			[]string{"shot", "status"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Upstream generation duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"provider"},
		),
		UpstreamRequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Upstream API requests by provider and outcome",
			},
			[]string{"provider", "status"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		PollAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "video",
				Name:      "poll_attempts_total",
				Help:      "Video status polls by result",
			},
			[]string{"result"},
		),

		BlobOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "blob_operations_total",
				Help:      "Blob store operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		SetsPersistedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "sets_persisted_total",
				Help:      "Generated sets written, by kind",
			},
			[]string{"kind"}, // kind: complete, partial, failed
		),
	}
}

// NewNop returns metrics bound to a private registry, for tests.
func NewNop() *Metrics {
	return New("test", prometheus.NewRegistry())
}
