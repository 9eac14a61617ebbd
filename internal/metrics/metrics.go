package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leelaaverse_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Generation workflow
	GenerationSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_generation_submissions_total",
			Help: "Generation jobs submitted to a provider",
		},
		[]string{"provider", "model", "result"}, // result: "accepted", "rejected", "error"
	)

	GenerationPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_generation_polls_total",
			Help: "Generation status polls by observed phase",
		},
		[]string{"provider", "phase"},
	)

	GenerationTerminal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_generation_terminal_total",
			Help: "Generation records that reached a terminal state",
		},
		[]string{"status", "source"}, // source: "poll", "webhook", "sweep", "inline"
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leelaaverse_provider_request_duration_seconds",
			Help:    "Latency of calls to generation providers",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "operation", "status"},
	)

	MediaRelocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_media_relocations_total",
			Help: "Media relocations into permanent storage",
		},
		[]string{"result"},
	)

	MediaRelocationBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leelaaverse_media_relocation_bytes",
			Help:    "Size of relocated media objects",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		},
	)

	PostsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_posts_published_total",
			Help: "Posts created by source",
		},
		[]string{"source"}, // source: "generation", "upload", "text"
	)

	FeedCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_feed_cache_requests_total",
			Help: "Feed cache lookups",
		},
		[]string{"result"}, // result: "hit", "miss", "error"
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_events_published_total",
			Help: "Domain events written to the event bus",
		},
		[]string{"type", "result"},
	)

	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leelaaverse_sse_clients",
			Help: "Currently connected SSE streams",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leelaaverse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leelaaverse_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordHTTPRequest records a served request. route is the gin route template, not the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordProviderCall records one outbound provider request.
func RecordProviderCall(provider, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ProviderRequestDuration.WithLabelValues(provider, operation, status).Observe(duration.Seconds())
}
