package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calendarbot_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "calendarbot_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Provider metrics
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_provider_requests_total",
			Help: "Total number of calendar provider HTTP requests",
		},
		[]string{"provider", "status"}, // status: success|error|rate_limited|circuit_open
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calendarbot_provider_latency_seconds",
			Help:    "Calendar provider request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// Pipeline metrics
	EventsNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_events_normalized_total",
			Help: "Raw records normalized into events",
		},
		[]string{"source"},
	)

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_events_dropped_total",
			Help: "Raw records dropped because their country has no currency mapping",
		},
		[]string{"source"},
	)

	FallbackUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_fallback_used_total",
			Help: "Times a stale cache or synthetic fallback replaced live data",
		},
		[]string{"kind"}, // kind: stale_cache|synthetic
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_cache_lookups_total",
			Help: "Snapshot cache lookups by result",
		},
		[]string{"backend", "result"}, // result: hit|miss|stale|error
	)

	// Delivery metrics
	TelegramMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_telegram_messages_total",
			Help: "Telegram message chunks sent",
		},
		[]string{"status"}, // status: success|error
	)

	EnrichmentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendarbot_enrichment_calls_total",
			Help: "AI enrichment calls",
		},
		[]string{"model", "status"},
	)

	EnrichmentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calendarbot_enrichment_latency_seconds",
			Help:    "AI enrichment latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus; safe to call more than once
func Init() {
	registerOnce.Do(func() {
		// Worker metrics
		prometheus.MustRegister(WorkerExecutions)
		prometheus.MustRegister(WorkerDuration)
		prometheus.MustRegister(WorkerLastRun)

		// Provider metrics
		prometheus.MustRegister(ProviderRequests)
		prometheus.MustRegister(ProviderLatency)

		// Pipeline metrics
		prometheus.MustRegister(EventsNormalized)
		prometheus.MustRegister(EventsDropped)
		prometheus.MustRegister(FallbackUsed)
		prometheus.MustRegister(CacheLookups)

		// Delivery metrics
		prometheus.MustRegister(TelegramMessages)
		prometheus.MustRegister(EnrichmentCalls)
		prometheus.MustRegister(EnrichmentLatency)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, status(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordProviderRequest records one provider fetch; outcome overrides the derived status when set
func RecordProviderRequest(provider string, latency time.Duration, outcome string, err error) {
	if outcome == "" {
		outcome = status(err)
	}
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordNormalization records kept and dropped record counts for a source
func RecordNormalization(source string, kept, dropped int) {
	EventsNormalized.WithLabelValues(source).Add(float64(kept))
	EventsDropped.WithLabelValues(source).Add(float64(dropped))
}

// RecordCacheLookup records a cache lookup result
func RecordCacheLookup(backend, result string) {
	CacheLookups.WithLabelValues(backend, result).Inc()
}

// RecordFallback records a fallback of the given kind
func RecordFallback(kind string) {
	FallbackUsed.WithLabelValues(kind).Inc()
}

// RecordTelegramSend records sent chunks and an optional failure
func RecordTelegramSend(sent int, err error) {
	TelegramMessages.WithLabelValues("success").Add(float64(sent))
	if err != nil {
		TelegramMessages.WithLabelValues("error").Inc()
	}
}

// RecordEnrichment records an enrichment call
func RecordEnrichment(model string, latency time.Duration, err error) {
	EnrichmentCalls.WithLabelValues(model, status(err)).Inc()
	EnrichmentLatency.WithLabelValues(model).Observe(latency.Seconds())
}
