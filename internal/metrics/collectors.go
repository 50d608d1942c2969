package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/logger"
)

// SnapshotLister lists cached snapshots
type SnapshotLister interface {
	List(ctx context.Context) ([]domain.SnapshotInfo, error)
}

// BreakerStates reports circuit breaker state per provider (0=closed, 1=half-open, 2=open)
type BreakerStates func() map[string]int

// CustomCollector collects point-in-time cache and circuit breaker gauges
type CustomCollector struct {
	log      *logger.Logger
	cache    SnapshotLister
	breakers BreakerStates
	now      func() time.Time

	// Descriptors
	cacheSnapshots    *prometheus.Desc
	cacheBytes        *prometheus.Desc
	newestSnapshotAge *prometheus.Desc
	breakerState      *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(cache SnapshotLister, breakers BreakerStates) *CustomCollector {
	return &CustomCollector{
		log:      logger.Get().With("component", "metrics_collector"),
		cache:    cache,
		breakers: breakers,
		now:      time.Now,

		cacheSnapshots: prometheus.NewDesc(
			"calendarbot_cache_snapshots",
			"Number of cached calendar snapshots",
			nil, nil,
		),
		cacheBytes: prometheus.NewDesc(
			"calendarbot_cache_bytes",
			"Total size of cached snapshots in bytes",
			nil, nil,
		),
		newestSnapshotAge: prometheus.NewDesc(
			"calendarbot_cache_newest_age_seconds",
			"Age of the most recently saved snapshot",
			nil, nil,
		),
		breakerState: prometheus.NewDesc(
			"calendarbot_circuit_breaker_state",
			"Provider circuit breaker state (0=closed, 1=half-open, 2=open)",
			[]string{"provider"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheSnapshots
	ch <- c.cacheBytes
	ch <- c.newestSnapshotAge
	ch <- c.breakerState
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectCacheStats(ctx, ch)
	c.collectBreakerStates(ch)
}

func (c *CustomCollector) collectCacheStats(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.cache == nil {
		return
	}

	infos, err := c.cache.List(ctx)
	if err != nil {
		c.log.Errorw("Failed to collect cache stats", "error", err)
		return
	}

	var total int64
	var newest time.Time
	for _, info := range infos {
		total += info.Size
		if info.SavedAt.After(newest) {
			newest = info.SavedAt
		}
	}

	ch <- prometheus.MustNewConstMetric(c.cacheSnapshots, prometheus.GaugeValue, float64(len(infos)))
	ch <- prometheus.MustNewConstMetric(c.cacheBytes, prometheus.GaugeValue, float64(total))

	if !newest.IsZero() {
		ch <- prometheus.MustNewConstMetric(
			c.newestSnapshotAge,
			prometheus.GaugeValue,
			c.now().Sub(newest).Seconds(),
		)
	}
}

func (c *CustomCollector) collectBreakerStates(ch chan<- prometheus.Metric) {
	if c.breakers == nil {
		return
	}

	for provider, state := range c.breakers() {
		ch <- prometheus.MustNewConstMetric(
			c.breakerState,
			prometheus.GaugeValue,
			float64(state),
			provider,
		)
	}
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
