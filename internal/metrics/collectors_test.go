package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "calendarbot/internal/domain/calendar"
)

type staticLister []domain.SnapshotInfo

func (s staticLister) List(context.Context) ([]domain.SnapshotInfo, error) {
	return s, nil
}

func TestCustomCollector(t *testing.T) {
	now := time.Date(2025, 5, 13, 12, 0, 0, 0, time.UTC)
	lister := staticLister{
		{Date: "2025-05-13", Size: 2048, SavedAt: now.Add(-10 * time.Minute)},
		{Date: "2025-05-12", Size: 1024, SavedAt: now.Add(-25 * time.Hour)},
	}
	breakers := func() map[string]int {
		return map[string]int{"tradingview": 0, "forexfactory": 2}
	}

	c := NewCustomCollector(lister, breakers)
	c.now = func() time.Time { return now }

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string][]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			values[mf.GetName()] = append(values[mf.GetName()], m.GetGauge().GetValue())
		}
	}

	assert.Equal(t, []float64{2}, values["calendarbot_cache_snapshots"])
	assert.Equal(t, []float64{3072}, values["calendarbot_cache_bytes"])
	assert.Equal(t, []float64{600}, values["calendarbot_cache_newest_age_seconds"])
	assert.ElementsMatch(t, []float64{0, 2}, values["calendarbot_circuit_breaker_state"])
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
