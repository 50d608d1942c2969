package tradingview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
)

var utc8 = time.FixedZone("UTC+8", 8*3600)

func TestFetchRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2025-05-12T16:00:00.000Z", q.Get("from"))
		assert.Equal(t, "2025-05-13T15:59:59.000Z", q.Get("to"))
		assert.Equal(t, "US,EU", q.Get("countries"))
		assert.Equal(t, "1000", q.Get("limit"))
		assert.Equal(t, "https://www.tradingview.com", r.Header.Get("Origin"))
		_, _ = w.Write([]byte(`{"status":"ok","result":[{"country":"US","importance":3,"date":"2025-05-13T14:30:00.000Z","title":"CPI m/m"}]}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Location: utc8})
	day := time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)

	records, err := c.Fetch(context.Background(), domain.Range{From: day, To: day, Currencies: []string{"USD", "EUR"}})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-05-13", records[0][calendar.DayField])
}

func TestCPIScenario(t *testing.T) {
	rec := domain.RawRecord{
		"country":    "US",
		"importance": float64(3),
		"date":       "2025-05-13T14:30:00.000Z",
		"title":      "CPI m/m",
	}

	ev, ok := calendar.Normalize(rec, Schema, utc8)
	require.True(t, ok)
	assert.Equal(t, "USD", ev.Currency)
	assert.Equal(t, domain.ImpactHigh, ev.Impact)
	assert.Equal(t, "22:30", ev.Time)
	assert.Equal(t, "CPI m/m", ev.Title)

	kept := calendar.FilterAndSort([]domain.Event{ev}, calendar.FilterOptions{TodayOnly: true, Today: "2025-05-13"})
	assert.Len(t, kept, 1)
}

func TestSchemaImpactTable(t *testing.T) {
	tests := []struct {
		importance any
		want       domain.Impact
	}{
		{float64(-1), domain.ImpactLow},
		{float64(0), domain.ImpactMedium},
		{float64(1), domain.ImpactMedium},
		{float64(2), domain.ImpactHigh},
		{float64(3), domain.ImpactHigh},
		{float64(7), domain.ImpactLow},
		{nil, domain.ImpactLow},
	}

	for _, tt := range tests {
		ev, ok := calendar.Normalize(domain.RawRecord{"country": "GB", "importance": tt.importance}, Schema, utc8)
		require.True(t, ok)
		assert.Equal(t, tt.want, ev.Impact, "importance %v", tt.importance)
	}
}

func TestSchemaDropsUnknownCountry(t *testing.T) {
	_, ok := calendar.Normalize(domain.RawRecord{"country": "XX", "importance": float64(3)}, Schema, utc8)
	assert.False(t, ok)
}

func TestParseBodyShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array", `[{"country":"US"},{"country":"EU"}]`, 2},
		{"result", `{"result":[{"country":"US"}]}`, 1},
		{"data", `{"data":[{"country":"JP"}]}`, 1},
		{"content", `{"content":"[{\"country\":\"CA\"}]"}`, 1},
		{"empty", ` [] `, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseBody([]byte(tt.body))
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestParseBodyRejectsHTML(t *testing.T) {
	_, err := ParseBody([]byte("<html>blocked</html>"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestFallback(t *testing.T) {
	c := New(Config{Location: utc8})
	c.now = func() time.Time { return time.Date(2025, 5, 13, 9, 0, 0, 0, utc8) }
	tuesday := time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)

	records := c.Fallback(tuesday, nil)
	events, dropped := calendar.NormalizeAll(records, Schema, utc8)

	assert.Zero(t, dropped)
	require.Len(t, events, 8) // GBP 2 + USD 4 + AUD 2
	for _, ev := range events {
		assert.True(t, ev.Estimated)
		assert.Equal(t, "2025-05-13", ev.Date)
	}

	byTitle := map[string]domain.Event{}
	for _, ev := range events {
		byTitle[ev.Title] = ev
	}
	assert.Equal(t, "11:00", byTitle["CPI m/m"].Time)
	assert.Equal(t, domain.ImpactHigh, byTitle["CPI m/m"].Impact)
	assert.Equal(t, domain.ImpactMedium, byTitle["Retail Sales"].Impact)

	only := c.Fallback(tuesday, []string{"NZD"})
	assert.Len(t, only, 2)
}
