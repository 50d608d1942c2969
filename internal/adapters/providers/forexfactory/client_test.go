package forexfactory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
)

var utc8 = time.FixedZone("UTC+8", 8*3600)

const calendarPage = `<html><head>
<script>window.user = {'Joined': '2025-05-14', 'date': 'x'};</script>
</head><body>
<table class="calendar__table">
  <tr class="calendar__row calendar__row--date"><td>Wed May 14</td></tr>
  <tr class="calendar__row">
    <td class="calendar__time">1:30am</td>
    <td class="calendar__currency">AUD</td>
    <td class="calendar__impact"><span class="icon calendar__impact-icon--medium"></span></td>
    <td class="calendar__event"><span>Wage Price Index q/q</span></td>
    <td class="calendar__actual">0.9%</td>
    <td class="calendar__forecast">0.8%</td>
    <td class="calendar__previous">0.7%</td>
  </tr>
  <tr class="calendar__row">
    <td class="calendar__time"></td>
    <td class="calendar__currency">AUD</td>
    <td class="calendar__impact"><span class="icon calendar__impact-icon--low"></span></td>
    <td class="calendar__event">  Construction   Work Done q/q </td>
    <td class="calendar__actual"></td>
    <td class="calendar__forecast">0.5%</td>
    <td class="calendar__previous">0.1%</td>
  </tr>
  <tr class="calendar__row calendar__row--grey">
    <td class="calendar__time">2:00am</td>
    <td class="calendar__currency">NZD</td>
    <td class="calendar__event">Past event</td>
  </tr>
  <tr class="calendar__row">
    <td class="calendar__time">8:30pm</td>
    <td class="calendar__currency">USD</td>
    <td class="calendar__impact"><span class="icon calendar__impact-icon--high"></span></td>
    <td class="calendar__event">PPI m/m</td>
    <td class="calendar__actual"></td>
    <td class="calendar__forecast">0.2%</td>
    <td class="calendar__previous">-0.4%</td>
  </tr>
  <tr class="calendar__row">
    <td class="calendar__time">All Day</td>
    <td class="calendar__currency">EUR</td>
    <td class="calendar__impact"><span class="icon calendar__impact-icon--holiday"></span></td>
    <td class="calendar__event">Bank Holiday</td>
  </tr>
</table>
</body></html>`

func TestParsePage(t *testing.T) {
	page, err := ParsePage([]byte(calendarPage))
	require.NoError(t, err)

	assert.Equal(t, "2025-05-14", page.Date.Format(domain.DateLayout))
	require.Len(t, page.Records, 4)

	first := page.Records[0]
	assert.Equal(t, "1:30am", first["time"])
	assert.Equal(t, "AUD", first["currency"])
	assert.Equal(t, "Medium", first["impact"])
	assert.Equal(t, "Wage Price Index q/q", first["event"])
	assert.Equal(t, "0.9%", first["actual"])

	assert.Equal(t, "", page.Records[1]["time"])
	assert.Equal(t, "Construction Work Done q/q", page.Records[1]["event"])
	assert.Equal(t, "Low", page.Records[1]["impact"])
	assert.Equal(t, "High", page.Records[2]["impact"])
	assert.Equal(t, "Holiday", page.Records[3]["impact"])
	assert.Equal(t, "", page.Records[3]["forecast"])
}

func TestParsePageWithoutTable(t *testing.T) {
	page, err := ParsePage([]byte(`<html><body>Just a moment...</body></html>`))
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.True(t, page.Date.IsZero())
}

func TestPageDateFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "json date",
			html: `<html><script>var cal = {"date":"May 13, 2025"};</script></html>`,
			want: "2025-05-13",
		},
		{
			name: "today link",
			html: `<html><body><a href="/calendar?day=jun3.2025#detail=1234">Today</a></body></html>`,
			want: "2025-06-03",
		},
		{
			name: "other day links ignored",
			html: `<html><body><a href="/calendar?day=jun4.2025">Next</a></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePage([]byte(tt.html))
			require.NoError(t, err)
			if tt.want == "" {
				assert.True(t, page.Date.IsZero())
				return
			}
			assert.Equal(t, tt.want, page.Date.Format(domain.DateLayout))
		})
	}
}

func TestFetchRequestAndNormalize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "may14.2025", r.URL.Query().Get("day"))
		c, err := r.Cookie("gmt_offset")
		require.NoError(t, err)
		assert.Equal(t, "8", c.Value)
		_, _ = w.Write([]byte(calendarPage))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Location: utc8})
	day := time.Date(2025, 5, 14, 0, 0, 0, 0, utc8)

	records, err := c.Fetch(context.Background(), domain.Range{From: day, To: day})
	require.NoError(t, err)
	require.Len(t, records, 4)

	events, dropped := calendar.NormalizeAll(records, Schema, utc8)
	assert.Zero(t, dropped)
	require.Len(t, events, 4)

	assert.Equal(t, "01:30", events[0].Time)
	assert.Equal(t, domain.ImpactMedium, events[0].Impact)
	assert.Equal(t, "01:30", events[1].Time, "blank time inherits the previous row")
	assert.Equal(t, "20:30", events[2].Time)
	assert.Equal(t, domain.ImpactHigh, events[2].Impact)
	assert.Equal(t, "2025-05-14", events[2].Date)
	assert.Equal(t, "00:00", events[3].Time, "all-day events fall back to midnight")
	assert.Equal(t, domain.ImpactLow, events[3].Impact)
}

func TestFetchFallsBackToKnownSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>var cal = {"date":"May 13, 2025"};</script><body></body></html>`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Location: utc8})
	day := time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)

	records, err := c.Fetch(context.Background(), domain.Range{From: day})
	require.NoError(t, err)
	require.Len(t, records, 24)

	events, _ := calendar.NormalizeAll(records, Schema, utc8)
	byTitle := map[string]domain.Event{}
	for _, ev := range events {
		byTitle[ev.Title] = ev
	}

	cpi := byTitle["Core CPI m/m"]
	assert.Equal(t, "USD", cpi.Currency)
	assert.Equal(t, domain.ImpactHigh, cpi.Impact)
	assert.Equal(t, "20:30", cpi.Time)
	assert.Equal(t, "0.3%", cpi.Forecast)
	assert.Equal(t, "0.1%", cpi.Previous)

	assert.Equal(t, "07:50", byTitle["M2 Money Stock y/y"].Time)
	assert.Equal(t, "00:00", byTitle["Loan Officer Survey"].Time)
	assert.Equal(t, "23:00", byTitle["BOE Gov Bailey Speaks"].Time)
}

func TestFetchEmptyPageWithoutSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Location: utc8})
	records, err := c.Fetch(context.Background(), domain.Range{From: time.Date(2025, 6, 2, 0, 0, 0, 0, utc8)})

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFixtureOverrideDir(t *testing.T) {
	dir := t.TempDir()
	data := `{"date":"Monday, June 2, 2025","events":[{"time":"9:00am","currency":"CHF","impact":"Low","event":"Retail Sales y/y"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-06-02.json"), []byte(data), 0o644))

	f := NewFixtures(dir)

	records, ok := f.Load("2025-06-02")
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "CHF", records[0]["currency"])

	// embedded snapshots stay reachable through an override dir
	records, ok = f.Load("2025-05-13")
	require.True(t, ok)
	assert.Len(t, records, 24)

	_, ok = f.Load("2025-01-01")
	assert.False(t, ok)
}

func TestDayParam(t *testing.T) {
	assert.Equal(t, "may13.2025", DayParam(time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)))
	assert.Equal(t, "dec1.2024", DayParam(time.Date(2024, 12, 1, 0, 0, 0, 0, utc8)))
}
