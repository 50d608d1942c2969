package investing

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
)

var utc8 = time.FixedZone("UTC+8", 8*3600)

const calendarPage = `<html><body><table id="economicCalendarData"><tbody>
<tr class="theDay"><td>Tuesday, May 13, 2025</td></tr>
<tr class="js-event-item" data-event-datetime="2025/05/13 12:30:00">
  <td class="first left time">12:30</td>
  <td class="left flagCur noWrap"><span title="United States" class="ceFlags United_States"></span> USD</td>
  <td class="left textNum sentiment noWrap"><i class="grayFullBullishIcon"></i><i class="grayFullBullishIcon"></i><i class="grayFullBullishIcon"></i></td>
  <td class="left event"><a href="/economic-calendar/cpi-733">CPI (MoM)  (Apr)</a></td>
  <td class="bold act">0.2%</td>
  <td class="fore">0.3%</td>
  <td class="prev">-0.1%</td>
</tr>
<tr class="js-event-item" data-event-datetime="2025/05/13 09:00:00">
  <td class="left flagCur noWrap">EUR</td>
  <td class="left textNum sentiment noWrap"><i class="grayFullBullishIcon"></i><i class="grayFullBullishIcon"></i><i class="grayEmptyBullishIcon"></i></td>
  <td class="left event">ZEW Economic Sentiment (May)</td>
  <td class="act"></td>
  <td class="fore">-3.5</td>
  <td class="prev">-18.5</td>
</tr>
<tr class="js-event-item" data-event-datetime="garbage">
  <td class="left flagCur noWrap"><span title="Brazil"></span> BRL</td>
  <td class="left textNum sentiment noWrap"><i class="grayFullBullishIcon"></i></td>
  <td class="left event">Retail Sales</td>
</tr>
</tbody></table></body></html>`

func TestParsePage(t *testing.T) {
	records, err := ParsePage([]byte(calendarPage), time.UTC)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "United States", records[0]["country"])
	assert.Equal(t, "3", records[0]["impact"])
	assert.Equal(t, "CPI (MoM) (Apr)", records[0]["event"])
	assert.Equal(t, "2025-05-13T12:30:00Z", records[0]["datetime"])
	assert.Equal(t, "0.2%", records[0]["actual"])

	assert.Equal(t, "EUR", records[1]["country"])
	assert.Equal(t, "2", records[1]["impact"])

	_, hasTime := records[2]["datetime"]
	assert.False(t, hasTime)
}

func TestFetchAndNormalize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(calendarPage))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Location: utc8})
	day := time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)

	records, err := c.Fetch(context.Background(), domain.Range{From: day})
	require.NoError(t, err)

	events, dropped := calendar.NormalizeAll(records, Schema, utc8)
	assert.Equal(t, 1, dropped, "Brazil has no currency mapping")
	require.Len(t, events, 2)

	assert.Equal(t, "USD", events[0].Currency)
	assert.Equal(t, domain.ImpactHigh, events[0].Impact)
	assert.Equal(t, "20:30", events[0].Time)
	assert.Equal(t, "2025-05-13", events[0].Date)

	assert.Equal(t, "EUR", events[1].Currency)
	assert.Equal(t, domain.ImpactMedium, events[1].Impact)
	assert.Equal(t, "17:00", events[1].Time)
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	day := time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)

	first := Synthesize(day, SeededRand(day), nil)
	second := Synthesize(day, SeededRand(day), nil)
	assert.Equal(t, first, second)

	other := Synthesize(day.AddDate(0, 0, 1), SeededRand(day.AddDate(0, 0, 1)), nil)
	assert.NotEqual(t, first, other)
}

func TestSynthesizeCounts(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want int
	}{
		{"monday", time.Date(2025, 5, 12, 0, 0, 0, 0, utc8), 26},
		{"tuesday", time.Date(2025, 5, 13, 0, 0, 0, 0, utc8), 35},
		{"wednesday capped at template count", time.Date(2025, 5, 14, 0, 0, 0, 0, utc8), 35},
		{"saturday", time.Date(2025, 5, 17, 0, 0, 0, 0, utc8), 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Synthesize(tt.day, SeededRand(tt.day), nil), tt.want)
		})
	}
}

func TestSynthesizedEventsNormalize(t *testing.T) {
	day := time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)
	records := Synthesize(day, SeededRand(day), []string{"USD"})
	require.Len(t, records, 7)

	events, dropped := calendar.NormalizeAll(records, Schema, utc8)
	assert.Zero(t, dropped)

	prev := ""
	for _, ev := range events {
		assert.Equal(t, "USD", ev.Currency)
		assert.Equal(t, "2025-05-13", ev.Date)
		assert.True(t, ev.Estimated)
		assert.NotEmpty(t, ev.Previous)
		assert.Empty(t, ev.Actual)
		assert.True(t, ev.Impact.Valid())
		assert.GreaterOrEqual(t, ev.Time, prev, "records are time ordered")
		prev = ev.Time
	}
}

func TestFallbackIgnoresUnknownCurrencies(t *testing.T) {
	c := New(Config{Location: utc8})
	day := time.Date(2025, 5, 13, 9, 0, 0, 0, utc8)

	assert.Len(t, c.Fallback(day, []string{"CNY"}), 35)
}

func TestSeededRandSeed(t *testing.T) {
	// Tuesday the 13th: 13 + 1*31
	day := time.Date(2025, 5, 13, 0, 0, 0, 0, utc8)
	assert.Equal(t, rand.New(rand.NewSource(44)).Int63(), SeededRand(day).Int63())
}
