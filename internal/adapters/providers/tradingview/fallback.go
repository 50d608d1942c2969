package tradingview

import (
	"sort"
	"time"

	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
)

type staticEvent struct {
	hourOffset int
	minute     int
	title      string
	importance int
}

// currencies with typical releases per weekday (Monday first)
var weekdayCurrencies = map[time.Weekday][]string{
	time.Monday:    {"USD", "EUR"},
	time.Tuesday:   {"GBP", "USD", "AUD"},
	time.Wednesday: {"JPY", "EUR", "USD"},
	time.Thursday:  {"USD", "GBP", "CHF"},
	time.Friday:    {"USD", "CAD", "JPY"},
	time.Saturday:  {"USD"},
	time.Sunday:    {"USD"},
}

var staticEvents = map[string][]staticEvent{
	"USD": {
		{1, 30, "Retail Sales", 1},
		{2, 0, "CPI m/m", 3},
		{3, 30, "Unemployment Claims", 1},
		{4, 0, "Fed Chair Speech", 3},
	},
	"EUR": {
		{1, 0, "ECB Interest Rate Decision", 3},
		{2, 30, "German Manufacturing PMI", 1},
		{3, 45, "French CPI", 1},
	},
	"GBP": {
		{2, 30, "BOE Interest Rate Decision", 3},
		{3, 0, "UK Employment Change", 1},
	},
	"JPY": {
		{1, 50, "BOJ Policy Meeting", 3},
		{3, 30, "Tokyo CPI", 1},
	},
	"CHF": {
		{2, 15, "SNB Interest Rate Decision", 3},
		{3, 30, "Trade Balance", -1},
	},
	"AUD": {
		{2, 30, "RBA Interest Rate Decision", 3},
		{4, 0, "Employment Change", 1},
	},
	"CAD": {
		{1, 15, "BOC Interest Rate Decision", 3},
		{3, 30, "Employment Change", 1},
	},
	"NZD": {
		{2, 0, "RBNZ Interest Rate Decision", 3},
		{3, 45, "GDP q/q", 1},
	},
}

// Fallback returns static estimated events for a local day, shaped like API records.
// Times are spread over the hours following the current hour, wrapping at midnight.
// When currencies are requested and none has releases that weekday, the requested
// currencies are used instead.
func (c *Client) Fallback(day time.Time, currencies []string) []domain.RawRecord {
	local := day.In(c.location)
	base := c.now().In(c.location).Hour()

	active := weekdayCurrencies[local.Weekday()]
	if len(currencies) > 0 && !overlaps(active, currencies) {
		active = currencies
	}

	dayStr := local.Format(domain.DateLayout)
	var records []domain.RawRecord
	for _, ccy := range active {
		country, ok := domain.CountryCode(ccy)
		if !ok {
			continue
		}
		for _, ev := range staticEvents[ccy] {
			at := time.Date(local.Year(), local.Month(), local.Day(), (base+ev.hourOffset)%24, ev.minute, 0, 0, c.location)
			records = append(records, domain.RawRecord{
				"country":               country,
				"title":                 ev.title,
				"importance":            float64(ev.importance),
				"date":                  at.UTC().Format(time.RFC3339),
				calendar.DayField:       dayStr,
				calendar.EstimatedField: true,
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i]["date"].(string) < records[j]["date"].(string)
	})

	c.log.Infow("Generated static fallback events", "day", dayStr, "count", len(records))
	return records
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
