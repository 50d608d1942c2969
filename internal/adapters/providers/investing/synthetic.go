package investing

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
)

type template struct {
	name   string
	hour   int
	impact int
	unit   string // "%", "K", "M", "B" or "" for index levels
	base   float64
	spread float64
}

// event counts scale with the day of the week, Monday first
var weekdayMultipliers = [7]float64{0.8, 1.0, 1.2, 1.0, 0.9, 0.4, 0.4}

var countryOrder = []string{
	"United States", "Euro Zone", "United Kingdom", "Japan",
	"Switzerland", "Australia", "New Zealand", "Canada",
}

var templates = map[string][]template{
	"United States": {
		{"Nonfarm Payrolls", 20, 3, "K", 180, 60},
		{"CPI (MoM)", 20, 3, "%", 0.3, 0.2},
		{"Core Retail Sales (MoM)", 20, 2, "%", 0.4, 0.4},
		{"Initial Jobless Claims", 20, 2, "K", 225, 15},
		{"ISM Manufacturing PMI", 22, 3, "", 49.5, 2},
		{"Crude Oil Inventories", 22, 1, "M", -1.2, 3},
		{"Fed Interest Rate Decision", 2, 3, "%", 4.5, 0},
	},
	"Euro Zone": {
		{"CPI (YoY)", 17, 3, "%", 2.2, 0.3},
		{"ECB Interest Rate Decision", 20, 3, "%", 2.25, 0},
		{"ZEW Economic Sentiment", 17, 2, "", 5, 10},
		{"Manufacturing PMI", 16, 2, "", 48.5, 1.5},
		{"GDP (QoQ)", 17, 2, "%", 0.2, 0.2},
	},
	"United Kingdom": {
		{"CPI (YoY)", 14, 3, "%", 3, 0.4},
		{"BoE Interest Rate Decision", 19, 3, "%", 4.25, 0},
		{"Claimant Count Change", 14, 2, "K", 20, 12},
		{"Retail Sales (MoM)", 14, 2, "%", 0.2, 0.5},
		{"Services PMI", 16, 1, "", 50.5, 1.5},
	},
	"Japan": {
		{"BoJ Interest Rate Decision", 11, 3, "%", 0.5, 0},
		{"Tokyo Core CPI (YoY)", 7, 2, "%", 2.8, 0.3},
		{"Trade Balance", 7, 1, "B", -300, 200},
		{"GDP (QoQ)", 7, 2, "%", 0.1, 0.3},
	},
	"Switzerland": {
		{"SNB Interest Rate Decision", 15, 3, "%", 0.25, 0},
		{"CPI (MoM)", 14, 2, "%", 0.1, 0.2},
		{"KOF Leading Indicators", 15, 1, "", 98, 3},
	},
	"Australia": {
		{"RBA Interest Rate Decision", 12, 3, "%", 3.85, 0},
		{"Employment Change", 9, 3, "K", 25, 20},
		{"Westpac Consumer Sentiment", 8, 1, "%", 0.5, 3},
		{"Retail Sales (MoM)", 9, 2, "%", 0.3, 0.4},
	},
	"New Zealand": {
		{"RBNZ Interest Rate Decision", 10, 3, "%", 3.25, 0},
		{"Employment Change (QoQ)", 6, 2, "%", 0.2, 0.3},
		{"Trade Balance", 6, 1, "M", -500, 300},
	},
	"Canada": {
		{"BoC Interest Rate Decision", 21, 3, "%", 2.75, 0},
		{"Employment Change", 20, 3, "K", 15, 20},
		{"CPI (MoM)", 20, 2, "%", 0.2, 0.3},
		{"Ivey PMI", 22, 1, "", 52, 3},
	},
}

// SeededRand returns the generator used for day's synthetic events.
// The seed is day-of-month + weekday*31 with Monday as 0.
func SeededRand(day time.Time) *rand.Rand {
	return rand.New(rand.NewSource(int64(day.Day() + weekdayIndex(day)*31)))
}

// Synthesize produces plausible estimated events for day in day's location.
// The same day and generator state always yield the same records.
func Synthesize(day time.Time, rng *rand.Rand, currencies []string) []domain.RawRecord {
	mult := weekdayMultipliers[weekdayIndex(day)]
	wanted := currencySet(currencies)

	type timed struct {
		at  time.Time
		rec domain.RawRecord
	}
	var out []timed

	for _, country := range countryOrder {
		if len(wanted) > 0 && !wanted[countryCurrencies[country]] {
			continue
		}

		list := templates[country]
		n := int(float64(len(list)) * mult)
		n = max(1, min(n, len(list)))

		for _, idx := range rng.Perm(len(list))[:n] {
			tpl := list[idx]
			at := time.Date(day.Year(), day.Month(), day.Day(), tpl.hour, rng.Intn(60), 0, 0, day.Location())

			forecast := ""
			if rng.Float64() >= 0.3 {
				forecast = tpl.value(rng)
			}

			out = append(out, timed{at: at, rec: domain.RawRecord{
				"country":               country,
				"event":                 tpl.name,
				"impact":                strconv.Itoa(tpl.impact),
				"datetime":              at.UTC().Format(time.RFC3339),
				"forecast":              forecast,
				"previous":              tpl.value(rng),
				"actual":                "",
				calendar.DayField:       day.Format(domain.DateLayout),
				calendar.EstimatedField: true,
			}})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })

	records := make([]domain.RawRecord, len(out))
	for i, t := range out {
		records[i] = t.rec
	}
	return records
}

func (t template) value(rng *rand.Rand) string {
	v := decimal.NewFromFloat(t.base + (rng.Float64()*2-1)*t.spread)

	switch t.unit {
	case "%":
		return v.StringFixed(1) + "%"
	case "K", "M", "B":
		return v.Round(0).String() + t.unit
	default:
		return v.StringFixed(1)
	}
}

func weekdayIndex(day time.Time) int {
	return (int(day.Weekday()) + 6) % 7
}

func currencySet(currencies []string) map[string]bool {
	set := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		set[strings.ToUpper(strings.TrimSpace(c))] = true
	}

	// an allow-list naming none of the synthesized currencies means all of them
	for _, country := range countryOrder {
		if set[countryCurrencies[country]] {
			return set
		}
	}
	return nil
}
