package calendar

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
)

// DayField is set by adapters on every raw record to the requested local day (YYYY-MM-DD).
// It is the date used when the provider timestamp cannot be parsed.
const DayField = "_day"

// EstimatedField marks fallback or synthetic records
const EstimatedField = "_estimated"

// Schema describes how one provider's raw records map onto Event
type Schema struct {
	Name string

	CountryField  string
	ImpactField   string
	TitleField    string
	ForecastField string
	PreviousField string
	ActualField   string

	// provider country -> currency; records with no entry are dropped
	Countries map[string]string
	// raw impact key (as rendered by displayValue) -> level; missing keys are Low
	Impacts map[string]domain.Impact

	// ParseTime extracts the event instant. The result is converted to the display zone.
	ParseTime func(rec domain.RawRecord, loc *time.Location) (time.Time, error)
}

// Normalize maps a raw record into the canonical event.
// ok is false when the record's country has no currency mapping.
func Normalize(rec domain.RawRecord, schema Schema, loc *time.Location) (domain.Event, bool) {
	country := displayValue(rec[schema.CountryField])
	currency, found := schema.Countries[country]
	if !found {
		currency, found = schema.Countries[strings.ToUpper(country)]
	}
	if !found {
		return domain.Event{}, false
	}

	ev := domain.Event{
		Currency:  currency,
		Title:     displayValue(rec[schema.TitleField]),
		Impact:    lookupImpact(schema.Impacts, displayValue(rec[schema.ImpactField])),
		Forecast:  displayValue(rec[schema.ForecastField]),
		Previous:  displayValue(rec[schema.PreviousField]),
		Actual:    displayValue(rec[schema.ActualField]),
		Estimated: truthy(rec[EstimatedField]),
		Source:    schema.Name,
	}
	if ev.Title == "" {
		ev.Title = "Economic Event"
	}

	var at time.Time
	var err error
	if schema.ParseTime != nil {
		at, err = schema.ParseTime(rec, loc)
	} else {
		err = errors.Wrapf(errors.ErrParse, "schema %s has no time parser", schema.Name)
	}

	if err != nil {
		// lenient degrade: keep the record at local midnight of the requested day
		ev.Date = displayValue(rec[DayField])
		ev.Time = "00:00"
	} else {
		local := at.In(loc)
		ev.Date = local.Format(domain.DateLayout)
		ev.Time = local.Format(domain.TimeLayout)
	}

	return ev, true
}

// NormalizeAll normalizes a batch, returning the kept events and the number dropped
func NormalizeAll(records []domain.RawRecord, schema Schema, loc *time.Location) ([]domain.Event, int) {
	events := make([]domain.Event, 0, len(records))
	dropped := 0
	for _, rec := range records {
		ev, ok := Normalize(rec, schema, loc)
		if !ok {
			dropped++
			continue
		}
		events = append(events, ev)
	}
	return events, dropped
}

func lookupImpact(table map[string]domain.Impact, raw string) domain.Impact {
	if impact, ok := table[raw]; ok && impact.Valid() {
		return impact
	}
	if impact, ok := table[strings.ToLower(raw)]; ok && impact.Valid() {
		return impact
	}
	return domain.ImpactLow
}

// displayValue renders JSON-decoded values as display strings; nil becomes ""
func displayValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case domain.Impact:
		return strconv.Itoa(int(val))
	default:
		return ""
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(val)
		return b
	}
	return false
}

// ParseISOField returns a ParseTime strategy reading an ISO-8601 timestamp.
// Timestamps without a zone are taken as UTC.
func ParseISOField(field string) func(domain.RawRecord, *time.Location) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	return func(rec domain.RawRecord, _ *time.Location) (time.Time, error) {
		raw := displayValue(rec[field])
		if raw == "" {
			return time.Time{}, errors.Wrapf(errors.ErrParse, "empty %s", field)
		}
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errors.Wrapf(errors.ErrParse, "timestamp %q", raw)
	}
}

// ParseLocalFields returns a ParseTime strategy combining a local date field and a
// wall-clock time field, trying each time layout in order.
func ParseLocalFields(dateField, timeField string, timeLayouts ...string) func(domain.RawRecord, *time.Location) (time.Time, error) {
	return func(rec domain.RawRecord, loc *time.Location) (time.Time, error) {
		date := displayValue(rec[dateField])
		clock := strings.ToLower(strings.ReplaceAll(displayValue(rec[timeField]), " ", ""))
		if date == "" || clock == "" {
			return time.Time{}, errors.Wrapf(errors.ErrParse, "missing %s/%s", dateField, timeField)
		}
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(domain.DateLayout+" "+layout, date+" "+clock, loc); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errors.Wrapf(errors.ErrParse, "time %q on %s", clock, date)
	}
}

// CacheSchema re-normalizes events saved by older releases, which stored
// country/time/impact/event keys with times already local.
var CacheSchema = Schema{
	Name:          "cache",
	CountryField:  "country",
	ImpactField:   "impact",
	TitleField:    "event",
	ForecastField: "forecast",
	PreviousField: "previous",
	ActualField:   "actual",
	Countries: func() map[string]string {
		m := map[string]string{}
		for _, ccy := range append(append([]string{}, domain.MajorCurrencies...), domain.ExtraCurrencies...) {
			m[ccy] = ccy
		}
		return m
	}(),
	Impacts: map[string]domain.Impact{
		"high":   domain.ImpactHigh,
		"🔴":      domain.ImpactHigh,
		"medium": domain.ImpactMedium,
		"🟠":      domain.ImpactMedium,
		"low":    domain.ImpactLow,
	},
	ParseTime: ParseLocalFields(DayField, "time", "15:04", "3:04pm"),
}
