package calendar

import (
	"strings"

	"github.com/shopspring/decimal"

	domain "calendarbot/internal/domain/calendar"
)

var valueMultipliers = map[byte]decimal.Decimal{
	'K': decimal.NewFromInt(1_000),
	'M': decimal.NewFromInt(1_000_000),
	'B': decimal.NewFromInt(1_000_000_000),
	'T': decimal.NewFromInt(1_000_000_000_000),
}

// ParseValue parses indicator values such as "3.2%", "199K", "-0.4B" or "1,234.5".
// Display strings stay untouched; this is only used for derived numbers.
func ParseValue(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimLeft(s, "<>")
	if s == "" {
		return decimal.Zero, false
	}

	multiplier := decimal.NewFromInt(1)
	if m, ok := valueMultipliers[strings.ToUpper(s[len(s)-1:])[0]]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d.Mul(multiplier), true
}

// Surprise is (actual - forecast) / |forecast|. ok is false when either value
// is missing or unparsable, or the forecast is zero.
func Surprise(ev domain.Event) (decimal.Decimal, bool) {
	actual, ok := ParseValue(ev.Actual)
	if !ok {
		return decimal.Zero, false
	}
	forecast, ok := ParseValue(ev.Forecast)
	if !ok || forecast.IsZero() {
		return decimal.Zero, false
	}
	return actual.Sub(forecast).Div(forecast.Abs()), true
}

// FormatSurprise renders Surprise as a signed percentage, e.g. "+12.5%"
func FormatSurprise(ev domain.Event) string {
	s, ok := Surprise(ev)
	if !ok {
		return ""
	}
	pct := s.Mul(decimal.NewFromInt(100)).Round(1)
	if pct.IsPositive() {
		return "+" + pct.StringFixed(1) + "%"
	}
	return pct.StringFixed(1) + "%"
}

// ExpectedChange is forecast - previous as a signed string, in percentage
// points when both are percentages. Empty when either is missing.
func ExpectedChange(ev domain.Event) string {
	forecast, ok := ParseValue(ev.Forecast)
	if !ok {
		return ""
	}
	previous, ok := ParseValue(ev.Previous)
	if !ok {
		return ""
	}

	diff := forecast.Sub(previous)
	out := diff.String()
	if diff.IsPositive() {
		out = "+" + out
	}
	if strings.HasSuffix(strings.TrimSpace(ev.Forecast), "%") && strings.HasSuffix(strings.TrimSpace(ev.Previous), "%") {
		out += "pp"
	}
	return out
}
