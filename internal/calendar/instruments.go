package calendar

import (
	"strings"
	"unicode"

	domain "calendarbot/internal/domain/calendar"
)

var instrumentCurrencies = map[string][]string{
	"XAUUSD": {"USD"},
	"XAGUSD": {"USD"},
	"US30":   {"USD"},
	"US100":  {"USD"},
	"US500":  {"USD"},
	"UK100":  {"GBP"},
	"GER40":  {"EUR"},
	"ESP35":  {"EUR"},
	"FRA40":  {"EUR"},
}

// InstrumentCurrencies returns the currencies whose events move an instrument.
// Six-letter pairs split into base and quote; anything else gets all majors.
func InstrumentCurrencies(instrument string) []string {
	symbol := strings.ToUpper(strings.TrimSpace(instrument))

	if ccys, ok := instrumentCurrencies[symbol]; ok {
		return append([]string(nil), ccys...)
	}

	if len(symbol) == 6 && strings.IndexFunc(symbol, func(r rune) bool { return !unicode.IsLetter(r) }) < 0 {
		return []string{symbol[:3], symbol[3:]}
	}

	return append([]string(nil), domain.MajorCurrencies...)
}
