package calendar

import (
	"sort"
	"strings"

	domain "calendarbot/internal/domain/calendar"
)

// FilterOptions selects which normalized events are shown
type FilterOptions struct {
	// MinImpact drops events below this level; zero means Low
	MinImpact domain.Impact
	// Currencies is the allow-list; empty means all currencies
	Currencies []string
	// TodayOnly keeps only events whose local date equals Today
	TodayOnly bool
	// Today is the local date (YYYY-MM-DD) computed at fetch time
	Today string
	// After drops events on Today earlier than this local time (HH:MM)
	After string
}

// FilterAndSort applies the impact, currency and date filters and returns a new
// slice ordered by local date and time. Equal times keep their input order.
func FilterAndSort(events []domain.Event, opts FilterOptions) []domain.Event {
	allowed := make(map[string]struct{}, len(opts.Currencies))
	for _, c := range opts.Currencies {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if ev.Impact < opts.MinImpact {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[ev.Currency]; !ok {
				continue
			}
		}
		if opts.TodayOnly && ev.Date != opts.Today {
			continue
		}
		if opts.After != "" && ev.Date == opts.Today && ev.Time < opts.After {
			continue
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey() < out[j].SortKey()
	})

	return out
}
