package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "calendarbot/internal/domain/calendar"
)

func filterFixture() []domain.Event {
	return []domain.Event{
		{Currency: "USD", Date: "2025-05-13", Time: "20:30", Title: "CPI", Impact: domain.ImpactHigh},
		{Currency: "EUR", Date: "2025-05-13", Time: "17:00", Title: "ZEW", Impact: domain.ImpactMedium},
		{Currency: "JPY", Date: "2025-05-14", Time: "07:50", Title: "PPI", Impact: domain.ImpactLow},
		{Currency: "CNY", Date: "2025-05-13", Time: "09:30", Title: "CPI y/y", Impact: domain.ImpactMedium},
		{Currency: "GBP", Date: "2025-05-13", Time: "17:00", Title: "Claimant", Impact: domain.ImpactHigh},
	}
}

func titles(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Title
	}
	return out
}

func TestFilterAndSortMinImpact(t *testing.T) {
	high := FilterAndSort(filterFixture(), FilterOptions{MinImpact: domain.ImpactHigh})
	assert.Equal(t, []string{"Claimant", "CPI"}, titles(high))

	medium := FilterAndSort(filterFixture(), FilterOptions{MinImpact: domain.ImpactMedium})
	assert.Equal(t, []string{"CPI y/y", "ZEW", "Claimant", "CPI"}, titles(medium))

	all := FilterAndSort(filterFixture(), FilterOptions{})
	assert.Len(t, all, 5)
}

func TestFilterAndSortCurrencies(t *testing.T) {
	out := FilterAndSort(filterFixture(), FilterOptions{Currencies: domain.MajorCurrencies})
	for _, ev := range out {
		assert.True(t, domain.IsMajor(ev.Currency))
	}
	assert.Len(t, out, 4)

	lower := FilterAndSort(filterFixture(), FilterOptions{Currencies: []string{" usd"}})
	assert.Equal(t, []string{"CPI"}, titles(lower))
}

func TestFilterAndSortTodayOnly(t *testing.T) {
	out := FilterAndSort(filterFixture(), FilterOptions{TodayOnly: true, Today: "2025-05-13"})
	for _, ev := range out {
		assert.Equal(t, "2025-05-13", ev.Date)
	}
	assert.Len(t, out, 4)
}

func TestFilterAndSortAfter(t *testing.T) {
	out := FilterAndSort(filterFixture(), FilterOptions{Today: "2025-05-13", After: "17:00"})
	assert.Equal(t, []string{"ZEW", "Claimant", "CPI", "PPI"}, titles(out))
}

func TestFilterAndSortStableAndIdempotent(t *testing.T) {
	once := FilterAndSort(filterFixture(), FilterOptions{})
	twice := FilterAndSort(once, FilterOptions{})

	assert.Equal(t, once, twice)
	// equal timestamps keep input order
	assert.Equal(t, []string{"CPI y/y", "ZEW", "Claimant", "CPI", "PPI"}, titles(once))
}

func TestFilterAndSortDoesNotMutateInput(t *testing.T) {
	in := filterFixture()
	_ = FilterAndSort(in, FilterOptions{MinImpact: domain.ImpactHigh})
	assert.Equal(t, filterFixture(), in)
}
