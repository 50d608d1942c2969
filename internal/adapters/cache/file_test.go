package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
)

var utc8 = time.FixedZone("UTC+8", 8*3600)

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Date:      "2025-05-13",
		Label:     "Tuesday, May 13, 2025",
		Source:    "tradingview",
		FetchedAt: time.Date(2025, 5, 13, 1, 0, 0, 0, time.UTC),
		Events: []domain.Event{
			{Currency: "USD", Date: "2025-05-13", Time: "20:30", Title: "Core CPI m/m", Impact: domain.ImpactHigh, Forecast: "0.3%", Previous: "0.1%", Source: "tradingview"},
			{Currency: "GBP", Date: "2025-05-13", Time: "14:00", Title: "Claimant Count Change", Impact: domain.ImpactMedium, Forecast: "22.3K", Estimated: true, Source: "tradingview"},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir(), time.Hour, utc8)
	snap := sampleSnapshot()

	enriched := snap
	enriched.Events = append([]domain.Event{}, snap.Events...)
	enriched.Events[0] = enriched.Events[0].WithEnrichment(domain.Enrichment{MarketImpact: "USD volatility"})

	require.NoError(t, store.Save(context.Background(), enriched, "rendered table"))

	got, err := store.Load(context.Background(), "2025-05-13")
	require.NoError(t, err)

	assert.Equal(t, snap.Events, got.Events, "enrichment is never cached")
	assert.Equal(t, snap.Label, got.Label)
	assert.Equal(t, snap.Source, got.Source)
	assert.True(t, snap.FetchedAt.Equal(got.FetchedAt))

	text, err := os.ReadFile(filepath.Join(store.Dir(), TextFile("2025-05-13")))
	require.NoError(t, err)
	assert.Equal(t, "rendered table", string(text))

	info, err := os.Stat(filepath.Join(store.Dir(), DataFile("2025-05-13")))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileStoreStaleness(t *testing.T) {
	store := NewFileStore(t.TempDir(), time.Hour, utc8)
	require.NoError(t, store.Save(context.Background(), sampleSnapshot(), ""))

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := store.Load(context.Background(), "2025-05-13")
	assert.True(t, errors.Is(err, errors.ErrStale))

	snap, err := store.LoadAny(context.Background(), "2025-05-13")
	require.NoError(t, err)
	assert.Len(t, snap.Events, 2)
}

func TestFileStoreNotFound(t *testing.T) {
	store := NewFileStore(t.TempDir(), time.Hour, utc8)

	_, err := store.Load(context.Background(), "2025-05-13")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = store.LoadAny(context.Background(), "2025-05-13")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFileStoreReadsLegacyFiles(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
  "date": "Tuesday, May 13, 2025",
  "events": [
    {"time": "8:30pm", "currency": "USD", "impact": "High", "event": "CPI m/m", "actual": "", "forecast": "0.3%", "previous": "-0.1%"},
    {"time": "Tentative", "currency": "CNY", "impact": "Low", "event": "New Loans", "forecast": "710B", "previous": "3640B"},
    {"time": "9:00am", "country": "XXX", "impact": "Low", "event": "Unknown"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DataFile("2025-05-13")), []byte(legacy), 0o644))

	store := NewFileStore(dir, time.Hour, utc8)
	snap, err := store.LoadAny(context.Background(), "2025-05-13")
	require.NoError(t, err)

	assert.Equal(t, "2025-05-13", snap.Date)
	assert.Equal(t, "Tuesday, May 13, 2025", snap.Label)
	require.Len(t, snap.Events, 2)

	assert.Equal(t, "USD", snap.Events[0].Currency)
	assert.Equal(t, "20:30", snap.Events[0].Time)
	assert.Equal(t, domain.ImpactHigh, snap.Events[0].Impact)
	assert.Equal(t, "00:00", snap.Events[1].Time)
}

func TestFileStoreRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DataFile("2025-05-13")), []byte("{not json"), 0o644))

	store := NewFileStore(dir, time.Hour, utc8)
	_, err := store.Load(context.Background(), "2025-05-13")
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestFileStoreList(t *testing.T) {
	store := NewFileStore(t.TempDir(), time.Hour, utc8)
	ctx := context.Background()

	older := sampleSnapshot()
	older.Date = "2025-05-12"
	require.NoError(t, store.Save(ctx, older, ""))
	require.NoError(t, store.Save(ctx, sampleSnapshot(), ""))

	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), DataFile("2025-05-12")), past, past))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "2025-05-13", infos[0].Date)
	assert.Equal(t, "2025-05-12", infos[1].Date)
	assert.Positive(t, infos[0].Size)
}
