package calendar

import (
	"context"
	"time"
)

// Date and time layouts of the local (fixed offset) event fields
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Event is the canonical economic calendar record.
// Values are passed by copy; enrichment produces a new value.
type Event struct {
	Currency  string `json:"currency"`
	Time      string `json:"time"`
	Date      string `json:"date"`
	Title     string `json:"event"`
	Impact    Impact `json:"impact"`
	Forecast  string `json:"forecast"`
	Previous  string `json:"previous"`
	Actual    string `json:"actual"`
	Estimated bool   `json:"is_estimated"`
	Source    string `json:"source,omitempty"`

	// Added by the optional LLM pass; never cached
	Enrichment *Enrichment `json:"-"`
}

// Enrichment carries LLM-generated commentary for an event
type Enrichment struct {
	Description  string
	MarketImpact string
	WatchFor     string
}

// WithEnrichment returns a copy of the event carrying e
func (e Event) WithEnrichment(enrichment Enrichment) Event {
	e.Enrichment = &enrichment
	return e
}

// SortKey orders events by local date then time
func (e Event) SortKey() string {
	return e.Date + " " + e.Time
}

// RawRecord is a provider-native event before normalization
type RawRecord map[string]any

// Range selects the local days and currencies to fetch
type Range struct {
	From       time.Time
	To         time.Time
	Currencies []string
}

// Source fetches provider-native records for a date range
type Source interface {
	Name() string
	Fetch(ctx context.Context, r Range) ([]RawRecord, error)
}

// Snapshot is one cached day of normalized events
type Snapshot struct {
	Date      string    `json:"date"`
	Label     string    `json:"label"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Events    []Event   `json:"events"`
}

// Store persists snapshots keyed by local date (YYYY-MM-DD)
type Store interface {
	// Load returns ErrNotFound when nothing is cached and ErrStale when the entry outlived its TTL
	Load(ctx context.Context, date string) (Snapshot, error)
	// LoadAny ignores staleness
	LoadAny(ctx context.Context, date string) (Snapshot, error)
	// Save writes the snapshot and its pre-rendered text table
	Save(ctx context.Context, snapshot Snapshot, rendered string) error
	// List describes the cached snapshots, newest first
	List(ctx context.Context) ([]SnapshotInfo, error)
}

// SnapshotInfo describes one cached snapshot without loading it
type SnapshotInfo struct {
	Date     string
	Location string // file path or redis key
	Size     int64
	SavedAt  time.Time
}
