package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

const (
	dataPrefix = "forex_factory_data_"
	textPrefix = "forex_factory_events_"
)

// DataFile returns the JSON snapshot file name for a date
func DataFile(date string) string { return dataPrefix + date + ".json" }

// TextFile returns the rendered table file name for a date
func TextFile(date string) string { return textPrefix + date + ".txt" }

// FileStore keeps snapshots as JSON plus a rendered text table in one directory.
// Staleness is judged by the JSON file's modification time.
type FileStore struct {
	dir      string
	ttl      time.Duration
	location *time.Location
	now      func() time.Time
	mu       sync.Mutex
	log      *logger.Logger
}

// NewFileStore creates the store; the directory is created on first save
func NewFileStore(dir string, ttl time.Duration, loc *time.Location) *FileStore {
	if loc == nil {
		loc = time.UTC
	}
	return &FileStore{
		dir:      dir,
		ttl:      ttl,
		location: loc,
		now:      time.Now,
		log:      logger.Get().With("component", "file_cache"),
	}
}

// Dir returns the cache directory
func (s *FileStore) Dir() string { return s.dir }

// Load returns a fresh snapshot for date
func (s *FileStore) Load(ctx context.Context, date string) (domain.Snapshot, error) {
	path := filepath.Join(s.dir, DataFile(date))

	info, err := os.Stat(path)
	if err != nil {
		metrics.RecordCacheLookup("file", "miss")
		return domain.Snapshot{}, errors.Wrapf(errors.ErrNotFound, "cache %s", date)
	}

	if age := s.now().Sub(info.ModTime()); age > s.ttl {
		metrics.RecordCacheLookup("file", "stale")
		return domain.Snapshot{}, errors.Wrapf(errors.ErrStale, "cache %s is %s old", date, age.Round(time.Second))
	}

	snap, err := s.read(path, date)
	if err != nil {
		metrics.RecordCacheLookup("file", "error")
		return domain.Snapshot{}, err
	}

	metrics.RecordCacheLookup("file", "hit")
	return snap, nil
}

// LoadAny returns the snapshot for date regardless of its age
func (s *FileStore) LoadAny(ctx context.Context, date string) (domain.Snapshot, error) {
	path := filepath.Join(s.dir, DataFile(date))
	if _, err := os.Stat(path); err != nil {
		return domain.Snapshot{}, errors.Wrapf(errors.ErrNotFound, "cache %s", date)
	}
	return s.read(path, date)
}

// Save writes the snapshot JSON and the rendered text, each atomically
func (s *FileStore) Save(ctx context.Context, snap domain.Snapshot, rendered string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create cache dir %s", s.dir)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	if err := writeAtomic(filepath.Join(s.dir, DataFile(snap.Date)), data); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(s.dir, TextFile(snap.Date)), []byte(rendered)); err != nil {
		return err
	}

	s.log.Debugw("Saved calendar snapshot", "date", snap.Date, "events", len(snap.Events), "bytes", len(data))
	return nil
}

// List describes cached snapshots, newest first
func (s *FileStore) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, dataPrefix+"*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "list cache files")
	}

	infos := make([]domain.SnapshotInfo, 0, len(matches))
	for _, path := range matches {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), dataPrefix), ".json")
		infos = append(infos, domain.SnapshotInfo{
			Date:     date,
			Location: path,
			Size:     st.Size(),
			SavedAt:  st.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].SavedAt.After(infos[j].SavedAt) })
	return infos, nil
}

func (s *FileStore) read(path, date string) (domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, errors.Wrapf(err, "read %s", path)
	}
	return decodeSnapshot(data, date, s.location)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "chmod %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}

	return errors.Wrapf(os.Rename(tmp.Name(), path), "rename %s", path)
}

// storedSnapshot accepts both the current layout and files written by older
// releases, whose events carry no date and keep provider time strings.
type storedSnapshot struct {
	Date      string            `json:"date"`
	Label     string            `json:"label"`
	Source    string            `json:"source"`
	FetchedAt time.Time         `json:"fetched_at"`
	Events    []json.RawMessage `json:"events"`
}

func decodeSnapshot(data []byte, date string, loc *time.Location) (domain.Snapshot, error) {
	var stored storedSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return domain.Snapshot{}, errors.Wrapf(errors.ErrParse, "snapshot %s: %v", date, err)
	}

	snap := domain.Snapshot{
		Date:      date,
		Label:     stored.Label,
		Source:    stored.Source,
		FetchedAt: stored.FetchedAt,
		Events:    make([]domain.Event, 0, len(stored.Events)),
	}
	if snap.Label == "" && stored.Date != date {
		snap.Label = stored.Date
	}

	for _, raw := range stored.Events {
		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			return domain.Snapshot{}, errors.Wrapf(errors.ErrParse, "snapshot %s event: %v", date, err)
		}

		if _, current := rec["date"]; current {
			var ev domain.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return domain.Snapshot{}, errors.Wrapf(errors.ErrParse, "snapshot %s event: %v", date, err)
			}
			snap.Events = append(snap.Events, ev)
			continue
		}

		if _, ok := rec["country"]; !ok {
			rec["country"] = rec["currency"]
		}
		rec[calendar.DayField] = date
		if ev, ok := calendar.Normalize(domain.RawRecord(rec), calendar.CacheSchema, loc); ok {
			snap.Events = append(snap.Events, ev)
		}
	}

	if snap.Source == "" {
		snap.Source = calendar.CacheSchema.Name
	}
	return snap, nil
}
