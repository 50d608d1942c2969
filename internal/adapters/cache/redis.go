package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	redisclient "calendarbot/internal/adapters/redis"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

const (
	redisSnapshotPrefix = "calendarbot:snapshot:"
	redisTextPrefix     = "calendarbot:text:"

	// entries outlive the freshness TTL so stale snapshots remain a fallback
	DefaultRetention = 7 * 24 * time.Hour
)

type redisEntry struct {
	SavedAt  time.Time       `json:"saved_at"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// RedisStore keeps snapshots in Redis, for deployments without a persistent disk
type RedisStore struct {
	client    *redisclient.Client
	ttl       time.Duration
	retention time.Duration
	location  *time.Location
	now       func() time.Time
	log       *logger.Logger
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client *redisclient.Client, ttl time.Duration, loc *time.Location) *RedisStore {
	if loc == nil {
		loc = time.UTC
	}
	return &RedisStore{
		client:    client,
		ttl:       ttl,
		retention: DefaultRetention,
		location:  loc,
		now:       time.Now,
		log:       logger.Get().With("component", "redis_cache"),
	}
}

// Load returns a fresh snapshot for date
func (s *RedisStore) Load(ctx context.Context, date string) (domain.Snapshot, error) {
	entry, err := s.entry(ctx, date)
	if err != nil {
		result := "error"
		if errors.Is(err, errors.ErrNotFound) {
			result = "miss"
		}
		metrics.RecordCacheLookup("redis", result)
		return domain.Snapshot{}, err
	}

	if age := s.now().Sub(entry.SavedAt); age > s.ttl {
		metrics.RecordCacheLookup("redis", "stale")
		return domain.Snapshot{}, errors.Wrapf(errors.ErrStale, "cache %s is %s old", date, age.Round(time.Second))
	}

	snap, err := decodeSnapshot(entry.Snapshot, date, s.location)
	if err != nil {
		metrics.RecordCacheLookup("redis", "error")
		return domain.Snapshot{}, err
	}

	metrics.RecordCacheLookup("redis", "hit")
	return snap, nil
}

// LoadAny returns the snapshot for date regardless of its age
func (s *RedisStore) LoadAny(ctx context.Context, date string) (domain.Snapshot, error) {
	entry, err := s.entry(ctx, date)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return decodeSnapshot(entry.Snapshot, date, s.location)
}

// Save stores the snapshot and rendered text with the retention expiry
func (s *RedisStore) Save(ctx context.Context, snap domain.Snapshot, rendered string) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	entry := redisEntry{SavedAt: s.now(), Snapshot: data}
	if err := s.client.Set(ctx, redisSnapshotPrefix+snap.Date, entry, s.retention); err != nil {
		return errors.Wrapf(err, "save snapshot %s", snap.Date)
	}
	if err := s.client.SetString(ctx, redisTextPrefix+snap.Date, rendered, s.retention); err != nil {
		return errors.Wrapf(err, "save rendered %s", snap.Date)
	}

	s.log.Debugw("Saved calendar snapshot", "date", snap.Date, "events", len(snap.Events))
	return nil
}

// Rendered returns the saved text table for date
func (s *RedisStore) Rendered(ctx context.Context, date string) (string, error) {
	return s.client.GetString(ctx, redisTextPrefix+date)
}

// List describes cached snapshots, newest first
func (s *RedisStore) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	keys, err := s.client.Keys(ctx, redisSnapshotPrefix+"*")
	if err != nil {
		return nil, errors.Wrap(err, "scan snapshot keys")
	}

	infos := make([]domain.SnapshotInfo, 0, len(keys))
	for _, key := range keys {
		var entry redisEntry
		if err := s.client.Get(ctx, key, &entry); err != nil {
			continue
		}
		size, _ := s.client.Size(ctx, key)
		infos = append(infos, domain.SnapshotInfo{
			Date:     strings.TrimPrefix(key, redisSnapshotPrefix),
			Location: key,
			Size:     size,
			SavedAt:  entry.SavedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].SavedAt.After(infos[j].SavedAt) })
	return infos, nil
}

func (s *RedisStore) entry(ctx context.Context, date string) (redisEntry, error) {
	var entry redisEntry
	if err := s.client.Get(ctx, redisSnapshotPrefix+date, &entry); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return entry, err
		}
		return entry, errors.Wrapf(errors.ErrUnavailable, "load snapshot %s: %v", date, err)
	}
	return entry, nil
}
