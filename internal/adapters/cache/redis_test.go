package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "calendarbot/internal/adapters/redis"
	"calendarbot/internal/testsupport"
	"calendarbot/pkg/errors"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	rdb := testsupport.NewRedisClient(t, testsupport.LoadRedisConfigFromEnv(t))
	return NewRedisStore(redisclient.NewFromClient(rdb), time.Hour, utc8)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	snap := sampleSnapshot()

	require.NoError(t, store.Save(ctx, snap, "rendered table"))

	got, err := store.Load(ctx, snap.Date)
	require.NoError(t, err)
	assert.Equal(t, snap.Events, got.Events)

	text, err := store.Rendered(ctx, snap.Date)
	require.NoError(t, err)
	assert.Equal(t, "rendered table", text)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, snap.Date, infos[0].Date)
}

func TestRedisStoreStaleness(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot(), ""))
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := store.Load(ctx, "2025-05-13")
	assert.True(t, errors.Is(err, errors.ErrStale))

	_, err = store.LoadAny(ctx, "2025-05-13")
	assert.NoError(t, err)

	_, err = store.Load(ctx, "2025-01-01")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
