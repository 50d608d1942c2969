package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"calendarbot/pkg/errors"
)

type captured struct {
	err  error
	tags map[string]string
}

type recordingTracker struct {
	captured []captured
}

func (r *recordingTracker) CaptureError(_ context.Context, err error, tags map[string]string) error {
	r.captured = append(r.captured, captured{err: err, tags: tags})
	return nil
}

func (r *recordingTracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}

func (r *recordingTracker) AddBreadcrumb(context.Context, string, string, errors.Level, map[string]interface{}) {
}

func (r *recordingTracker) Flush(context.Context) error { return nil }

func useNop(t *testing.T) *recordingTracker {
	t.Helper()
	global.Store(New(zap.NewNop()))
	rec := &recordingTracker{}
	SetErrorTracker(rec)
	t.Cleanup(func() {
		SetErrorTracker(nil)
		global.Store(nil)
	})
	return rec
}

func TestInitLevels(t *testing.T) {
	t.Cleanup(func() { global.Store(nil) })

	tests := []struct {
		name     string
		level    string
		env      string
		debug    bool
		enabled  []zapcore.Level
		disabled []zapcore.Level
	}{
		{
			name:     "warn",
			level:    "warn",
			env:      "development",
			enabled:  []zapcore.Level{zapcore.WarnLevel, zapcore.ErrorLevel},
			disabled: []zapcore.Level{zapcore.InfoLevel},
		},
		{
			name:    "debug flag overrides level",
			level:   "warn",
			env:     "development",
			debug:   true,
			enabled: []zapcore.Level{zapcore.DebugLevel},
		},
		{
			name:     "unknown level falls back to info",
			level:    "bogus",
			env:      "production",
			enabled:  []zapcore.Level{zapcore.InfoLevel},
			disabled: []zapcore.Level{zapcore.DebugLevel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Init(tt.level, tt.env, tt.debug))
			core := Get().Desugar().Core()
			for _, lvl := range tt.enabled {
				assert.True(t, core.Enabled(lvl), lvl.String())
			}
			for _, lvl := range tt.disabled {
				assert.False(t, core.Enabled(lvl), lvl.String())
			}
		})
	}
}

func TestErrorEntriesReachTracker(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		log      func(l *Logger)
		wantMsg  string
		wantIs   error
		wantTags map[string]string
	}{
		{
			name: "errorw with cause",
			log: func(l *Logger) {
				l.With("component", "telegram").Errorw("send failed", "error", boom, "chat_id", "-100", "part", 2)
			},
			wantMsg:  "send failed: boom",
			wantIs:   boom,
			wantTags: map[string]string{"component": "telegram", "chat_id": "-100", "part": "2", "level": "error"},
		},
		{
			name:     "errorf without cause",
			log:      func(l *Logger) { l.Errorf("scrape of %s failed", "tradingview") },
			wantMsg:  "scrape of tradingview failed",
			wantIs:   errors.ErrInternal,
			wantTags: map[string]string{"level": "error"},
		},
		{
			name: "nested children keep parent fields",
			log: func(l *Logger) {
				l.With("component", "worker").With("source", "forexfactory").Error("tick failed")
			},
			wantMsg:  "tick failed",
			wantIs:   errors.ErrInternal,
			wantTags: map[string]string{"component": "worker", "source": "forexfactory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := useNop(t)
			tt.log(Get())

			require.Len(t, rec.captured, 1)
			got := rec.captured[0]
			assert.Contains(t, got.err.Error(), tt.wantMsg)
			assert.True(t, errors.Is(got.err, tt.wantIs))
			for k, v := range tt.wantTags {
				assert.Equal(t, v, got.tags[k], k)
			}
		})
	}
}

func TestBelowErrorNotTracked(t *testing.T) {
	rec := useNop(t)
	log := Get().With("component", "cache")

	log.Infow("cache hit", "date", "2025-05-13")
	log.Warnw("stale snapshot", "error", errors.ErrStale)

	assert.Empty(t, rec.captured)
}

func TestTrackerAppliesToExistingChildren(t *testing.T) {
	global.Store(New(zap.NewNop()))
	t.Cleanup(func() {
		SetErrorTracker(nil)
		global.Store(nil)
	})
	child := Get().With("component", "scheduler")

	child.Error("before tracker")
	rec := &recordingTracker{}
	SetErrorTracker(rec)
	child.Error("after tracker")

	require.Len(t, rec.captured, 1)
	assert.Contains(t, rec.captured[0].err.Error(), "after tracker")
	assert.Equal(t, "scheduler", rec.captured[0].tags["component"])
}
