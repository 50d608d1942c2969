package chart

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendarbot/pkg/errors"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestCaptureWritesImage(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho \"$1\" > \"$2\"\n")
	r := NewRunner(Config{Command: "/bin/sh", Script: script, OutputDir: t.TempDir()})
	r.now = func() time.Time { return time.Date(2025, 5, 13, 9, 30, 0, 0, time.UTC) }

	path, err := r.Capture(context.Background(), "eurusd", "15")
	require.NoError(t, err)
	assert.Equal(t, "EURUSD_15_20250513_093000.png", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://www.tradingview.com/chart/?interval=15&symbol=EURUSD", strings.TrimSpace(string(data)))
}

func TestCaptureTimeout(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nexec sleep 5\n")
	r := NewRunner(Config{Command: "/bin/sh", Script: script, OutputDir: t.TempDir(), Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := r.Capture(context.Background(), "XAUUSD", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTimeout))
	assert.Less(t, time.Since(start), 4*time.Second, "process must be killed")
}

func TestCaptureFailures(t *testing.T) {
	failing := writeScript(t, "#!/bin/sh\necho 'browser crashed' >&2\nexit 3\n")
	r := NewRunner(Config{Command: "/bin/sh", Script: failing, OutputDir: t.TempDir()})

	_, err := r.Capture(context.Background(), "GBPUSD", "60")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFetch))
	assert.Contains(t, err.Error(), "browser crashed")

	silent := writeScript(t, "#!/bin/sh\nexit 0\n")
	r = NewRunner(Config{Command: "/bin/sh", Script: silent, OutputDir: t.TempDir()})

	_, err = r.Capture(context.Background(), "GBPUSD", "60")
	assert.True(t, errors.Is(err, errors.ErrFetch))

	_, err = r.Capture(context.Background(), " ", "60")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
