package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("BOT_LOCK_FILE", filepath.Join(dir, "bot.lock"))
	t.Setenv("BOT_PROCESS_PATTERNS", "botctl-test-no-such-process")
	t.Setenv("CALENDAR_CACHE_DIR", filepath.Join(dir, "data"))
	t.Setenv("CALENDAR_CACHE_BACKEND", "file")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("RAILWAY_ENVIRONMENT", "")
	t.Setenv("RAILWAY_SERVICE_NAME", "")
	return dir
}

func TestStatus(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "forex_factory_data_2025-05-13.json"), []byte(`{"events":[]}`), 0o644))

	var out bytes.Buffer
	require.Equal(t, 0, execute([]string{"status"}, &out))

	text := out.String()
	assert.Contains(t, text, "Deployment: local")
	assert.Contains(t, text, "bot.lock")
	assert.Contains(t, text, "Processes:  0")
	assert.Contains(t, text, "1 snapshots")
	assert.Contains(t, text, "2025-05-13")
}

func TestStopWithoutInstances(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	require.Equal(t, 0, execute([]string{"stop", "--force-kill"}, &out))
	assert.Contains(t, out.String(), "no running instances")
}

func TestFixPermissionsCommand(t *testing.T) {
	dir := setupEnv(t)
	target := filepath.Join(dir, "cache")
	require.NoError(t, os.MkdirAll(target, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(target, "a.json"), []byte("{}"), 0o600))

	var out bytes.Buffer
	require.Equal(t, 0, execute([]string{"fix-permissions", target}, &out))
	assert.Contains(t, out.String(), "2 paths updated")

	st, err := os.Stat(filepath.Join(target, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())
}

func TestCleanupRequiresCredentials(t *testing.T) {
	setupEnv(t)
	assert.Equal(t, 1, execute([]string{"cleanup"}, &bytes.Buffer{}))
}

func TestScreenshotArgs(t *testing.T) {
	setupEnv(t)
	assert.Equal(t, 1, execute([]string{"screenshot"}, &bytes.Buffer{}))
	assert.Equal(t, 1, execute([]string{"screenshot", " "}, &bytes.Buffer{}))
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("CALENDAR_CACHE_BACKEND", "s3")
	assert.Equal(t, 1, execute([]string{"status"}, &bytes.Buffer{}))
}
