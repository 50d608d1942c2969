package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd()
	assert.NotNil(t, cmd.Flags().Lookup("force-kill"))
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
}

func TestExecuteRejectsBadInput(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 1, execute([]string{"--no-such-flag"}, &stderr))
	assert.Contains(t, stderr.String(), "unknown flag")

	assert.Equal(t, 1, execute([]string{"extra-arg"}, &bytes.Buffer{}))
}

func TestExecuteRejectsInvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CALENDAR_CACHE_BACKEND", "s3")

	var stderr bytes.Buffer
	assert.Equal(t, 1, execute(nil, &stderr))
	assert.Contains(t, stderr.String(), "CALENDAR_CACHE_BACKEND")
}
