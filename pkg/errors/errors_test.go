package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))

	err := Wrapf(ErrFetch, "tradingview status %d", 503)
	require.Error(t, err)
	assert.True(t, Is(err, ErrFetch))
	assert.Equal(t, "tradingview status 503: fetch failed", err.Error())
}

func TestValidationErrorMatchesConfig(t *testing.T) {
	err := Wrap(NewValidationError("tz_offset", "out of range", 20), "load config")
	assert.True(t, Is(err, ErrConfig))

	var verr *ValidationError
	require.True(t, As(err, &verr))
	assert.Equal(t, "tz_offset", verr.Field)
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.Nil(t, m.ToError())

	m.Add(nil)
	assert.False(t, m.HasErrors())

	m.Add(ErrParse)
	m.Add(ErrTimeout)
	err := m.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple errors (2)")
	assert.True(t, Is(err, ErrTimeout))
}
