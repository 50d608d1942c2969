package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendarbot/internal/workers"
	"calendarbot/pkg/errors"
)

type staticWorkers map[string]workers.WorkerHealth

func (s staticWorkers) Health() map[string]workers.WorkerHealth { return s }

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, HealthStatus) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var status HealthStatus
	if path == "/health/ready" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	}
	return rec, status
}

func TestLiveness(t *testing.T) {
	rec, _ := serve(t, New("calendarbot", "dev", nil, nil), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestReadinessHealthy(t *testing.T) {
	h := New("calendarbot", "dev", map[string]Check{
		"cache": func(context.Context) error { return nil },
	}, staticWorkers{"calendar_daily_update": {RunCount: 3, Enabled: true}})

	rec, status := serve(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["cache"].Status)
	assert.Equal(t, int64(3), status.Workers["calendar_daily_update"].RunCount)
}

func TestReadinessUnhealthy(t *testing.T) {
	h := New("calendarbot", "dev", map[string]Check{
		"cache":    func(context.Context) error { return nil },
		"telegram": func(context.Context) error { return errors.ErrConfig },
	}, nil)

	rec, status := serve(t, h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["cache"].Status)
	assert.Equal(t, errors.ErrConfig.Error(), status.Checks["telegram"].Error)
}
