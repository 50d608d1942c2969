package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"calendarbot/internal/workers"
	"calendarbot/pkg/logger"
)

// Check probes one dependency; a nil error means healthy
type Check func(ctx context.Context) error

// WorkerHealthSource reports scheduled worker statistics
type WorkerHealthSource interface {
	Health() map[string]workers.WorkerHealth
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	checks      map[string]Check
	workers     WorkerHealthSource
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health handler. checks are evaluated on every readiness request.
func New(serviceName, version string, checks map[string]Check, pool WorkerHealthSource) *Handler {
	return &Handler{
		log:         logger.Get().With("component", "health"),
		checks:      checks,
		workers:     pool,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                          `json:"status"` // "healthy", "unhealthy"
	Service   string                          `json:"service"`
	Version   string                          `json:"version"`
	Uptime    string                          `json:"uptime"`
	Timestamp string                          `json:"timestamp"`
	Checks    map[string]ComponentHealth      `json:"checks"`
	Workers   map[string]workers.WorkerHealth `json:"workers,omitempty"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Register mounts the probes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health/live", h.HandleLiveness)
	mux.HandleFunc("/health/ready", h.HandleReadiness)
}

// HandleLiveness returns 200 OK while the process is serving
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness runs every check and returns 503 when any fails
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentHealth, len(h.checks)),
	}

	for name, check := range h.checks {
		start := time.Now()
		err := check(ctx)
		result := ComponentHealth{Status: "healthy", ResponseTime: time.Since(start).String()}
		if err != nil {
			result.Status = "unhealthy"
			result.Error = err.Error()
			status.Status = "unhealthy"
		}
		status.Checks[name] = result
	}

	if h.workers != nil {
		status.Workers = h.workers.Health()
	}

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", status.Checks)
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
