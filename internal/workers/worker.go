package workers

import (
	"context"
	"sync"
	"time"

	"calendarbot/pkg/logger"
)

// Worker is one periodic job run by the Scheduler
type Worker interface {
	// Name identifies the worker in logs and metrics
	Name() string

	// Run performs a single iteration and returns
	Run(ctx context.Context) error

	// Interval is the delay between iterations
	Interval() time.Duration

	// Enabled reports whether the scheduler should start the worker
	Enabled() bool
}

// WorkerWithHealth is a worker that keeps run statistics
type WorkerWithHealth interface {
	Worker
	Health() WorkerHealth
	RecordRun(duration time.Duration)
	RecordError(err error, duration time.Duration)
}

// WorkerHealth is a point-in-time view of a worker's runs
type WorkerHealth struct {
	LastRun     time.Time `json:"last_run"`
	LastError   string    `json:"last_error,omitempty"`
	RunCount    int64     `json:"run_count"`
	ErrorCount  int64     `json:"error_count"`
	AvgDuration string    `json:"avg_duration"`
	Enabled     bool      `json:"enabled"`
}

// BaseWorker implements the bookkeeping shared by all workers.
// Embedders provide Run.
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	mu            sync.RWMutex
	lastRun       time.Time
	lastError     error
	runCount      int64
	errorCount    int64
	totalDuration time.Duration
}

// NewBaseWorker creates the shared worker state
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("component", "worker", "worker", name),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

func (w *BaseWorker) Enabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.enabled
}

// SetEnabled toggles the worker; it takes effect on the next scheduler start
func (w *BaseWorker) SetEnabled(enabled bool) {
	w.mu.Lock()
	w.enabled = enabled
	w.mu.Unlock()
	w.log.Infow("Worker enabled state changed", "enabled", enabled)
}

// Log returns the worker's child logger
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

func (w *BaseWorker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()

	h := WorkerHealth{
		LastRun:    w.lastRun,
		RunCount:   w.runCount,
		ErrorCount: w.errorCount,
		Enabled:    w.enabled,
	}
	if w.runCount > 0 {
		h.AvgDuration = (w.totalDuration / time.Duration(w.runCount)).String()
	}
	if w.lastError != nil {
		h.LastError = w.lastError.Error()
	}
	return h
}

func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.totalDuration += duration
	w.lastError = nil
}

func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.errorCount++
	w.totalDuration += duration
	w.lastError = err
}

// Pause waits for d or until ctx is done, whichever comes first
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
