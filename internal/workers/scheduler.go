package workers

import (
	"context"
	"sync"
	"time"

	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// ShutdownTimeout bounds how long Stop waits for running iterations
var ShutdownTimeout = time.Minute

// Scheduler runs each enabled worker on its own ticker
type Scheduler struct {
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		log: logger.Get().With("component", "scheduler"),
	}
}

// RegisterWorker adds a worker; registration after Start is ignored
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval(), "enabled", w.Enabled())
}

// Start launches every enabled worker. Each runs once immediately, then on its interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	workers := append([]Worker(nil), s.workers...)
	s.mu.Unlock()

	started := 0
	for _, worker := range workers {
		if !worker.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", worker.Name())
			continue
		}
		s.wg.Add(1)
		go s.runWorker(worker)
		started++
	}

	s.log.Infow("Worker scheduler started", "workers", started)
	return nil
}

// Stop cancels the workers and waits up to ShutdownTimeout for them to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Infow("Stopping worker scheduler")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		s.log.Infow("All workers stopped")
	case <-time.After(ShutdownTimeout):
		s.log.Warnw("Worker shutdown timed out", "timeout", ShutdownTimeout)
		err = errors.Wrapf(errors.ErrTimeout, "worker shutdown after %s", ShutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return err
}

func (s *Scheduler) runWorker(worker Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	s.Execute(s.ctx, worker)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Debugw("Worker stopping", "worker", worker.Name())
			return
		case <-ticker.C:
			s.Execute(s.ctx, worker)
		}
	}
}

// Execute runs one iteration with panic recovery, health bookkeeping and metrics.
// It is also used by the CLI to run a worker once.
func (s *Scheduler) Execute(ctx context.Context, worker Worker) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrInternal, "worker %s panicked: %v", worker.Name(), r)
			s.log.Errorw("Worker panicked", "worker", worker.Name(), "panic", r)
		}

		duration := time.Since(start)
		metrics.RecordWorkerExecution(worker.Name(), duration, err)
		if h, ok := worker.(WorkerWithHealth); ok {
			if err != nil {
				h.RecordError(err, duration)
			} else {
				h.RecordRun(duration)
			}
		}
	}()

	err = worker.Run(ctx)
	if err != nil {
		s.log.Errorw("Worker execution failed", "worker", worker.Name(), "error", err, "duration", time.Since(start))
	} else {
		s.log.Debugw("Worker execution completed", "worker", worker.Name(), "duration", time.Since(start))
	}
	return err
}

// GetWorkers returns the registered workers in registration order
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// Health reports the statistics of every worker that keeps them
func (s *Scheduler) Health() map[string]WorkerHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]WorkerHealth, len(s.workers))
	for _, w := range s.workers {
		if h, ok := w.(WorkerWithHealth); ok {
			out[w.Name()] = h.Health()
		}
	}
	return out
}

// IsRunning reports whether Start has been called without a matching Stop
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
