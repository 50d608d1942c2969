package bootstrap

import (
	"context"
	"time"

	"calendarbot/internal/api"
	"calendarbot/internal/workers"
)

// ShutdownTimeout bounds the whole shutdown sequence
const ShutdownTimeout = 90 * time.Second

// Shutdown stops components in dependency order: HTTP first so probes fail
// fast, then workers, then backends, then the error tracker.
func (c *Container) Shutdown(server *api.Server, scheduler *workers.Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if server != nil {
		httpCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := server.Shutdown(httpCtx); err != nil {
			c.Log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	if scheduler != nil && scheduler.IsRunning() {
		if err := scheduler.Stop(); err != nil {
			c.Log.Errorw("Workers shutdown failed", "error", err)
		}
	}

	c.Close()

	if c.ErrorTracker != nil {
		if err := c.ErrorTracker.Flush(ctx); err != nil {
			c.Log.Warnw("Failed to flush error tracker", "error", err)
		}
	}

	c.Log.Infow("Shutdown complete")
}
