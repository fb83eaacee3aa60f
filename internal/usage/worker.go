package usage

import (
	"context"
	"log/slog"
	"time"
)

// Worker flushes buffered usage counters on an interval.
type Worker struct {
	service  *Service
	logger   *slog.Logger
	interval time.Duration
}

// NewWorker creates a new usage flush worker
func NewWorker(service *Service, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Worker{
		service:  service,
		logger:   logger,
		interval: interval,
	}
}

// Run starts the worker loop. A final flush runs when the context is
// cancelled so counters survive a graceful shutdown.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("usage flush worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.service.Flush(flushCtx); err != nil {
				w.logger.Error("final usage flush failed", "error", err)
			}
			cancel()
			w.logger.Info("usage flush worker stopped")
			return
		case <-ticker.C:
			if err := w.service.Flush(ctx); err != nil {
				w.logger.Error("usage flush failed", "error", err)
			}
		}
	}
}
