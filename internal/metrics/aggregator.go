package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Pruner removes expired rows from a table and reports how many went.
type Pruner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Aggregator periodically logs a verification stats snapshot and runs
// the registered pruners (signature cache, rate limit counters, usage
// summary cache).
type Aggregator struct {
	repo     *Repository
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}

	pruners []namedPruner
}

type namedPruner struct {
	name   string
	pruner Pruner
}

// NewAggregator creates a new metrics aggregator worker
func NewAggregator(repo *Repository, logger *slog.Logger, interval time.Duration) *Aggregator {
	if interval == 0 {
		interval = 1 * time.Minute
	}

	return &Aggregator{
		repo:     repo,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// AddPruner registers a cleanup task to run on each aggregation tick.
func (a *Aggregator) AddPruner(name string, p Pruner) {
	a.pruners = append(a.pruners, namedPruner{name: name, pruner: p})
}

// Start begins the aggregation worker
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("metrics aggregator started", "interval", a.interval)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("metrics aggregator stopped")
			return
		case <-a.done:
			a.logger.Info("metrics aggregator stopped")
			return
		case <-ticker.C:
			a.aggregate(ctx)
		}
	}
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	close(a.done)
}

func (a *Aggregator) aggregate(ctx context.Context) {
	for _, np := range a.pruners {
		deleted, err := np.pruner.CleanupExpired(ctx)
		if err != nil {
			a.logger.Error("cleanup failed", "pruner", np.name, "error", err)
			continue
		}
		if deleted > 0 {
			a.logger.Info("expired rows removed", "pruner", np.name, "count", deleted)
		}
	}

	now := time.Now().UTC()
	stats, err := a.repo.Snapshot(ctx, now.Add(-time.Hour), now)
	if err != nil {
		a.logger.Error("failed to compute verification stats", "error", err)
		return
	}

	a.logger.Info("verification stats",
		"window", "1h",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"failure_rate", stats.FailureRate,
		"avg_confidence", stats.AvgConfidence,
	)
}
