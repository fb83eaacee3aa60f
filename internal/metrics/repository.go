package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Metric names computed from the verification outcome table.
const (
	MetricVerificationsTotal     = "verifications.total"
	MetricVerificationsSucceeded = "verifications.succeeded"
	MetricVerificationsFailed    = "verifications.failed"
	MetricFailureRate            = "verifications.failure_rate"
	MetricConfidenceAvg          = "verifications.confidence_avg"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Stats is a snapshot of verification outcomes over a window.
type Stats struct {
	WindowStart   time.Time
	WindowEnd     time.Time
	Total         int64
	Succeeded     int64
	Failed        int64
	FailureRate   float64
	AvgConfidence float64
}

// Repository computes verification metrics directly from the outcome
// table. Outcomes are low-volume compared to frames, so aggregating on
// read keeps the schema free of a separate rollup table.
type Repository struct {
	db DB
}

// NewRepository creates a new metrics repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// NewRepositoryWithDB creates a metrics repository with custom DB interface
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// GetMetricValue returns the named metric over the window.
func (r *Repository) GetMetricValue(ctx context.Context, metricName, _ string, windowStart, windowEnd time.Time) (float64, error) {
	switch metricName {
	case MetricVerificationsTotal:
		return r.count(ctx, "", windowStart, windowEnd)
	case MetricVerificationsSucceeded:
		return r.count(ctx, "AND verified", windowStart, windowEnd)
	case MetricVerificationsFailed:
		return r.count(ctx, "AND NOT verified", windowStart, windowEnd)
	case MetricFailureRate:
		stats, err := r.Snapshot(ctx, windowStart, windowEnd)
		if err != nil {
			return 0, err
		}
		return stats.FailureRate, nil
	case MetricConfidenceAvg:
		query := `
			SELECT COALESCE(AVG(confidence), 0)
			FROM verifications
			WHERE created_at >= $1 AND created_at < $2
		`
		var avg float64
		if err := r.db.QueryRow(ctx, query, windowStart, windowEnd).Scan(&avg); err != nil {
			return 0, fmt.Errorf("avg confidence: %w", err)
		}
		return avg, nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", metricName)
	}
}

// Snapshot returns the full outcome statistics for the window.
func (r *Repository) Snapshot(ctx context.Context, windowStart, windowEnd time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE verified) as succeeded,
			COALESCE(AVG(confidence), 0) as avg_confidence
		FROM verifications
		WHERE created_at >= $1 AND created_at < $2
	`

	stats := &Stats{WindowStart: windowStart, WindowEnd: windowEnd}

	err := r.db.QueryRow(ctx, query, windowStart, windowEnd).Scan(
		&stats.Total,
		&stats.Succeeded,
		&stats.AvgConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("verification stats: %w", err)
	}

	stats.Failed = stats.Total - stats.Succeeded
	if stats.Total > 0 {
		stats.FailureRate = float64(stats.Failed) / float64(stats.Total)
	}

	return stats, nil
}

func (r *Repository) count(ctx context.Context, filter string, windowStart, windowEnd time.Time) (float64, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM verifications
		WHERE created_at >= $1 AND created_at < $2 %s
	`, filter)

	var count int64
	if err := r.db.QueryRow(ctx, query, windowStart, windowEnd).Scan(&count); err != nil {
		return 0, fmt.Errorf("count verifications: %w", err)
	}

	return float64(count), nil
}
