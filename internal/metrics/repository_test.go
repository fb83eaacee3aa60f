package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow() (time.Time, time.Time) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return end.Add(-time.Hour), end
}

func TestRepository_GetMetricValue_Counts(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		count  int64
	}{
		{name: "total", metric: MetricVerificationsTotal, count: 42},
		{name: "succeeded", metric: MetricVerificationsSucceeded, count: 30},
		{name: "failed", metric: MetricVerificationsFailed, count: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewRepositoryWithDB(mock)
			start, end := testWindow()

			rows := pgxmock.NewRows([]string{"count"}).AddRow(tt.count)
			mock.ExpectQuery("SELECT COUNT").
				WithArgs(start, end).
				WillReturnRows(rows)

			value, err := repo.GetMetricValue(context.Background(), tt.metric, "count", start, end)
			require.NoError(t, err)
			assert.Equal(t, float64(tt.count), value)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_GetMetricValue_FailureRate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	start, end := testWindow()

	rows := pgxmock.NewRows([]string{"total", "succeeded", "avg_confidence"}).
		AddRow(int64(10), int64(7), 0.82)
	mock.ExpectQuery("SELECT").
		WithArgs(start, end).
		WillReturnRows(rows)

	value, err := repo.GetMetricValue(context.Background(), MetricFailureRate, "rate", start, end)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, value, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetMetricValue_Unknown(t *testing.T) {
	repo := NewRepositoryWithDB(nil)
	start, end := testWindow()

	_, err := repo.GetMetricValue(context.Background(), "latency.p99", "p99", start, end)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown metric")
}

func TestRepository_Snapshot(t *testing.T) {
	t.Run("with outcomes", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock)
		start, end := testWindow()

		rows := pgxmock.NewRows([]string{"total", "succeeded", "avg_confidence"}).
			AddRow(int64(20), int64(15), 0.91)
		mock.ExpectQuery("SELECT").
			WithArgs(start, end).
			WillReturnRows(rows)

		stats, err := repo.Snapshot(context.Background(), start, end)
		require.NoError(t, err)
		assert.Equal(t, int64(20), stats.Total)
		assert.Equal(t, int64(15), stats.Succeeded)
		assert.Equal(t, int64(5), stats.Failed)
		assert.InDelta(t, 0.25, stats.FailureRate, 1e-9)
		assert.InDelta(t, 0.91, stats.AvgConfidence, 1e-9)
	})

	t.Run("empty window has zero failure rate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock)
		start, end := testWindow()

		rows := pgxmock.NewRows([]string{"total", "succeeded", "avg_confidence"}).
			AddRow(int64(0), int64(0), 0.0)
		mock.ExpectQuery("SELECT").
			WithArgs(start, end).
			WillReturnRows(rows)

		stats, err := repo.Snapshot(context.Background(), start, end)
		require.NoError(t, err)
		assert.Zero(t, stats.Total)
		assert.Zero(t, stats.FailureRate)
	})
}
