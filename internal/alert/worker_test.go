package alert

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatcherStub struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (d *dispatcherStub) Dispatch(_ context.Context, eventType string, _ interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, eventType)
	return d.err
}

func TestWorker_Process_TriggersAndNotifies(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	alertID := uuid.New()
	conditions, err := json.Marshal([]Condition{
		{MetricName: "verifications.failure_rate", Aggregation: "avg", Operator: "gt", Threshold: 0.5},
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE enabled = true")).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "conditions", "condition_logic", "window_seconds",
			"cooldown_seconds", "severity", "last_triggered_at",
		}).AddRow(alertID, "failure spike", conditions, "AND", 3600, 3600, SeverityWarning, (*time.Time)(nil)))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO alert_history")).
		WithArgs(alertID, pgxmock.AnyArg(), "triggered", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET last_triggered_at")).
		WithArgs(alertID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dispatcher := &dispatcherStub{}
	logger := slog.New(slog.DiscardHandler)
	worker := NewWorker(
		NewRepositoryWithDB(mock),
		NewEngine(&metricsStub{values: map[string]float64{"verifications.failure_rate": 0.8}}),
		NewNotifier(dispatcher, logger),
		logger,
		time.Minute,
	)

	worker.process(context.Background())

	assert.Equal(t, []string{EventAlertTriggered}, dispatcher.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorker_Process_SkipsWhenConditionNotMet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	conditions, err := json.Marshal([]Condition{
		{MetricName: "verifications.failure_rate", Aggregation: "avg", Operator: "gt", Threshold: 0.5},
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE enabled = true")).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "conditions", "condition_logic", "window_seconds",
			"cooldown_seconds", "severity", "last_triggered_at",
		}).AddRow(uuid.New(), "failure spike", conditions, "AND", 3600, 3600, SeverityWarning, (*time.Time)(nil)))

	dispatcher := &dispatcherStub{}
	logger := slog.New(slog.DiscardHandler)
	worker := NewWorker(
		NewRepositoryWithDB(mock),
		NewEngine(&metricsStub{values: map[string]float64{"verifications.failure_rate": 0.1}}),
		NewNotifier(dispatcher, logger),
		logger,
		time.Minute,
	)

	worker.process(context.Background())

	assert.Empty(t, dispatcher.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorker_Process_RespectsCooldown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	conditions, err := json.Marshal([]Condition{
		{MetricName: "verifications.failure_rate", Aggregation: "avg", Operator: "gt", Threshold: 0.5},
	})
	require.NoError(t, err)

	justTriggered := time.Now().Add(-time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE enabled = true")).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "conditions", "condition_logic", "window_seconds",
			"cooldown_seconds", "severity", "last_triggered_at",
		}).AddRow(uuid.New(), "failure spike", conditions, "AND", 3600, 3600, SeverityWarning, &justTriggered))

	dispatcher := &dispatcherStub{}
	logger := slog.New(slog.DiscardHandler)
	worker := NewWorker(
		NewRepositoryWithDB(mock),
		NewEngine(&metricsStub{values: map[string]float64{"verifications.failure_rate": 0.8}}),
		NewNotifier(dispatcher, logger),
		logger,
		time.Minute,
	)

	worker.process(context.Background())

	assert.Empty(t, dispatcher.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	worker := NewWorker(nil, nil, nil, logger, time.Hour)

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()

	worker.Stop()
	worker.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
