package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// AddCounts folds a batch of counters into the user's daily record.
func (r *Repository) AddCounts(ctx context.Context, userID string, date time.Time, delta Counts) error {
	query := `
		INSERT INTO usage_records (user_id, date, sessions_started, frames_processed, verifications_succeeded, verifications_failed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, date)
		DO UPDATE SET
			sessions_started = usage_records.sessions_started + EXCLUDED.sessions_started,
			frames_processed = usage_records.frames_processed + EXCLUDED.frames_processed,
			verifications_succeeded = usage_records.verifications_succeeded + EXCLUDED.verifications_succeeded,
			verifications_failed = usage_records.verifications_failed + EXCLUDED.verifications_failed,
			updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		userID,
		date,
		delta.SessionsStarted,
		delta.FramesProcessed,
		delta.VerificationsSucceeded,
		delta.VerificationsFailed,
	)
	if err != nil {
		return fmt.Errorf("user %s: add usage counts: %w", userID, err)
	}

	return nil
}

func (r *Repository) GetDailyUsage(ctx context.Context, userID string, startDate, endDate time.Time) ([]UsageRecord, error) {
	query := `
		SELECT id, user_id, date, sessions_started, frames_processed, verifications_succeeded, verifications_failed, created_at, updated_at
		FROM usage_records
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
	`

	rows, err := r.db.Query(ctx, query, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("user %s: get daily usage: %w", userID, err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var record UsageRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Date,
			&record.SessionsStarted,
			&record.FramesProcessed,
			&record.VerificationsSucceeded,
			&record.VerificationsFailed,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("user %s: scan usage record: %w", userID, err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user %s: iterate usage records: %w", userID, err)
	}

	return records, nil
}

func (r *Repository) AggregatePeriod(ctx context.Context, userID string, startDate, endDate time.Time) (*UsageRecord, error) {
	query := `
		SELECT
			COALESCE(SUM(sessions_started), 0) as total_sessions,
			COALESCE(SUM(frames_processed), 0) as total_frames,
			COALESCE(SUM(verifications_succeeded), 0) as total_succeeded,
			COALESCE(SUM(verifications_failed), 0) as total_failed
		FROM usage_records
		WHERE user_id = $1 AND date >= $2 AND date <= $3
	`

	var record UsageRecord
	record.UserID = userID
	record.Date = startDate

	err := r.db.QueryRow(ctx, query, userID, startDate, endDate).Scan(
		&record.SessionsStarted,
		&record.FramesProcessed,
		&record.VerificationsSucceeded,
		&record.VerificationsFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("user %s: aggregate period: %w", userID, err)
	}

	return &record, nil
}
