package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pairwise-app/faceverify/internal/domain"
)

type VerificationRepository struct {
	pool PgxPool
}

func NewVerificationRepository(pool PgxPool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// CreateVerification records an accepted verification outcome.
func (r *VerificationRepository) CreateVerification(ctx context.Context, v *domain.VerificationRecord) error {
	query := `
		INSERT INTO verifications (id, user_id, verified, confidence, method, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		v.ID,
		v.UserID,
		v.Verified,
		v.Confidence,
		v.Method,
	).Scan(&v.CreatedAt)

	if err != nil {
		return fmt.Errorf("create verification: %w", err)
	}

	return nil
}

// ListByUser returns a user's verification history, newest first.
func (r *VerificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.VerificationRecord, error) {
	query := `
		SELECT id, user_id, verified, confidence, method, created_at
		FROM verifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var records []domain.VerificationRecord
	for rows.Next() {
		var v domain.VerificationRecord
		if err := rows.Scan(&v.ID, &v.UserID, &v.Verified, &v.Confidence, &v.Method, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		records = append(records, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}

	return records, nil
}
