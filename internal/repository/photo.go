package repository

import (
	"context"
	"fmt"

	"github.com/pairwise-app/faceverify/internal/domain"
)

type PhotoRepository struct {
	pool PgxPool
}

func NewPhotoRepository(pool PgxPool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

// ProfilePhotoURLs returns the user's reference photo URLs, profile
// photo first, then gallery photos in position order. Rows with empty
// URLs are skipped.
func (r *PhotoRepository) ProfilePhotoURLs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT url
		FROM user_photos
		WHERE user_id = $1 AND url <> ''
		ORDER BY is_profile DESC, position ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list photo urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan photo url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list photo urls: %w", err)
	}

	return urls, nil
}

// ListByUser returns the full photo rows for a user, profile photo
// first.
func (r *PhotoRepository) ListByUser(ctx context.Context, userID string) ([]domain.ProfilePhoto, error) {
	query := `
		SELECT id, user_id, url, is_profile, position, created_at
		FROM user_photos
		WHERE user_id = $1
		ORDER BY is_profile DESC, position ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []domain.ProfilePhoto
	for rows.Next() {
		var p domain.ProfilePhoto
		if err := rows.Scan(&p.ID, &p.UserID, &p.URL, &p.IsProfile, &p.Position, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	return photos, nil
}
