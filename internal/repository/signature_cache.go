package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// SignatureCacheRepository caches extracted reference-photo signatures
// keyed by a hash of the photo URL, so repeated verification attempts
// do not re-download and re-analyze the same reference images. Entries
// expire after the configured TTL.
type SignatureCacheRepository struct {
	pool PgxPool
	ttl  time.Duration
}

func NewSignatureCacheRepository(pool PgxPool, ttl time.Duration) *SignatureCacheRepository {
	return &SignatureCacheRepository{pool: pool, ttl: ttl}
}

// Get returns the cached signature for a URL, or nil on a miss or an
// expired entry.
func (r *SignatureCacheRepository) Get(ctx context.Context, url string) ([]float64, error) {
	query := `
		SELECT signature, expires_at
		FROM reference_signatures
		WHERE url_hash = $1
	`

	var vec pgvector.Vector
	var expiresAt time.Time

	err := r.pool.QueryRow(ctx, query, urlKey(url)).Scan(&vec, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached signature: %w", err)
	}
	if time.Now().After(expiresAt) {
		return nil, nil
	}

	floats := vec.Slice()
	sig := make([]float64, len(floats))
	for i, v := range floats {
		sig[i] = float64(v)
	}
	return sig, nil
}

// Put stores a signature for a URL, replacing any previous entry and
// refreshing its expiry.
func (r *SignatureCacheRepository) Put(ctx context.Context, url string, sig []float64) error {
	query := `
		INSERT INTO reference_signatures (url_hash, signature, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (url_hash)
		DO UPDATE SET signature = EXCLUDED.signature, expires_at = EXCLUDED.expires_at
	`

	floats := make([]float32, len(sig))
	for i, v := range sig {
		floats[i] = float32(v)
	}

	_, err := r.pool.Exec(ctx, query, urlKey(url), pgvector.NewVector(floats), time.Now().Add(r.ttl))
	if err != nil {
		return fmt.Errorf("put cached signature: %w", err)
	}
	return nil
}

// CleanupExpired deletes expired entries and returns how many were
// removed.
func (r *SignatureCacheRepository) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reference_signatures WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup signatures: %w", err)
	}
	return tag.RowsAffected(), nil
}

func urlKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
