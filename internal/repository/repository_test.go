package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairwise-app/faceverify/internal/domain"
)

func TestPhotoRepository_ProfilePhotoURLs(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      []string
		wantErr   bool
	}{
		{
			name: "profile photo first then gallery",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"url"}).
					AddRow("https://cdn.example.com/u1/profile.jpg").
					AddRow("https://cdn.example.com/u1/gallery-0.jpg").
					AddRow("https://cdn.example.com/u1/gallery-1.jpg")

				mock.ExpectQuery(`SELECT url FROM user_photos WHERE user_id = \$1 AND url <> '' ORDER BY is_profile DESC, position ASC`).
					WithArgs("user-1").
					WillReturnRows(rows)
			},
			want: []string{
				"https://cdn.example.com/u1/profile.jpg",
				"https://cdn.example.com/u1/gallery-0.jpg",
				"https://cdn.example.com/u1/gallery-1.jpg",
			},
		},
		{
			name: "no photos",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT url FROM user_photos`).
					WithArgs("user-1").
					WillReturnRows(pgxmock.NewRows([]string{"url"}))
			},
			want: nil,
		},
		{
			name: "query failure",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT url FROM user_photos`).
					WithArgs("user-1").
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewPhotoRepository(mock)
			got, err := repo.ProfilePhotoURLs(context.Background(), "user-1")

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVerificationRepository_CreateVerification(t *testing.T) {
	now := time.Now()

	t.Run("successful insert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		record := &domain.VerificationRecord{
			ID:         uuid.New(),
			UserID:     "user-1",
			Verified:   true,
			Confidence: 0.91,
			Method:     domain.MethodLiveFaceRecognition,
		}

		mock.ExpectQuery(`INSERT INTO verifications`).
			WithArgs(record.ID, "user-1", true, 0.91, domain.MethodLiveFaceRecognition).
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

		require.NoError(t, NewVerificationRepository(mock).CreateVerification(context.Background(), record))
		assert.Equal(t, now, record.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("assigns an id when missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		record := &domain.VerificationRecord{
			UserID:     "user-1",
			Verified:   true,
			Confidence: 0.88,
			Method:     domain.MethodLiveFaceRecognition,
		}

		mock.ExpectQuery(`INSERT INTO verifications`).
			WithArgs(pgxmock.AnyArg(), "user-1", true, 0.88, domain.MethodLiveFaceRecognition).
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

		require.NoError(t, NewVerificationRepository(mock).CreateVerification(context.Background(), record))
		assert.NotEqual(t, uuid.Nil, record.ID)
	})

	t.Run("insert failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO verifications`).
			WithArgs(pgxmock.AnyArg(), "user-1", true, 0.88, domain.MethodLiveFaceRecognition).
			WillReturnError(errors.New("insert failed"))

		err = NewVerificationRepository(mock).CreateVerification(context.Background(), &domain.VerificationRecord{
			UserID:     "user-1",
			Verified:   true,
			Confidence: 0.88,
			Method:     domain.MethodLiveFaceRecognition,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create verification")
	})
}

func TestVerificationRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "user_id", "verified", "confidence", "method", "created_at"}).
		AddRow(id, "user-1", true, 0.91, domain.MethodLiveFaceRecognition, now)

	mock.ExpectQuery(`SELECT id, user_id, verified, confidence, method, created_at FROM verifications`).
		WithArgs("user-1", 10).
		WillReturnRows(rows)

	records, err := NewVerificationRepository(mock).ListByUser(context.Background(), "user-1", 10)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.True(t, records[0].Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureCacheRepository(t *testing.T) {
	vec := pgvector.NewVector([]float32{0.5, 0.25, 0.1})

	t.Run("hit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"signature", "expires_at"}).
			AddRow(vec, time.Now().Add(time.Hour))
		mock.ExpectQuery(`SELECT signature, expires_at FROM reference_signatures`).
			WithArgs(urlKey("https://cdn.example.com/a.jpg")).
			WillReturnRows(rows)

		repo := NewSignatureCacheRepository(mock, time.Hour)
		sig, err := repo.Get(context.Background(), "https://cdn.example.com/a.jpg")

		require.NoError(t, err)
		require.Len(t, sig, 3)
		assert.InDelta(t, 0.5, sig[0], 1e-6)
	})

	t.Run("miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT signature, expires_at FROM reference_signatures`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"signature", "expires_at"}))

		repo := NewSignatureCacheRepository(mock, time.Hour)
		sig, err := repo.Get(context.Background(), "https://cdn.example.com/missing.jpg")

		require.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("expired entry reads as miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"signature", "expires_at"}).
			AddRow(vec, time.Now().Add(-time.Minute))
		mock.ExpectQuery(`SELECT signature, expires_at FROM reference_signatures`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnRows(rows)

		repo := NewSignatureCacheRepository(mock, time.Hour)
		sig, err := repo.Get(context.Background(), "https://cdn.example.com/stale.jpg")

		require.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("put upserts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO reference_signatures`).
			WithArgs(urlKey("https://cdn.example.com/a.jpg"), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewSignatureCacheRepository(mock, time.Hour)
		require.NoError(t, repo.Put(context.Background(), "https://cdn.example.com/a.jpg", []float64{0.5, 0.25, 0.1}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cleanup reports removed rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM reference_signatures`).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		repo := NewSignatureCacheRepository(mock, time.Hour)
		removed, err := repo.CleanupExpired(context.Background())

		require.NoError(t, err)
		assert.EqualValues(t, 3, removed)
	})
}
