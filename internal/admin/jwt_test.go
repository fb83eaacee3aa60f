package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail = "ops@pairwise.app"
	testRole  = "admin"
)

func TestJWTService_GenerateToken(t *testing.T) {
	service := NewJWTService("test-secret-key", "faceverify-test", 1*time.Hour)

	token, err := service.GenerateToken(testEmail, testRole)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestJWTService_ValidateToken(t *testing.T) {
	service := NewJWTService("test-secret-key", "faceverify-test", 1*time.Hour)

	token, err := service.GenerateToken(testEmail, testRole)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testEmail, claims.Email)
	assert.Equal(t, testRole, claims.Role)
	assert.Equal(t, "faceverify-test", claims.Issuer)
	assert.Equal(t, testEmail, claims.Subject)
}

func TestJWTService_ValidateToken_InvalidToken(t *testing.T) {
	service := NewJWTService("test-secret-key", "faceverify-test", 1*time.Hour)

	tests := []struct {
		name        string
		token       string
		expectedErr error
	}{
		{
			name:        "invalid token format",
			token:       "invalid.token.format",
			expectedErr: ErrInvalidToken,
		},
		{
			name:        "empty token",
			token:       "",
			expectedErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestJWTService_ValidateToken_WrongSecret(t *testing.T) {
	service := NewJWTService("test-secret-key", "faceverify-test", 1*time.Hour)
	other := NewJWTService("different-secret", "faceverify-test", 1*time.Hour)

	token, err := service.GenerateToken(testEmail, testRole)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret-key", "faceverify-test", -1*time.Minute)

	token, err := service.GenerateToken(testEmail, testRole)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_RefreshToken(t *testing.T) {
	service := NewJWTService("test-secret-key", "faceverify-test", 1*time.Hour)

	token, err := service.GenerateToken(testEmail, testRole)
	require.NoError(t, err)

	refreshed, err := service.RefreshToken(token)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed)

	claims, err := service.ValidateToken(refreshed)
	require.NoError(t, err)
	assert.Equal(t, testEmail, claims.Email)
}

func TestJWTService_RefreshToken_Invalid(t *testing.T) {
	service := NewJWTService("test-secret-key", "faceverify-test", 1*time.Hour)

	_, err := service.RefreshToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
