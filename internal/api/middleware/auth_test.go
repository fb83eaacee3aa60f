package middleware

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairwise-app/faceverify/internal/admin"
)

func testApp(jwtService *admin.JWTService) *fiber.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logger),
	})

	app.Get("/admin", RequireAdmin(jwtService, logger), func(c *fiber.Ctx) error {
		email, err := GetAdminEmail(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"email": email})
	})

	return app
}

func TestRequireAdmin(t *testing.T) {
	jwtService := admin.NewJWTService("test-secret", "faceverify-test", time.Hour)

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtService.GenerateToken("ops@pairwise.app", "admin")
		require.NoError(t, err)

		app := testApp(jwtService)
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("missing header", func(t *testing.T) {
		app := testApp(jwtService)
		req := httptest.NewRequest("GET", "/admin", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed token", func(t *testing.T) {
		app := testApp(jwtService)
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token signed with wrong secret", func(t *testing.T) {
		other := admin.NewJWTService("other-secret", "faceverify-test", time.Hour)
		token, err := other.GenerateToken("ops@pairwise.app", "admin")
		require.NoError(t, err)

		app := testApp(jwtService)
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("non-admin role", func(t *testing.T) {
		token, err := jwtService.GenerateToken("viewer@pairwise.app", "viewer")
		require.NoError(t, err)

		app := testApp(jwtService)
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
	}{
		{
			name:      "valid Bearer token",
			header:    "Bearer test-token",
			wantToken: "test-token",
		},
		{
			name:      "lowercase bearer",
			header:    "bearer test-token",
			wantToken: "test-token",
		},
		{
			name:      "empty header",
			header:    "",
			wantToken: "",
		},
		{
			name:      "no Bearer prefix",
			header:    "test-token",
			wantToken: "",
		},
		{
			name:      "Basic auth (should reject)",
			header:    "Basic abc123",
			wantToken: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var gotToken string

			app.Get("/", func(c *fiber.Ctx) error {
				gotToken = extractBearerToken(c)
				return nil
			})

			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			_, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantToken, gotToken)
		})
	}
}
