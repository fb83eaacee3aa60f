package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		sessionID := uuid.New()

		config := RateLimiterConfig{
			Max:    5,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return sessionID.String()
			},
		}

		rl := NewRateLimiter(config)
		defer rl.Stop()

		app := fiber.New()
		app.Use(rl.Handler())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendString("OK")
		})

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "OK", string(body))
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		sessionID := uuid.New()

		config := RateLimiterConfig{
			Max:    2,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return sessionID.String()
			},
		}

		rl := NewRateLimiter(config)
		defer rl.Stop()

		app := fiber.New(fiber.Config{
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return c.Status(429).JSON(fiber.Map{"error": "rate limit"})
			},
		})
		app.Use(rl.Handler())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendString("OK")
		})

		// First 2 should succeed
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			resp, _ := app.Test(req)
			assert.Equal(t, 200, resp.StatusCode)
		}

		// Third should be rate limited
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)
		assert.Equal(t, 429, resp.StatusCode)
	})

	t.Run("different sessions have separate limits", func(t *testing.T) {
		var currentSession string

		config := RateLimiterConfig{
			Max:    2,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return currentSession
			},
		}

		rl := NewRateLimiter(config)
		defer rl.Stop()

		app := fiber.New(fiber.Config{
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return c.Status(429).JSON(fiber.Map{"error": "rate limit"})
			},
		})
		app.Use(rl.Handler())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendString("OK")
		})

		// Session A uses 2 requests
		currentSession = "session-a"
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			resp, _ := app.Test(req)
			assert.Equal(t, 200, resp.StatusCode)
		}

		// Session A is now rate limited
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)
		assert.Equal(t, 429, resp.StatusCode)

		// Session B can still make requests
		currentSession = "session-b"
		req = httptest.NewRequest("GET", "/test", nil)
		resp, _ = app.Test(req)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("window resets after expiry", func(t *testing.T) {
		config := RateLimiterConfig{
			Max:    1,
			Window: 50 * time.Millisecond,
			KeyGenerator: func(c *fiber.Ctx) string {
				return "session-reset"
			},
		}

		rl := NewRateLimiter(config)
		defer rl.Stop()

		app := fiber.New(fiber.Config{
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return c.Status(429).JSON(fiber.Map{"error": "rate limit"})
			},
		})
		app.Use(rl.Handler())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendString("OK")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)
		assert.Equal(t, 200, resp.StatusCode)

		req = httptest.NewRequest("GET", "/test", nil)
		resp, _ = app.Test(req)
		assert.Equal(t, 429, resp.StatusCode)

		time.Sleep(60 * time.Millisecond)

		req = httptest.NewRequest("GET", "/test", nil)
		resp, _ = app.Test(req)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("sets rate limit headers", func(t *testing.T) {
		config := RateLimiterConfig{
			Max:    10,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return "session-headers"
			},
		}

		rl := NewRateLimiter(config)
		defer rl.Stop()

		app := fiber.New()
		app.Use(rl.Handler())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendString("OK")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		resp, err := app.Test(req)
		assert.NoError(t, err)

		assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	})
}

func TestIntToString(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{42, "42"},
		{2400, "2400"},
		{-15, "-15"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, intToString(tt.in))
	}
}
