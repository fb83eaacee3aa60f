package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Recover turns a handler panic into a 500 response instead of
// tearing down the connection. The panic value and route are logged.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("panic recovered",
				slog.Any("panic", r),
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
			)

			_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "INTERNAL_ERROR",
					"message": "An unexpected error occurred",
				},
			})
		}()

		return c.Next()
	}
}
