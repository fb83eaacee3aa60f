package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pairwise-app/faceverify/internal/admin"
	"github.com/pairwise-app/faceverify/internal/domain"
)

const (
	// LocalAdminEmail is the key to retrieve the admin email from context
	LocalAdminEmail = "admin_email"
	// LocalAdminRole is the key to retrieve the admin role from context
	LocalAdminRole = "admin_role"
)

// RequireAdmin creates an authentication middleware for the operational
// endpoints (webhook and usage management). Requests must carry a JWT
// issued by the admin service in the Authorization header.
func RequireAdmin(jwtService *admin.JWTService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			logger.Debug("missing authorization header on admin endpoint", "path", c.Path())
			return domain.ErrUnauthorized
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			logger.Warn("invalid admin token", "error", err)
			return domain.ErrUnauthorized
		}

		if claims.Role != "admin" {
			logger.Warn("insufficient privileges", "role", claims.Role)
			return domain.ErrForbidden
		}

		c.Locals(LocalAdminEmail, claims.Email)
		c.Locals(LocalAdminRole, claims.Role)

		return c.Next()
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetAdminEmail retrieves the authenticated admin email from Fiber context
func GetAdminEmail(c *fiber.Ctx) (string, error) {
	email, ok := c.Locals(LocalAdminEmail).(string)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return email, nil
}
