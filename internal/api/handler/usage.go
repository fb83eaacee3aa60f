package handler

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/pairwise-app/faceverify/internal/domain"
	"github.com/pairwise-app/faceverify/internal/usage"
)

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// UsageService reports per-user activity counters.
type UsageService interface {
	GetCurrentUsage(ctx context.Context, userID string) (*usage.UsageSummary, error)
	GetUsageForPeriod(ctx context.Context, userID, period string) (*usage.UsageSummary, error)
}

type UsageHandler struct {
	service UsageService
	logger  *slog.Logger
}

func NewUsageHandler(service UsageService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		service: service,
		logger:  logger,
	}
}

// Get GET /v1/usage/:user_id - usage counters for the current month, or
// for the month given in the period query parameter (YYYY-MM).
func (h *UsageHandler) Get(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return domain.ErrValidationFailed
	}

	period := c.Query("period")

	var (
		summary *usage.UsageSummary
		err     error
	)
	if period == "" {
		summary, err = h.service.GetCurrentUsage(c.Context(), userID)
	} else {
		if !periodPattern.MatchString(period) {
			return domain.ErrBadRequest
		}
		summary, err = h.service.GetUsageForPeriod(c.Context(), userID, period)
	}
	if err != nil {
		h.logger.Error("failed to load usage summary",
			"user_id", userID,
			"period", period,
			"error", err,
		)
		return domain.ErrInternal.WithError(err)
	}

	return c.JSON(summary)
}
