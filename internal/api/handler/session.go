package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pairwise-app/faceverify/internal/domain"
)

const (
	maxFrameSize = 10 * 1024 * 1024 // 10MB
)

var validFrameTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	// multipart writers that don't know the image type send this.
	"application/octet-stream": true,
}

// SessionService interface for the verification service
type SessionService interface {
	StartSession(ctx context.Context, userID string) (domain.SessionSnapshot, error)
	ProcessFrame(ctx context.Context, sessionID uuid.UUID, image []byte) (domain.SessionSnapshot, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (domain.SessionSnapshot, error)
	ResetSession(ctx context.Context, sessionID uuid.UUID) (domain.SessionSnapshot, error)
	CancelSession(ctx context.Context, sessionID uuid.UUID) error
}

// SessionHandler handles verification session requests
type SessionHandler struct {
	service SessionService
	logger  *slog.Logger
}

// NewSessionHandler creates a new SessionHandler instance
func NewSessionHandler(service SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// StartSessionRequest body for session creation
type StartSessionRequest struct {
	UserID string `json:"user_id"`
}

// Start POST /v1/sessions - create a verification session
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("user_id is required"))
	}

	snapshot, err := h.service.StartSession(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(snapshot)
}

// Frame POST /v1/sessions/:id/frames - submit a camera frame
func (h *SessionHandler) Frame(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}

	frame, err := extractFrame(c)
	if err != nil {
		return err
	}

	snapshot, err := h.service.ProcessFrame(c.Context(), sessionID, frame)
	if err != nil {
		return err
	}

	return c.JSON(snapshot)
}

// Get GET /v1/sessions/:id - read the session state
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.service.GetSession(c.Context(), sessionID)
	if err != nil {
		return err
	}

	return c.JSON(snapshot)
}

// Reset POST /v1/sessions/:id/reset - restart the flow for the same user
func (h *SessionHandler) Reset(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.service.ResetSession(c.Context(), sessionID)
	if err != nil {
		return err
	}

	return c.JSON(snapshot)
}

// Cancel DELETE /v1/sessions/:id - abandon the session
func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}

	if err := h.service.CancelSession(c.Context(), sessionID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseSessionID(c *fiber.Ctx) (uuid.UUID, error) {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithError(errors.New("invalid session id"))
	}
	return sessionID, nil
}

// extractFrame reads the frame image from the multipart form, falling
// back to the raw request body for clients that stream frames directly.
func extractFrame(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("frame")
	if err != nil {
		// Raw body upload
		body := c.Body()
		if len(body) == 0 {
			return nil, domain.ErrValidationFailed.WithError(errors.New("frame is required"))
		}
		if len(body) > maxFrameSize {
			return nil, domain.ErrInvalidImage.WithError(nil)
		}
		return body, nil
	}

	if file.Size == 0 || file.Size > maxFrameSize {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !validFrameTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	frame, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return frame, nil
}
