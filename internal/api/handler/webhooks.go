package handler

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pairwise-app/faceverify/internal/audit"
	"github.com/pairwise-app/faceverify/internal/webhook"
)

type WebhooksHandler struct {
	service  *webhook.Service
	logger   *slog.Logger
	auditLog audit.Logger
}

func NewWebhooksHandler(service *webhook.Service, logger *slog.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		service:  service,
		logger:   logger,
		auditLog: &audit.NoOpLogger{},
	}
}

// WithAuditLog records webhook management actions to the given audit logger.
func (h *WebhooksHandler) WithAuditLog(logger audit.Logger) *WebhooksHandler {
	h.auditLog = logger
	return h
}

type CreateWebhookRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Enabled bool     `json:"enabled"`
}

type WebhookResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	Events          []string  `json:"events"`
	Enabled         bool      `json:"enabled"`
	LastTriggeredAt *string   `json:"last_triggered_at,omitempty"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
}

func (h *WebhooksHandler) List(c *fiber.Ctx) error {
	webhooks, err := h.service.List(c.Context())
	if err != nil {
		h.logger.Error("failed to list webhooks", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list webhooks",
		})
	}

	response := make([]WebhookResponse, 0, len(webhooks))
	for _, w := range webhooks {
		response = append(response, toWebhookResponse(w))
	}

	return c.JSON(fiber.Map{
		"webhooks": response,
	})
}

func (h *WebhooksHandler) Create(c *fiber.Ctx) error {
	var req CreateWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.URL == "" || len(req.Events) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name, url and events are required",
		})
	}

	secret, err := generateSecret(32)
	if err != nil {
		h.logger.Error("failed to generate secret", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate webhook secret",
		})
	}

	w := &webhook.Webhook{
		Name:    req.Name,
		URL:     req.URL,
		Secret:  secret,
		Events:  req.Events,
		Enabled: req.Enabled,
	}

	if err := h.service.Create(c.Context(), w); err != nil {
		h.logger.Error("failed to create webhook", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create webhook",
		})
	}

	h.logger.Info("webhook created",
		"webhook_id", w.ID,
		"name", w.Name,
	)
	h.auditWebhook(c, audit.EventWebhookCreated, w.ID, w.Name)

	// The secret is returned once, at creation.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"webhook": toWebhookResponse(w),
		"secret":  secret,
	})
}

func (h *WebhooksHandler) Delete(c *fiber.Ctx) error {
	webhookID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook id",
		})
	}

	if err := h.service.Delete(c.Context(), webhookID); err != nil {
		h.logger.Error("failed to delete webhook", "webhook_id", webhookID, "error", err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Webhook not found",
		})
	}

	h.auditWebhook(c, audit.EventWebhookDeleted, webhookID, "")

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WebhooksHandler) auditWebhook(c *fiber.Ctx, eventType audit.EventType, webhookID uuid.UUID, name string) {
	metadata := map[string]string{"webhook_id": webhookID.String()}
	if name != "" {
		metadata["webhook_name"] = name
	}

	if err := h.auditLog.Log(c.Context(), audit.Event{
		EventType: eventType,
		Success:   true,
		Metadata:  metadata,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	}); err != nil {
		h.logger.Warn("audit log write failed", "event_type", eventType, "error", err)
	}
}

func toWebhookResponse(w *webhook.Webhook) WebhookResponse {
	var lastTriggered *string
	if w.LastTriggeredAt != nil {
		t := w.LastTriggeredAt.Format("2006-01-02T15:04:05Z07:00")
		lastTriggered = &t
	}

	return WebhookResponse{
		ID:              w.ID,
		Name:            w.Name,
		URL:             w.URL,
		Events:          w.Events,
		Enabled:         w.Enabled,
		LastTriggeredAt: lastTriggered,
		CreatedAt:       w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       w.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func generateSecret(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
