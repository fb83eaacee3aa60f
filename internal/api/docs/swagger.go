package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// SessionResponse represents a verification session snapshot
type SessionResponse struct {
	ID                  string   `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID              string   `json:"user_id" example:"user-123"`
	State               string   `json:"state" example:"positioning"`
	FailureReason       string   `json:"failure_reason,omitempty" example:""`
	Instruction         string   `json:"instruction" example:"Position your face in the circle"`
	Progress            float64  `json:"progress" example:"0.1"`
	FaceDetected        bool     `json:"face_detected" example:"true"`
	FaceInPosition      bool     `json:"face_in_position" example:"true"`
	CurrentPose         string   `json:"current_pose,omitempty" example:"center"`
	CompletedPoses      []string `json:"completed_poses" example:"[]"`
	CurrentChallenge    string   `json:"current_challenge,omitempty" example:"blink"`
	CompletedChallenges []string `json:"completed_challenges" example:"[]"`
	StartedAt           string   `json:"started_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt           string   `json:"updated_at" example:"2024-01-01T00:00:05Z"`
}

// StartSessionBody is the request body for session creation
type StartSessionBody struct {
	UserID string `json:"user_id" example:"user-123"`
}

// CreateWebhookBody is the request body for webhook registration
type CreateWebhookBody struct {
	Name    string   `json:"name" example:"crm sync"`
	URL     string   `json:"url" example:"https://crm.example.com/hooks"`
	Events  []string `json:"events" example:"verification.completed,verification.failed"`
	Enabled bool     `json:"enabled" example:"true"`
}

// WebhookData represents a registered webhook
type WebhookData struct {
	ID              string   `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name            string   `json:"name" example:"crm sync"`
	URL             string   `json:"url" example:"https://crm.example.com/hooks"`
	Events          []string `json:"events" example:"verification.completed"`
	Enabled         bool     `json:"enabled" example:"true"`
	LastTriggeredAt *string  `json:"last_triggered_at,omitempty"`
	CreatedAt       string   `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt       string   `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

// WebhookListData wraps the webhook collection
type WebhookListData struct {
	Webhooks []WebhookData `json:"webhooks"`
}

// UsageSummaryData represents a user's aggregated activity for a month
type UsageSummaryData struct {
	UserID                 string  `json:"user_id" example:"user-123"`
	Period                 string  `json:"period" example:"2026-09"`
	SessionsStarted        int     `json:"sessions_started" example:"4"`
	FramesProcessed        int     `json:"frames_processed" example:"180"`
	VerificationsSucceeded int     `json:"verifications_succeeded" example:"3"`
	VerificationsFailed    int     `json:"verifications_failed" example:"1"`
	SuccessRate            float64 `json:"success_rate" example:"0.75"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// HealthData represents the health check payload
type HealthData struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Faceverify API",
		Version:     "v1.0.0",
		Description: "Live face verification API: guided capture, liveness challenges and profile photo matching",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/sessions - Start verification session
		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Start a verification session"),
			endpoint.WithDescription("Creates a verification session for the user. Any previously active session for the same user is abandoned."),
			endpoint.WithBody(StartSessionBody{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "user_id is required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/sessions/{id}/frames - Submit a camera frame
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/frames",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Submit a camera frame"),
			endpoint.WithDescription("Runs face detection on the frame and advances the session state machine. The returned snapshot carries the instruction to show the user."),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier"))),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Frame processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Verification session not found or expired"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// GET /v1/sessions/{id} - Read session state
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Read the session state"),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier"))),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Current snapshot"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Verification session not found or expired"}, "404", "Not Found"),
			}),
		),

		// POST /v1/sessions/{id}/reset - Restart the flow
		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/reset",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Restart the verification flow"),
			endpoint.WithDescription("Clears captures, challenge progress and any failure, returning the session to positioning for the same user."),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier"))),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session reset"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Verification session not found or expired"}, "404", "Not Found"),
			}),
		),

		// DELETE /v1/sessions/{id} - Abandon the session
		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Abandon the session"),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Session abandoned"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Verification session not found or expired"}, "404", "Not Found"),
			}),
		),

		// Webhooks

		// GET /v1/webhooks - List webhooks
		endpoint.New(
			endpoint.GET,
			"/webhooks",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("List registered webhooks"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookListData{}, "200", "Registered webhooks"),
			}),
		),

		// POST /v1/webhooks - Register a webhook
		endpoint.New(
			endpoint.POST,
			"/webhooks",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Register a webhook"),
			endpoint.WithDescription("Registers an endpoint for verification outcome events. The signing secret is returned once, at creation."),
			endpoint.WithBody(CreateWebhookBody{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookData{}, "201", "Webhook created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
			}),
		),

		// DELETE /v1/webhooks/{id} - Delete a webhook
		endpoint.New(
			endpoint.DELETE,
			"/webhooks/{id}",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Delete a webhook"),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook identifier"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Webhook deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Webhook not found"}, "404", "Not Found"),
			}),
		),

		// GET /v1/usage/{user_id} - Monthly usage counters
		endpoint.New(
			endpoint.GET,
			"/usage/{user_id}",
			endpoint.WithTags("Usage"),
			endpoint.WithSummary("Read a user's usage counters"),
			endpoint.WithDescription("Aggregated session, frame and verification counters for the current month, or for the month given in the period query parameter (YYYY-MM)."),
			endpoint.WithParams(
				parameter.StrParam("user_id", parameter.Path, parameter.WithDescription("User identifier")),
				parameter.StrParam("period", parameter.Query, parameter.WithDescription("Month to report, YYYY-MM")),
			),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UsageSummaryData{}, "200", "Usage summary"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
			}),
		),

		// Health

		// GET /health
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthData{}, "200", "Service is up"),
			}),
		),

		// GET /ready
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthData{}, "200", "Service is ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthData{Status: "database unavailable"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
