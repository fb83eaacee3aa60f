package usage

import (
	"time"

	"github.com/google/uuid"
)

// Counts holds the per-user activity counters accumulated between
// flushes.
type Counts struct {
	SessionsStarted        int `json:"sessions_started"`
	FramesProcessed        int `json:"frames_processed"`
	VerificationsSucceeded int `json:"verifications_succeeded"`
	VerificationsFailed    int `json:"verifications_failed"`
}

// IsZero reports whether no activity was recorded.
func (c Counts) IsZero() bool {
	return c.SessionsStarted == 0 &&
		c.FramesProcessed == 0 &&
		c.VerificationsSucceeded == 0 &&
		c.VerificationsFailed == 0
}

// UsageRecord is one user's activity for one day.
type UsageRecord struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 string    `json:"user_id"`
	Date                   time.Time `json:"date"`
	SessionsStarted        int       `json:"sessions_started"`
	FramesProcessed        int       `json:"frames_processed"`
	VerificationsSucceeded int       `json:"verifications_succeeded"`
	VerificationsFailed    int       `json:"verifications_failed"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// UsageSummary aggregates a user's activity over a period.
type UsageSummary struct {
	UserID                 string  `json:"user_id"`
	Period                 string  `json:"period"`
	SessionsStarted        int     `json:"sessions_started"`
	FramesProcessed        int     `json:"frames_processed"`
	VerificationsSucceeded int     `json:"verifications_succeeded"`
	VerificationsFailed    int     `json:"verifications_failed"`
	SuccessRate            float64 `json:"success_rate"`
}
