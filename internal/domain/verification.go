package domain

import (
	"time"

	"github.com/google/uuid"
)

// MethodLiveFaceRecognition is the verification method recorded for
// sessions completed through the live pipeline.
const MethodLiveFaceRecognition = "live_face_recognition"

// VerificationRecord is the audit row written when a session reaches a
// terminal accept decision.
type VerificationRecord struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	Verified   bool      `json:"verified"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProfilePhoto is one reference image associated with a user's profile.
type ProfilePhoto struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	IsProfile bool      `json:"is_profile"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
