package domain

import (
	"time"

	"github.com/google/uuid"
)

// StateTag identifies the current phase of a verification session.
type StateTag string

const (
	StateInitializing  StateTag = "initializing"
	StatePositioning   StateTag = "positioning"
	StateCapturing     StateTag = "capturing_poses"
	StateLivenessCheck StateTag = "liveness_check"
	StateProcessing    StateTag = "processing"
	StateSuccess       StateTag = "success"
	StateFailure       StateTag = "failure"
)

// Terminal reports whether the session can no longer accept input.
func (t StateTag) Terminal() bool {
	return t == StateSuccess || t == StateFailure
}

// SessionSnapshot is the read-only view of a verification session exposed
// to API and websocket consumers for rendering.
type SessionSnapshot struct {
	ID                  uuid.UUID   `json:"id"`
	UserID              string      `json:"user_id"`
	State               StateTag    `json:"state"`
	FailureReason       string      `json:"failure_reason,omitempty"`
	Instruction         string      `json:"instruction"`
	Progress            float64     `json:"progress"`
	FaceDetected        bool        `json:"face_detected"`
	FaceInPosition      bool        `json:"face_in_position"`
	CurrentPose         Pose        `json:"current_pose,omitempty"`
	CompletedPoses      []Pose      `json:"completed_poses"`
	CurrentChallenge    Challenge   `json:"current_challenge,omitempty"`
	CompletedChallenges []Challenge `json:"completed_challenges"`
	BoundingBox         BoundingBox `json:"bounding_box"`
	Yaw                 float64     `json:"yaw"`
	Pitch               float64     `json:"pitch"`
	Roll                float64     `json:"roll"`
	StartedAt           time.Time   `json:"started_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// FaceCapture is one accepted frame from the capture phase: the raw frame,
// the pose it satisfied, the observation it came from, and the identity
// signature extracted from it. Captures belong exclusively to the session
// that collected them and are discarded on reset.
type FaceCapture struct {
	Image       []byte
	Pose        Pose
	Observation FaceObservation
	Signature   []float64
	Quality     float64
	Timestamp   time.Time
}

// MatchResult is the terminal outcome of matching captured signatures
// against a user's reference photos. A rejection is a result, not an
// error; Message is user-presentable.
type MatchResult struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
}
