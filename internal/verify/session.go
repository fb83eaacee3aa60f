package verify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairwise-app/faceverify/internal/domain"
	"github.com/pairwise-app/faceverify/internal/liveness"
)

// Session is the exclusively owned state of one verification attempt.
// All mutation happens under mu inside the engine, so frame handling is
// serialized per session even when callers deliver frames concurrently.
type Session struct {
	mu sync.Mutex

	id     uuid.UUID
	userID string

	state         domain.StateTag
	failureReason string
	instruction   string
	progress      float64

	faceDetected   bool
	faceInPosition bool

	requiredPoses      []domain.Pose
	requiredChallenges []domain.Challenge

	poseIndex      int
	poseCaptures   int
	completedPoses []domain.Pose
	captures       []domain.FaceCapture

	challengeIndex      int
	completedChallenges []domain.Challenge
	blinks              *liveness.BlinkDetector
	blinkCount          int
	smileFrames         int
	challengeFrames     int

	boundingBox      domain.BoundingBox
	yaw, pitch, roll float64

	startedAt time.Time
	updatedAt time.Time

	// generation invalidates an in-flight match after a reset so a stale
	// result cannot touch the restarted session.
	generation  uint64
	cancelMatch context.CancelFunc
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) UserID() string { return s.userID }

// State returns the current state tag.
func (s *Session) State() domain.StateTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a consistent read-only view of the session for
// rendering. Slices are copied so callers cannot alias internal state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		ID:                  s.id,
		UserID:              s.userID,
		State:               s.state,
		FailureReason:       s.failureReason,
		Instruction:         s.instruction,
		Progress:            s.progress,
		FaceDetected:        s.faceDetected,
		FaceInPosition:      s.faceInPosition,
		CompletedPoses:      append([]domain.Pose(nil), s.completedPoses...),
		CompletedChallenges: append([]domain.Challenge(nil), s.completedChallenges...),
		BoundingBox:         s.boundingBox,
		Yaw:                 s.yaw,
		Pitch:               s.pitch,
		Roll:                s.roll,
		StartedAt:           s.startedAt,
		UpdatedAt:           s.updatedAt,
	}
	if s.state == domain.StateCapturing {
		snap.CurrentPose = s.currentPose()
	}
	if s.state == domain.StateLivenessCheck {
		snap.CurrentChallenge = s.currentChallenge()
	}
	return snap
}

// currentPose assumes mu is held and poseIndex is in range.
func (s *Session) currentPose() domain.Pose {
	return s.requiredPoses[s.poseIndex]
}

func (s *Session) currentChallenge() domain.Challenge {
	return s.requiredChallenges[s.challengeIndex]
}
