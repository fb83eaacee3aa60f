// Package verify implements the verification state machine. An Engine
// drives one or more Sessions through positioning, multi-pose capture,
// liveness challenges, and asynchronous identity matching.
package verify

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pairwise-app/faceverify/internal/domain"
	"github.com/pairwise-app/faceverify/internal/liveness"
	"github.com/pairwise-app/faceverify/internal/signature"
)

// Matcher resolves the collected captures into a terminal accept/reject
// decision. Rejections are results; errors are infrastructure failures.
type Matcher interface {
	Match(ctx context.Context, userID string, captures []domain.FaceCapture) (domain.MatchResult, error)
}

// Event marks a meaningful session transition.
type Event string

const (
	EventFacePositioned     Event = "face_positioned"
	EventPoseCompleted      Event = "pose_completed"
	EventChallengeCompleted Event = "challenge_completed"
	EventSucceeded          Event = "succeeded"
	EventFailed             Event = "failed"
)

// Notifier receives fire-and-forget transition notifications together
// with the snapshot taken right after the transition.
type Notifier interface {
	Notify(snapshot domain.SessionSnapshot, event Event)
}

const (
	instructionPosition   = "Position your face in the circle"
	instructionTooFar     = "Move closer"
	instructionTooClose   = "Move back"
	instructionMoveRight  = "Move your face to the right"
	instructionMoveLeft   = "Move your face to the left"
	instructionFaceFront  = "Look straight at the camera"
	instructionProcessing = "Verifying your identity"
	instructionSuccess    = "Verification complete"
	instructionFailure    = "Verification failed"
)

var poseInstructions = map[domain.Pose]string{
	domain.PoseCenter: "Look straight at the camera",
	domain.PoseLeft:   "Slowly turn your head to the left",
	domain.PoseRight:  "Slowly turn your head to the right",
	domain.PoseUp:     "Slowly tilt your head up",
	domain.PoseDown:   "Slowly tilt your head down",
}

var challengeInstructions = map[domain.Challenge]string{
	domain.ChallengeBlink:     "Blink twice",
	domain.ChallengeSmile:     "Smile at the camera",
	domain.ChallengeTurnLeft:  "Turn your head to the left",
	domain.ChallengeTurnRight: "Turn your head to the right",
}

// Engine owns the flow configuration and shared collaborators. It is
// safe for concurrent use across sessions; per-session serialization
// happens on the session's own mutex.
type Engine struct {
	cfg      Config
	lcfg     liveness.Config
	analyzer *liveness.Analyzer
	matcher  Matcher
	notifier Notifier
	logger   *slog.Logger
}

func NewEngine(cfg Config, lcfg liveness.Config, matcher Matcher, notifier Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		lcfg:     lcfg,
		analyzer: liveness.NewAnalyzer(lcfg),
		matcher:  matcher,
		notifier: notifier,
		logger:   logger,
	}
}

// StartSession creates a session for the user and enters positioning.
func (e *Engine) StartSession(userID string) *Session {
	s := &Session{
		id:     uuid.New(),
		userID: userID,
	}
	s.mu.Lock()
	e.reinitLocked(s)
	s.mu.Unlock()
	return s
}

// Reset clears the session back to positioning for the same user. Any
// in-flight match is abandoned; its result will be discarded.
func (e *Engine) Reset(s *Session) {
	s.mu.Lock()
	s.generation++
	if s.cancelMatch != nil {
		s.cancelMatch()
		s.cancelMatch = nil
	}
	e.reinitLocked(s)
	s.mu.Unlock()
}

// Cancel abandons any in-flight matching without touching the rest of
// the session state. Callers use it when the consumer walks away.
func (e *Engine) Cancel(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cancelMatch != nil {
		s.cancelMatch()
		s.cancelMatch = nil
	}
}

func (e *Engine) reinitLocked(s *Session) {
	now := time.Now()
	s.state = domain.StatePositioning
	s.failureReason = ""
	s.instruction = instructionPosition
	s.progress = 0
	s.faceDetected = false
	s.faceInPosition = false
	s.requiredPoses = append([]domain.Pose(nil), e.cfg.RequiredPoses...)
	s.requiredChallenges = append([]domain.Challenge(nil), e.cfg.RequiredChallenges...)
	s.poseIndex = 0
	s.poseCaptures = 0
	s.completedPoses = nil
	s.captures = nil
	s.challengeIndex = 0
	s.completedChallenges = nil
	s.blinks = liveness.NewBlinkDetector(e.lcfg)
	s.blinkCount = 0
	s.smileFrames = 0
	s.challengeFrames = 0
	s.boundingBox = domain.BoundingBox{}
	s.yaw, s.pitch, s.roll = 0, 0, 0
	s.startedAt = now
	s.updatedAt = now
}

// ProcessObservation ingests one frame. A nil observation means no face
// was detected in the frame. Frames arriving while the session is
// processing or terminal are discarded.
func (e *Engine) ProcessObservation(s *Session, obs *domain.FaceObservation, frame []byte) {
	s.mu.Lock()
	if s.state == domain.StateProcessing || s.state.Terminal() {
		s.mu.Unlock()
		return
	}

	if obs != nil {
		s.faceDetected = true
		s.boundingBox = obs.BoundingBox
		s.yaw, s.pitch, s.roll = obs.Yaw, obs.Pitch, obs.Roll
	} else {
		s.faceDetected = false
	}

	var events []Event
	switch s.state {
	case domain.StatePositioning:
		events = e.stepPositioning(s, obs)
	case domain.StateCapturing:
		events = e.stepCapturing(s, obs, frame)
	case domain.StateLivenessCheck:
		events = e.stepLiveness(s, obs)
	}

	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	e.emit(snap, events)
}

func (e *Engine) stepPositioning(s *Session, obs *domain.FaceObservation) []Event {
	if obs == nil {
		s.faceInPosition = false
		s.instruction = instructionPosition
		return nil
	}

	ok, issue := e.analyzer.InPosition(obs)
	s.faceInPosition = ok
	if !ok {
		s.instruction = positionInstruction(issue)
		return nil
	}

	s.state = domain.StateCapturing
	s.progress = math.Max(s.progress, 0.1)
	s.instruction = poseInstructions[s.currentPose()]
	return []Event{EventFacePositioned}
}

func (e *Engine) stepCapturing(s *Session, obs *domain.FaceObservation, frame []byte) []Event {
	if obs == nil {
		return nil
	}

	pose := s.currentPose()
	if !e.analyzer.MatchesPose(obs, pose) {
		return nil
	}

	sig, err := signature.Extract(obs)
	if err != nil {
		// Absorbed: the next matching frame gets another chance.
		e.logger.Debug("signature extraction failed",
			"session_id", s.id, "pose", pose, "error", err)
		return nil
	}

	s.captures = append(s.captures, domain.FaceCapture{
		Image:       append([]byte(nil), frame...),
		Pose:        pose,
		Observation: *obs,
		Signature:   sig.Float64s(),
		Quality:     obs.QualityOrDefault(0),
		Timestamp:   time.Now(),
	})
	s.poseCaptures++
	if s.poseCaptures < e.cfg.CapturesPerPose {
		return nil
	}

	s.completedPoses = append(s.completedPoses, pose)
	s.poseCaptures = 0
	s.poseIndex++
	s.progress = float64(len(s.completedPoses)) / float64(len(s.requiredPoses)) * 0.5

	if s.poseIndex < len(s.requiredPoses) {
		s.instruction = poseInstructions[s.currentPose()]
		return []Event{EventPoseCompleted}
	}

	s.state = domain.StateLivenessCheck
	s.challengeFrames = 0
	s.instruction = challengeInstructions[s.currentChallenge()]
	return []Event{EventPoseCompleted}
}

func (e *Engine) stepLiveness(s *Session, obs *domain.FaceObservation) []Event {
	s.challengeFrames++
	challenge := s.currentChallenge()

	done := false
	if obs != nil {
		switch challenge {
		case domain.ChallengeBlink:
			if s.blinks.Observe(e.analyzer.EyesOpen(obs)) {
				s.blinkCount++
			}
			done = s.blinkCount >= e.cfg.RequiredBlinks
		case domain.ChallengeSmile:
			if e.analyzer.Smiling(obs) {
				s.smileFrames++
			}
			done = s.smileFrames >= e.cfg.SmileFrames
		case domain.ChallengeTurnLeft:
			done = e.analyzer.MatchesPose(obs, domain.PoseLeft)
		case domain.ChallengeTurnRight:
			done = e.analyzer.MatchesPose(obs, domain.PoseRight)
		}
	}

	if done {
		s.completedChallenges = append(s.completedChallenges, challenge)
		s.challengeIndex++
		s.blinkCount = 0
		s.smileFrames = 0
		s.challengeFrames = 0
		s.blinks.Reset()

		if s.challengeIndex < len(s.requiredChallenges) {
			s.instruction = challengeInstructions[s.currentChallenge()]
			return []Event{EventChallengeCompleted}
		}

		e.beginProcessingLocked(s)
		return []Event{EventChallengeCompleted}
	}

	// Soft timeout: start the challenge over, never fail the session.
	if s.challengeFrames >= e.cfg.ChallengeFrameBudget {
		e.logger.Debug("challenge timed out, restarting",
			"session_id", s.id, "challenge", challenge)
		s.blinkCount = 0
		s.smileFrames = 0
		s.challengeFrames = 0
		s.blinks.Reset()
	}
	return nil
}

// beginProcessingLocked kicks off the one asynchronous match for this
// processing entry. Frame delivery continues elsewhere; this session
// discards frames until the match lands.
func (e *Engine) beginProcessingLocked(s *Session) {
	s.state = domain.StateProcessing
	s.progress = 0.85
	s.instruction = instructionProcessing

	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelMatch = cancel
	captures := append([]domain.FaceCapture(nil), s.captures...)
	userID := s.userID

	go func() {
		defer cancel()
		result, err := e.matcher.Match(ctx, userID, captures)
		e.finishMatch(s, gen, result, err)
	}()
}

func (e *Engine) finishMatch(s *Session, gen uint64, result domain.MatchResult, err error) {
	s.mu.Lock()
	if s.generation != gen || s.state != domain.StateProcessing {
		s.mu.Unlock()
		e.logger.Debug("discarding stale match result", "session_id", s.id)
		return
	}
	s.cancelMatch = nil

	var event Event
	switch {
	case err != nil:
		e.logger.Error("matching failed", "session_id", s.id, "error", err)
		s.failLocked(err.Error())
		event = EventFailed
	case !result.Success:
		s.failLocked(result.Message)
		event = EventFailed
	default:
		s.state = domain.StateSuccess
		s.progress = 1.0
		s.instruction = instructionSuccess
		event = EventSucceeded
	}

	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	e.emit(snap, []Event{event})
}

func (s *Session) failLocked(reason string) {
	s.state = domain.StateFailure
	s.failureReason = reason
	s.instruction = instructionFailure
}

func (e *Engine) emit(snap domain.SessionSnapshot, events []Event) {
	if e.notifier == nil {
		return
	}
	for _, ev := range events {
		e.notifier.Notify(snap, ev)
	}
}

func positionInstruction(issue liveness.PositionIssue) string {
	switch issue {
	case liveness.PositionTooFar:
		return instructionTooFar
	case liveness.PositionTooClose:
		return instructionTooClose
	case liveness.PositionOffCenterLeft:
		return instructionMoveRight
	case liveness.PositionOffCenterRight:
		return instructionMoveLeft
	case liveness.PositionNotFacing:
		return instructionFaceFront
	default:
		return instructionPosition
	}
}
