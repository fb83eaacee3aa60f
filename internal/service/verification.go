package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairwise-app/faceverify/internal/audit"
	"github.com/pairwise-app/faceverify/internal/detector"
	"github.com/pairwise-app/faceverify/internal/domain"
	"github.com/pairwise-app/faceverify/internal/liveness"
	"github.com/pairwise-app/faceverify/internal/verify"
	"github.com/pairwise-app/faceverify/internal/webhook"
	"github.com/pairwise-app/faceverify/internal/ws"
)

const defaultSessionTTL = 10 * time.Minute

// Broadcaster pushes live session updates to connected clients.
type Broadcaster interface {
	BroadcastToSession(sessionID uuid.UUID, eventType ws.EventType, data interface{})
}

// EventDispatcher delivers terminal verification events to registered
// webhooks.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, data interface{}) error
}

// StartLimiter caps how often a single user may open new sessions.
type StartLimiter interface {
	CheckSessionStart(ctx context.Context, userID string) error
}

// UsageRecorder accumulates per-user activity counters.
type UsageRecorder interface {
	RecordSessionStarted(userID string)
	RecordFrame(userID string)
	RecordOutcome(userID string, verified bool)
}

// VerificationService owns the live sessions: it runs face detection on
// incoming frames, feeds the observations to the verification engine,
// and fans results out over websockets and webhooks. A user has at most
// one active session; starting a new one abandons the previous.
type VerificationService struct {
	engine     *verify.Engine
	detector   detector.FaceDetector
	hub        Broadcaster
	dispatcher EventDispatcher
	logger     *slog.Logger
	ttl        time.Duration

	limiter  StartLimiter
	auditLog audit.Logger
	usage    UsageRecorder

	mu       sync.Mutex
	sessions map[uuid.UUID]*verify.Session
	byUser   map[string]uuid.UUID
}

func NewVerificationService(
	cfg verify.Config,
	lcfg liveness.Config,
	matcher verify.Matcher,
	faceDetector detector.FaceDetector,
	hub Broadcaster,
	dispatcher EventDispatcher,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *VerificationService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}

	s := &VerificationService{
		detector:   faceDetector,
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger,
		ttl:        sessionTTL,
		sessions:   make(map[uuid.UUID]*verify.Session),
		byUser:     make(map[string]uuid.UUID),
	}
	s.engine = verify.NewEngine(cfg, lcfg, matcher, s, logger)

	return s
}

// WithStartLimiter enables the per-user cap on session starts.
func (s *VerificationService) WithStartLimiter(limiter StartLimiter) *VerificationService {
	s.limiter = limiter
	return s
}

// WithAuditLog records session lifecycle events to the given audit logger.
func (s *VerificationService) WithAuditLog(logger audit.Logger) *VerificationService {
	s.auditLog = logger
	return s
}

// WithUsageRecorder tracks per-user session and frame counters.
func (s *VerificationService) WithUsageRecorder(usage UsageRecorder) *VerificationService {
	s.usage = usage
	return s
}

// StartSession creates a verification session for the user. An existing
// active session for the same user is abandoned first.
func (s *VerificationService) StartSession(ctx context.Context, userID string) (domain.SessionSnapshot, error) {
	if userID == "" {
		return domain.SessionSnapshot{}, domain.ErrValidationFailed.WithError(fmt.Errorf("user_id is required"))
	}

	if s.limiter != nil {
		if err := s.limiter.CheckSessionStart(ctx, userID); err != nil {
			return domain.SessionSnapshot{}, err
		}
	}

	s.mu.Lock()
	if oldID, ok := s.byUser[userID]; ok {
		if old, ok := s.sessions[oldID]; ok {
			s.engine.Cancel(old)
			delete(s.sessions, oldID)
			s.logger.Info("abandoning previous session",
				"session_id", oldID,
				"user_id", userID,
			)
		}
	}

	session := s.engine.StartSession(userID)
	s.sessions[session.ID()] = session
	s.byUser[userID] = session.ID()
	s.mu.Unlock()

	s.logger.Info("verification session started",
		"session_id", session.ID(),
		"user_id", userID,
	)

	if s.usage != nil {
		s.usage.RecordSessionStarted(userID)
	}
	s.auditEvent(ctx, audit.EventSessionStarted, session.ID(), userID, true, "")

	return session.Snapshot(), nil
}

// ProcessFrame runs face detection on the frame and advances the
// session. A frame with no detectable face still advances the session
// (the engine records the face as lost).
func (s *VerificationService) ProcessFrame(ctx context.Context, sessionID uuid.UUID, image []byte) (domain.SessionSnapshot, error) {
	if len(image) == 0 {
		return domain.SessionSnapshot{}, domain.ErrInvalidImage
	}

	session, err := s.lookup(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	obs, err := s.detector.DetectLargestFace(ctx, image)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoFaceDetected):
		obs = nil
	case errors.Is(err, domain.ErrInvalidImage):
		return domain.SessionSnapshot{}, err
	default:
		return domain.SessionSnapshot{}, fmt.Errorf("session %s: detect face: %w", sessionID, err)
	}

	s.engine.ProcessObservation(session, obs, image)

	if s.usage != nil {
		s.usage.RecordFrame(session.UserID())
	}

	snapshot := session.Snapshot()
	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, ws.EventSessionState, snapshot)
	}

	return snapshot, nil
}

// GetSession returns the current snapshot of the session.
func (s *VerificationService) GetSession(ctx context.Context, sessionID uuid.UUID) (domain.SessionSnapshot, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// ResetSession puts the session back at positioning for the same user.
func (s *VerificationService) ResetSession(ctx context.Context, sessionID uuid.UUID) (domain.SessionSnapshot, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.engine.Reset(session)
	s.logger.Info("verification session reset",
		"session_id", sessionID,
		"user_id", session.UserID(),
	)
	s.auditEvent(ctx, audit.EventSessionReset, sessionID, session.UserID(), true, "")

	return session.Snapshot(), nil
}

// CancelSession abandons the session and removes it from the registry.
func (s *VerificationService) CancelSession(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrSessionNotFound
	}

	s.engine.Cancel(session)
	s.removeLocked(session)
	s.mu.Unlock()

	s.logger.Info("verification session cancelled",
		"session_id", sessionID,
		"user_id", session.UserID(),
	)
	s.auditEvent(ctx, audit.EventSessionCanceled, sessionID, session.UserID(), true, "")

	return nil
}

// Notify implements verify.Notifier: terminal transitions are pushed to
// websocket watchers and dispatched to webhooks. The engine may call it
// from the matcher goroutine, so delivery never blocks the caller.
func (s *VerificationService) Notify(snapshot domain.SessionSnapshot, event verify.Event) {
	if event != verify.EventSucceeded && event != verify.EventFailed {
		return
	}

	verified := event == verify.EventSucceeded
	if s.usage != nil {
		s.usage.RecordOutcome(snapshot.UserID, verified)
	}

	auditType := audit.EventVerificationSucceeded
	if !verified {
		auditType = audit.EventVerificationFailed
	}
	s.auditEvent(context.Background(), auditType, snapshot.ID, snapshot.UserID, verified, snapshot.FailureReason)

	if s.hub != nil {
		s.hub.BroadcastToSession(snapshot.ID, ws.EventSessionCompleted, snapshot)
	}

	if s.dispatcher == nil {
		return
	}

	eventType := webhook.EventVerificationCompleted
	if event == verify.EventFailed {
		eventType = webhook.EventVerificationFailed
	}

	payload := map[string]interface{}{
		"session_id":     snapshot.ID,
		"user_id":        snapshot.UserID,
		"state":          snapshot.State,
		"verified":       verified,
		"failure_reason": snapshot.FailureReason,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.dispatcher.Dispatch(ctx, eventType, payload); err != nil {
			s.logger.Error("webhook dispatch failed",
				"session_id", snapshot.ID,
				"event", eventType,
				"error", err,
			)
		}
	}()
}

// CleanupExpired abandons sessions idle past the TTL and returns how
// many were removed. Terminal sessions age out the same way so their
// captures are released.
func (s *VerificationService) CleanupExpired() int {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*verify.Session
	for _, session := range s.sessions {
		if session.Snapshot().UpdatedAt.After(cutoff) {
			continue
		}
		s.engine.Cancel(session)
		s.removeLocked(session)
		expired = append(expired, session)
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.auditEvent(context.Background(), audit.EventSessionExpired, session.ID(), session.UserID(), true, "")
	}

	return len(expired)
}

// StartCleanup sweeps expired sessions on the given interval until the
// context is cancelled.
func (s *VerificationService) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.CleanupExpired(); removed > 0 {
					s.logger.Info("expired verification sessions removed", "count", removed)
				}
			}
		}
	}()
}

func (s *VerificationService) auditEvent(ctx context.Context, eventType audit.EventType, sessionID uuid.UUID, userID string, success bool, failure string) {
	if s.auditLog == nil {
		return
	}

	if err := s.auditLog.Log(ctx, audit.Event{
		SessionID: sessionID,
		UserID:    userID,
		EventType: eventType,
		Success:   success,
		Error:     failure,
	}); err != nil {
		s.logger.Warn("audit log write failed",
			"session_id", sessionID,
			"event_type", eventType,
			"error", err,
		)
	}
}

func (s *VerificationService) lookup(sessionID uuid.UUID) (*verify.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *VerificationService) removeLocked(session *verify.Session) {
	delete(s.sessions, session.ID())
	if s.byUser[session.UserID()] == session.ID() {
		delete(s.byUser, session.UserID())
	}
}
