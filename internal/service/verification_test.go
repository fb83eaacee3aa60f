package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairwise-app/faceverify/internal/audit"
	"github.com/pairwise-app/faceverify/internal/detector/mock"
	"github.com/pairwise-app/faceverify/internal/domain"
	"github.com/pairwise-app/faceverify/internal/liveness"
	"github.com/pairwise-app/faceverify/internal/verify"
	"github.com/pairwise-app/faceverify/internal/webhook"
	"github.com/pairwise-app/faceverify/internal/ws"
)

type detectorStub struct {
	obs *domain.FaceObservation
	err error
}

func (d *detectorStub) DetectLargestFace(_ context.Context, _ []byte) (*domain.FaceObservation, error) {
	return d.obs, d.err
}

type matcherStub struct{}

func (matcherStub) Match(_ context.Context, _ string, _ []domain.FaceCapture) (domain.MatchResult, error) {
	return domain.MatchResult{Success: true, Confidence: 0.95}, nil
}

type broadcastRecord struct {
	sessionID uuid.UUID
	eventType ws.EventType
}

type broadcasterStub struct {
	mu     sync.Mutex
	events []broadcastRecord
}

func (b *broadcasterStub) BroadcastToSession(sessionID uuid.UUID, eventType ws.EventType, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastRecord{sessionID: sessionID, eventType: eventType})
}

func (b *broadcasterStub) all() []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastRecord(nil), b.events...)
}

type dispatcherStub struct {
	mu     sync.Mutex
	events []string
}

func (d *dispatcherStub) Dispatch(_ context.Context, eventType string, _ interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, eventType)
	return nil
}

func (d *dispatcherStub) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func newService(det *detectorStub, hub *broadcasterStub, dispatcher *dispatcherStub, ttl time.Duration) *VerificationService {
	logger := slog.New(slog.DiscardHandler)

	var b Broadcaster
	if hub != nil {
		b = hub
	}
	var e EventDispatcher
	if dispatcher != nil {
		e = dispatcher
	}

	return NewVerificationService(
		verify.DefaultConfig(),
		liveness.DefaultConfig(),
		matcherStub{},
		det,
		b,
		e,
		ttl,
		logger,
	)
}

func TestVerificationService_StartSession(t *testing.T) {
	svc := newService(&detectorStub{}, nil, nil, 0)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, "user-1", snap.UserID)
	assert.Equal(t, domain.StatePositioning, snap.State)
	assert.Zero(t, snap.Progress)
}

func TestVerificationService_StartSession_RequiresUserID(t *testing.T) {
	svc := newService(&detectorStub{}, nil, nil, 0)

	_, err := svc.StartSession(context.Background(), "")
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.ErrValidationFailed.Code, appErr.Code)
}

func TestVerificationService_StartSession_ReplacesActiveSession(t *testing.T) {
	svc := newService(&detectorStub{}, nil, nil, 0)

	first, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	second, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = svc.GetSession(context.Background(), first.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = svc.GetSession(context.Background(), second.ID)
	assert.NoError(t, err)
}

func TestVerificationService_ProcessFrame(t *testing.T) {
	det := &detectorStub{obs: mock.SyntheticObservation(1)}
	hub := &broadcasterStub{}
	svc := newService(det, hub, nil, 0)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	out, err := svc.ProcessFrame(context.Background(), snap.ID, []byte("frame"))
	require.NoError(t, err)
	assert.True(t, out.FaceDetected)

	events := hub.all()
	require.Len(t, events, 1)
	assert.Equal(t, snap.ID, events[0].sessionID)
	assert.Equal(t, ws.EventSessionState, events[0].eventType)
}

func TestVerificationService_ProcessFrame_NoFace(t *testing.T) {
	det := &detectorStub{err: domain.ErrNoFaceDetected}
	svc := newService(det, nil, nil, 0)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	out, err := svc.ProcessFrame(context.Background(), snap.ID, []byte("frame"))
	require.NoError(t, err)
	assert.False(t, out.FaceDetected)
	assert.Equal(t, domain.StatePositioning, out.State)
}

func TestVerificationService_ProcessFrame_EmptyImage(t *testing.T) {
	svc := newService(&detectorStub{}, nil, nil, 0)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = svc.ProcessFrame(context.Background(), snap.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestVerificationService_ProcessFrame_InvalidImage(t *testing.T) {
	det := &detectorStub{err: domain.ErrInvalidImage}
	svc := newService(det, nil, nil, 0)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = svc.ProcessFrame(context.Background(), snap.ID, []byte("garbage"))
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestVerificationService_ProcessFrame_UnknownSession(t *testing.T) {
	svc := newService(&detectorStub{}, nil, nil, 0)

	_, err := svc.ProcessFrame(context.Background(), uuid.New(), []byte("frame"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestVerificationService_ResetSession(t *testing.T) {
	det := &detectorStub{obs: mock.SyntheticObservation(1)}
	svc := newService(det, nil, nil, 0)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = svc.ProcessFrame(context.Background(), snap.ID, []byte("frame"))
	require.NoError(t, err)

	out, err := svc.ResetSession(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePositioning, out.State)
	assert.Equal(t, "user-1", out.UserID)
	assert.Zero(t, out.Progress)
	assert.False(t, out.FaceDetected)
}

func TestVerificationService_CancelSession(t *testing.T) {
	svc := newService(&detectorStub{}, nil, nil, 0)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.CancelSession(context.Background(), snap.ID))

	_, err = svc.GetSession(context.Background(), snap.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, svc.CancelSession(context.Background(), snap.ID), domain.ErrSessionNotFound)
}

func TestVerificationService_CleanupExpired(t *testing.T) {
	svc := newService(&detectorStub{}, nil, nil, time.Millisecond)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, svc.CleanupExpired())

	_, err = svc.GetSession(context.Background(), snap.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The user slot is free again.
	_, err = svc.StartSession(context.Background(), "user-1")
	assert.NoError(t, err)
}

func TestVerificationService_Notify_TerminalEvents(t *testing.T) {
	hub := &broadcasterStub{}
	dispatcher := &dispatcherStub{}
	svc := newService(&detectorStub{}, hub, dispatcher, 0)

	snapshot := domain.SessionSnapshot{
		ID:     uuid.New(),
		UserID: "user-1",
		State:  domain.StateSuccess,
	}

	svc.Notify(snapshot, verify.EventSucceeded)

	events := hub.all()
	require.Len(t, events, 1)
	assert.Equal(t, ws.EventSessionCompleted, events[0].eventType)

	require.Eventually(t, func() bool {
		return len(dispatcher.all()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, webhook.EventVerificationCompleted, dispatcher.all()[0])
}

func TestVerificationService_Notify_FailureDispatchesFailedEvent(t *testing.T) {
	dispatcher := &dispatcherStub{}
	svc := newService(&detectorStub{}, nil, dispatcher, 0)

	snapshot := domain.SessionSnapshot{
		ID:            uuid.New(),
		UserID:        "user-1",
		State:         domain.StateFailure,
		FailureReason: "Your face doesn't match your profile photos",
	}

	svc.Notify(snapshot, verify.EventFailed)

	require.Eventually(t, func() bool {
		return len(dispatcher.all()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, webhook.EventVerificationFailed, dispatcher.all()[0])
}

func TestVerificationService_Notify_IgnoresIntermediateEvents(t *testing.T) {
	hub := &broadcasterStub{}
	dispatcher := &dispatcherStub{}
	svc := newService(&detectorStub{}, hub, dispatcher, 0)

	svc.Notify(domain.SessionSnapshot{ID: uuid.New()}, verify.EventPoseCompleted)

	assert.Empty(t, hub.all())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, dispatcher.all())
}

type limiterStub struct {
	err   error
	calls []string
}

func (l *limiterStub) CheckSessionStart(_ context.Context, userID string) error {
	l.calls = append(l.calls, userID)
	return l.err
}

type usageStub struct {
	mu       sync.Mutex
	started  []string
	frames   []string
	outcomes map[string]bool
}

func (u *usageStub) RecordSessionStarted(userID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.started = append(u.started, userID)
}

func (u *usageStub) RecordFrame(userID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.frames = append(u.frames, userID)
}

func (u *usageStub) RecordOutcome(userID string, verified bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.outcomes == nil {
		u.outcomes = make(map[string]bool)
	}
	u.outcomes[userID] = verified
}

type auditStub struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *auditStub) Log(_ context.Context, event audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *auditStub) all() []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Event(nil), a.events...)
}

func TestVerificationService_StartSession_LimiterRejects(t *testing.T) {
	limiter := &limiterStub{err: domain.ErrRateLimitExceeded}
	svc := newService(&detectorStub{}, nil, nil, 0).WithStartLimiter(limiter)

	_, err := svc.StartSession(context.Background(), "user-1")
	require.ErrorIs(t, err, domain.ErrRateLimitExceeded)
	assert.Equal(t, []string{"user-1"}, limiter.calls)

	_, err = svc.GetSession(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestVerificationService_RecordsUsageAndAudit(t *testing.T) {
	usage := &usageStub{}
	auditLog := &auditStub{}
	svc := newService(&detectorStub{obs: nil, err: domain.ErrNoFaceDetected}, nil, nil, 0).
		WithUsageRecorder(usage).
		WithAuditLog(auditLog)

	snap, err := svc.StartSession(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = svc.ProcessFrame(context.Background(), snap.ID, []byte{0x01})
	require.NoError(t, err)

	require.NoError(t, svc.CancelSession(context.Background(), snap.ID))

	assert.Equal(t, []string{"user-1"}, usage.started)
	assert.Equal(t, []string{"user-1"}, usage.frames)

	events := auditLog.all()
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventSessionStarted, events[0].EventType)
	assert.Equal(t, audit.EventSessionCanceled, events[1].EventType)
	assert.Equal(t, snap.ID, events[0].SessionID)
	assert.Equal(t, "user-1", events[0].UserID)
}

func TestVerificationService_Notify_RecordsOutcome(t *testing.T) {
	usage := &usageStub{}
	auditLog := &auditStub{}
	svc := newService(&detectorStub{}, nil, nil, 0).
		WithUsageRecorder(usage).
		WithAuditLog(auditLog)

	snapshot := domain.SessionSnapshot{
		ID:            uuid.New(),
		UserID:        "user-1",
		State:         domain.StateFailure,
		FailureReason: "Liveness check timed out",
	}

	svc.Notify(snapshot, verify.EventFailed)

	assert.Equal(t, map[string]bool{"user-1": false}, usage.outcomes)

	events := auditLog.all()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventVerificationFailed, events[0].EventType)
	assert.False(t, events[0].Success)
	assert.Equal(t, "Liveness check timed out", events[0].Error)
}
