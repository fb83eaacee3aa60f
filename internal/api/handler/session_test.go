package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pairwise-app/faceverify/internal/api/middleware"
	"github.com/pairwise-app/faceverify/internal/domain"
)

// MockSessionService is a mock implementation of SessionService
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) StartSession(ctx context.Context, userID string) (domain.SessionSnapshot, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.SessionSnapshot), args.Error(1)
}

func (m *MockSessionService) ProcessFrame(ctx context.Context, sessionID uuid.UUID, image []byte) (domain.SessionSnapshot, error) {
	args := m.Called(ctx, sessionID, image)
	return args.Get(0).(domain.SessionSnapshot), args.Error(1)
}

func (m *MockSessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (domain.SessionSnapshot, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.SessionSnapshot), args.Error(1)
}

func (m *MockSessionService) ResetSession(ctx context.Context, sessionID uuid.UUID) (domain.SessionSnapshot, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.SessionSnapshot), args.Error(1)
}

func (m *MockSessionService) CancelSession(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(svc SessionService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})

	h := NewSessionHandler(svc, testLogger())
	v1 := app.Group("/v1")
	v1.Post("/sessions", h.Start)
	v1.Post("/sessions/:id/frames", h.Frame)
	v1.Get("/sessions/:id", h.Get)
	v1.Post("/sessions/:id/reset", h.Reset)
	v1.Delete("/sessions/:id", h.Cancel)

	return app
}

// Helper to create a multipart frame request body
func createFrameBody(frame []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(frame); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

// Like createFrameBody, but with an explicit Content-Type on the part
// instead of the application/octet-stream CreateFormFile defaults to.
func createTypedFrameBody(frame []byte, partType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="frame"; filename="frame.jpg"`)
	header.Set("Content-Type", partType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(frame); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func decodeSnapshot(t *testing.T, body io.Reader) domain.SessionSnapshot {
	t.Helper()
	var snap domain.SessionSnapshot
	assert.NoError(t, json.NewDecoder(body).Decode(&snap))
	return snap
}

func TestSessionHandler_Start(t *testing.T) {
	t.Run("creates session", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		snapshot := domain.SessionSnapshot{
			ID:          uuid.New(),
			UserID:      "user-1",
			State:       domain.StatePositioning,
			Instruction: "Position your face in the circle",
		}
		svc.On("StartSession", mock.Anything, "user-1").Return(snapshot, nil)

		req := httptest.NewRequest("POST", "/v1/sessions", bytes.NewBufferString(`{"user_id":"user-1"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		got := decodeSnapshot(t, resp.Body)
		assert.Equal(t, snapshot.ID, got.ID)
		assert.Equal(t, domain.StatePositioning, got.State)

		svc.AssertExpectations(t)
	})

	t.Run("rejects missing user_id", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		req := httptest.NewRequest("POST", "/v1/sessions", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		svc.AssertNotCalled(t, "StartSession")
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		req := httptest.NewRequest("POST", "/v1/sessions", bytes.NewBufferString(`not-json`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestSessionHandler_Frame(t *testing.T) {
	t.Run("processes multipart frame", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		frame := []byte("jpeg-bytes")
		snapshot := domain.SessionSnapshot{
			ID:    sessionID,
			State: domain.StateCapturing,
		}
		svc.On("ProcessFrame", mock.Anything, sessionID, frame).Return(snapshot, nil)

		body, contentType, err := createFrameBody(frame)
		assert.NoError(t, err)

		req := httptest.NewRequest("POST", "/v1/sessions/"+sessionID.String()+"/frames", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		got := decodeSnapshot(t, resp.Body)
		assert.Equal(t, domain.StateCapturing, got.State)

		svc.AssertExpectations(t)
	})

	t.Run("accepts multipart frame with image content type", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		frame := []byte("png-bytes")
		svc.On("ProcessFrame", mock.Anything, sessionID, frame).
			Return(domain.SessionSnapshot{ID: sessionID}, nil)

		body, contentType, err := createTypedFrameBody(frame, "image/png")
		assert.NoError(t, err)

		req := httptest.NewRequest("POST", "/v1/sessions/"+sessionID.String()+"/frames", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		svc.AssertExpectations(t)
	})

	t.Run("rejects non-image multipart frame", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		body, contentType, err := createTypedFrameBody([]byte("<html>"), "text/html")
		assert.NoError(t, err)

		req := httptest.NewRequest("POST", "/v1/sessions/"+uuid.NewString()+"/frames", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		svc.AssertNotCalled(t, "ProcessFrame")
	})

	t.Run("accepts raw body frame", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		frame := []byte("raw-jpeg-bytes")
		svc.On("ProcessFrame", mock.Anything, sessionID, frame).
			Return(domain.SessionSnapshot{ID: sessionID}, nil)

		req := httptest.NewRequest("POST", "/v1/sessions/"+sessionID.String()+"/frames", bytes.NewReader(frame))
		req.Header.Set("Content-Type", "image/jpeg")

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		svc.AssertExpectations(t)
	})

	t.Run("rejects invalid session id", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		req := httptest.NewRequest("POST", "/v1/sessions/not-a-uuid/frames", bytes.NewBufferString("frame"))

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		svc.AssertNotCalled(t, "ProcessFrame")
	})

	t.Run("rejects empty frame", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		req := httptest.NewRequest("POST", "/v1/sessions/"+uuid.NewString()+"/frames", nil)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		svc.AssertNotCalled(t, "ProcessFrame")
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		svc.On("ProcessFrame", mock.Anything, sessionID, mock.Anything).
			Return(domain.SessionSnapshot{}, domain.ErrSessionNotFound)

		req := httptest.NewRequest("POST", "/v1/sessions/"+sessionID.String()+"/frames", bytes.NewBufferString("frame"))

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestSessionHandler_Get(t *testing.T) {
	t.Run("returns snapshot", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		svc.On("GetSession", mock.Anything, sessionID).
			Return(domain.SessionSnapshot{ID: sessionID, State: domain.StateLivenessCheck}, nil)

		req := httptest.NewRequest("GET", "/v1/sessions/"+sessionID.String(), nil)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		got := decodeSnapshot(t, resp.Body)
		assert.Equal(t, domain.StateLivenessCheck, got.State)
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		svc.On("GetSession", mock.Anything, sessionID).
			Return(domain.SessionSnapshot{}, domain.ErrSessionNotFound)

		req := httptest.NewRequest("GET", "/v1/sessions/"+sessionID.String(), nil)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestSessionHandler_Reset(t *testing.T) {
	svc := new(MockSessionService)
	app := newTestApp(svc)

	sessionID := uuid.New()
	svc.On("ResetSession", mock.Anything, sessionID).
		Return(domain.SessionSnapshot{ID: sessionID, State: domain.StatePositioning}, nil)

	req := httptest.NewRequest("POST", "/v1/sessions/"+sessionID.String()+"/reset", nil)

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	got := decodeSnapshot(t, resp.Body)
	assert.Equal(t, domain.StatePositioning, got.State)

	svc.AssertExpectations(t)
}

func TestSessionHandler_Cancel(t *testing.T) {
	t.Run("cancels session", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		svc.On("CancelSession", mock.Anything, sessionID).Return(nil)

		req := httptest.NewRequest("DELETE", "/v1/sessions/"+sessionID.String(), nil)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		svc := new(MockSessionService)
		app := newTestApp(svc)

		sessionID := uuid.New()
		svc.On("CancelSession", mock.Anything, sessionID).Return(domain.ErrSessionNotFound)

		req := httptest.NewRequest("DELETE", "/v1/sessions/"+sessionID.String(), nil)

		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
