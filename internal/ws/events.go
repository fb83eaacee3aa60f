package ws

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionState     EventType = "session.state"
	EventSessionCompleted EventType = "session.completed"
)

type Event struct {
	SessionID uuid.UUID   `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
