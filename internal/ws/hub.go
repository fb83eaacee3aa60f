package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub fans session events out to the websocket clients watching each
// verification session. A session usually has a single watcher (the
// capture UI) but nothing prevents several.
type Hub struct {
	clients    map[*Client]bool
	sessions   map[uuid.UUID]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastToSession(event)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		delete(h.sessions[client.sessionID], client)

		if len(h.sessions[client.sessionID]) == 0 {
			delete(h.sessions, client.sessionID)
		}

		close(client.send)
	}
}

func (h *Hub) broadcastToSession(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.sessions[event.SessionID]
	if clients == nil {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	for client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			delete(h.sessions[event.SessionID], client)
		}
	}
}

// BroadcastToSession queues an event for every client watching the
// session. Drops the event when the hub is saturated rather than
// blocking the frame pipeline.
func (h *Hub) BroadcastToSession(sessionID uuid.UUID, eventType EventType, data interface{}) {
	event := Event{
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- event:
	default:
	}
}

func (h *Hub) GetConnectedClients(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions[sessionID])
}
