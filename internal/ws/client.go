package ws

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Client is one websocket watcher of a verification session. Messages
// are fanned out through the buffered send channel so a slow consumer
// cannot stall the hub.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID uuid.UUID
	send      chan []byte
}

// ReadPump drains inbound frames until the peer disconnects. The
// protocol is one-way, incoming payloads are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
