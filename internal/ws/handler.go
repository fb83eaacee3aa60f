package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Handler upgrades the connection and subscribes the client to the
// session named by the session_id query parameter.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sessionID, err := uuid.Parse(c.Query("session_id"))
		if err != nil {
			_ = c.Close()
			return
		}

		client := &Client{
			hub:       hub,
			conn:      c,
			sessionID: sessionID,
			send:      make(chan []byte, 256),
		}

		hub.register <- client

		go client.WritePump()
		client.ReadPump()
	})
}

func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
