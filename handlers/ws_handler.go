package handlers

import (
	"github.com/fixlify/homeservices-api/middleware"
	"github.com/fixlify/homeservices-api/realtime"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UpgradeWS stashes the caller's identity before the protocol switch, since
// fiber locals set by the JWT middleware are not visible inside the
// websocket handler.
func UpgradeWS(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("principal_id", middleware.Principal(c).ID)
	return c.Next()
}

// BookingEvents keeps the connection registered with the hub until the
// client goes away. Clients only listen; inbound frames are drained.
func BookingEvents(hub *realtime.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("principal_id").(uuid.UUID)
		if !ok {
			_ = conn.Close()
			return
		}

		client := &realtime.Client{UserID: userID, Conn: conn}
		hub.Register(client)
		defer hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
