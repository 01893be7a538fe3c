package routes

import (
	"github.com/fixlify/homeservices-api/handlers"
	"github.com/fixlify/homeservices-api/middleware"
	"github.com/fixlify/homeservices-api/realtime"
	"github.com/gofiber/fiber/v2"
)

func RealtimeRoutes(app *fiber.App, hub *realtime.Hub, jwtSecret string) {
	app.Get("/ws/bookings", middleware.Protected(jwtSecret), handlers.UpgradeWS, handlers.BookingEvents(hub))
}
