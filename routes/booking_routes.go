package routes

import (
	"github.com/fixlify/homeservices-api/handlers"
	"github.com/fixlify/homeservices-api/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, h *handlers.BookingHandler, jwtSecret string) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", middleware.Protected(jwtSecret))
	booking.Get("", h.List)
	booking.Post("", h.Create)
	booking.Get("/:bookingId", h.Get)
	booking.Put("/:bookingId/status", h.ChangeStatus)
	booking.Post("/:bookingId/verify-payment", h.VerifyPayment)
	booking.Get("/:bookingId/receipt", h.Receipt)
}
