package routes

import (
	"github.com/fixlify/homeservices-api/handlers"
	"github.com/fixlify/homeservices-api/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.AdminHandler, jwtSecret string) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin/bookings", middleware.Protected(jwtSecret), middleware.AdminRequired())
	admin.Get("", h.ListBookings)
	admin.Put("/:bookingId/status", h.ForceStatus)
	admin.Delete("/:bookingId", h.Delete)
}
