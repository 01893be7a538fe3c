package routes

import (
	"github.com/fixlify/homeservices-api/handlers"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, h *handlers.PaymentHandler) {
	api := app.Group("/api/v1")

	// Unauthenticated: the gateway calls this. The payload is untrusted
	// either way, the reconciler re-reads status from the gateway.
	api.Post("/payments/webhook", h.Webhook)
}
