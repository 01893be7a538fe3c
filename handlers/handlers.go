package handlers

import (
	"errors"

	"github.com/fixlify/homeservices-api/bookings"
	"github.com/fixlify/homeservices-api/payments"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// httpError maps the booking error taxonomy onto HTTP statuses in one place.
func httpError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, bookings.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bookings.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bookings.ErrValidation), errors.Is(err, payments.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bookings.ErrInvalidTransition),
		errors.Is(err, bookings.ErrStaleState),
		errors.Is(err, bookings.ErrCancelLocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bookings.ErrRefundFailed),
		errors.Is(err, payments.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
