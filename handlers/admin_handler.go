package handlers

import (
	"github.com/fixlify/homeservices-api/bookings"
	"github.com/fixlify/homeservices-api/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminHandler struct {
	svc   *bookings.Service
	store bookings.Store
}

func NewAdminHandler(svc *bookings.Service, store bookings.Store) *AdminHandler {
	return &AdminHandler{svc: svc, store: store}
}

func (h *AdminHandler) ListBookings(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" {
		if _, err := bookings.ParseStatus(status); err != nil {
			return httpError(c, err)
		}
	}

	results, err := h.store.FindAll(c.Context(), status)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(results)
}

// ForceStatus lets an admin apply a transition on either party's behalf. The
// transition table still applies; admins skip role ownership checks and the
// cancel lock window, nothing more.
func (h *AdminHandler) ForceStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	var req ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	target, err := bookings.ParseStatus(req.Status)
	if err != nil {
		return httpError(c, err)
	}

	booking, err := h.svc.ChangeStatus(c.Context(), middleware.Principal(c), id, target)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(booking)
}

// Delete hard-deletes a booking. The query parameter mode is mandatory:
// "refund" cancels and refunds any completed charge first, "delete-only"
// removes the record and leaves the gateway untouched.
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	mode := bookings.DeleteMode(c.Query("mode"))
	if err := h.svc.Delete(c.Context(), middleware.Principal(c), id, mode); err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Booking deleted"})
}
