package handlers

import (
	"time"

	"github.com/fixlify/homeservices-api/bookings"
	"github.com/fixlify/homeservices-api/middleware"
	"github.com/fixlify/homeservices-api/receipts"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BookingHandler struct {
	svc      *bookings.Service
	rec      *bookings.Reconciler
	receipts *receipts.Generator
}

func NewBookingHandler(svc *bookings.Service, rec *bookings.Reconciler, receipts *receipts.Generator) *BookingHandler {
	return &BookingHandler{svc: svc, rec: rec, receipts: receipts}
}

type CreateBookingRequest struct {
	ServiceID     string  `json:"service_id" validate:"required,uuid"`
	WorkerID      *string `json:"worker_id,omitempty" validate:"omitempty,uuid"`
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot      string  `json:"time_slot" validate:"required"`
	Address       string  `json:"address" validate:"required,min=5"`
	Notes         *string `json:"notes,omitempty"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=online cod"`
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	serviceID, _ := uuid.Parse(req.ServiceID)
	date, _ := time.Parse("2006-01-02", req.Date)

	var workerID *uuid.UUID
	if req.WorkerID != nil {
		id, _ := uuid.Parse(*req.WorkerID)
		workerID = &id
	}

	booking, session, err := h.svc.Create(c.Context(), middleware.Principal(c), bookings.CreateBookingInput{
		ServiceID:     serviceID,
		WorkerID:      workerID,
		Date:          date,
		TimeSlot:      req.TimeSlot,
		Address:       req.Address,
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return httpError(c, err)
	}

	resp := fiber.Map{"booking": booking}
	if session != nil {
		resp["payment_session"] = session
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	booking, err := h.svc.Get(c.Context(), middleware.Principal(c), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(booking)
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	results, err := h.svc.List(c.Context(), middleware.Principal(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(results)
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *BookingHandler) ChangeStatus(c *fiber.Ctx) error {
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

// VerifyPayment lets the client trigger reconciliation after returning from
// the hosted checkout page, instead of waiting for the webhook.
func (h *BookingHandler) VerifyPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	booking, err := h.rec.ByBooking(c.Context(), middleware.Principal(c), id)
	if err != nil {
		return httpError(c, err)
	}

	paymentStatus := ""
	if booking.Payment != nil {
		paymentStatus = booking.Payment.Status
	}
	return c.JSON(fiber.Map{
		"booking_id":     booking.ID,
		"status":         booking.Status,
		"payment_status": paymentStatus,
	})
}

func (h *BookingHandler) Receipt(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID format"})
	}

	p := middleware.Principal(c)
	booking, err := h.svc.Get(c.Context(), p, id)
	if err != nil {
		return httpError(c, err)
	}
	if p.Role == bookings.RoleWorker {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Receipts are available to the customer only"})
	}
	if booking.Status != string(bookings.StatusCompleted) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Receipts are only available for completed bookings"})
	}

	pdf, err := h.receipts.Generate(c.Context(), booking)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate receipt"})
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `attachment; filename="receipt-`+booking.Reference+`.pdf"`)
	return c.Send(pdf)
}
