package handlers

import (
	"github.com/fixlify/homeservices-api/bookings"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type PaymentHandler struct {
	rec *bookings.Reconciler
	log *logrus.Logger
}

func NewPaymentHandler(rec *bookings.Reconciler, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{rec: rec, log: log}
}

type gatewayWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	} `json:"data"`
}

// Webhook handles gateway callbacks. Only the session id is taken from the
// payload; the reconciler re-reads the authoritative status from the gateway,
// so a replayed or forged body cannot flip a payment state.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	var payload gatewayWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}
	if payload.Data.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing session_id"})
	}

	h.log.WithFields(logrus.Fields{
		"session_id": payload.Data.SessionID,
		"event_type": payload.Type,
	}).Info("gateway webhook received")

	if _, err := h.rec.BySession(c.Context(), payload.Data.SessionID); err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Webhook processed successfully"})
}
