package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixlify/homeservices-api/models"
	"github.com/fixlify/homeservices-api/payments"
	"github.com/fixlify/homeservices-api/realtime"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reconciler resolves divergence between the local payment record and the
// gateway's authoritative status. Both the inbound webhook and the
// client-initiated verify call funnel into it, and re-invoking it with an
// unchanged gateway status is a no-op.
type Reconciler struct {
	store    Store
	gateway  Gateway
	notifier Notifier
	events   EventSink
	cfg      Config
	log      *logrus.Logger
	now      func() time.Time
}

func NewReconciler(store Store, gateway Gateway, notifier Notifier, events EventSink,
	cfg Config, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		events:   events,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// BySession reconciles the booking that owns the given checkout session.
// This is the webhook entry point; the webhook body is never trusted beyond
// the session id, the status is always re-read from the gateway.
func (r *Reconciler) BySession(ctx context.Context, sessionID string) (*models.Booking, error) {
	booking, err := r.store.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return r.reconcile(ctx, booking)
}

// ByBooking is the client-initiated verify-payment entry point.
func (r *Reconciler) ByBooking(ctx context.Context, p Principal, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := r.store.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if p.Role != RoleAdmin && booking.CustomerID != p.ID &&
		(booking.WorkerID == nil || *booking.WorkerID != p.ID) {
		return nil, fmt.Errorf("%w: booking %s", ErrForbidden, bookingID)
	}
	return r.reconcile(ctx, booking)
}

// Sweep re-polls the gateway for online bookings whose payment has been
// pending for a while, recovering from lost webhooks. Failures on individual
// bookings are logged and skipped so one bad record cannot stall the sweep.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-5 * time.Minute)
	pending, err := r.store.FindUnreconciled(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for i := range pending {
		booking := &pending[i]
		updated, err := r.reconcile(ctx, booking)
		if err != nil {
			r.log.WithError(err).WithField("booking_id", booking.ID).Warn("sweep reconcile failed")
			continue
		}
		if updated.Payment != nil && updated.Payment.Status != PaymentPending {
			reconciled++
		}
	}
	return reconciled, nil
}

func (r *Reconciler) reconcile(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	payment := booking.Payment
	if booking.PaymentMethod != MethodOnline || payment == nil || payment.SessionID == nil {
		return nil, fmt.Errorf("%w: booking %s has no online payment to verify", ErrValidation, booking.ID)
	}

	gatewayStatus, err := r.gateway.GetStatus(ctx, *payment.SessionID)
	if err != nil {
		return nil, err
	}

	switch gatewayStatus {
	case payments.SessionPaid:
		if err := r.applyPaid(ctx, booking); err != nil {
			return nil, err
		}
	case payments.SessionFailed:
		if err := r.applyFailed(ctx, booking); err != nil {
			return nil, err
		}
	case payments.SessionPending:
		// Nothing authoritative yet.
	}

	return r.store.FindByID(ctx, booking.ID)
}

func (r *Reconciler) applyPaid(ctx context.Context, booking *models.Booking) error {
	payment := booking.Payment
	if payment.Status == PaymentCompleted || payment.Status == PaymentRefunded {
		return nil
	}

	err := r.store.UpdatePaymentStatus(ctx, booking.ID, payment.Status, PaymentCompleted, nil)
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			// Lost the race to a concurrent webhook/verify; their write stands.
			return nil
		}
		return err
	}

	r.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"session_id": *payment.SessionID,
	}).Info("payment confirmed")

	if updated, err := r.store.FindByID(ctx, booking.ID); err == nil {
		r.notifier.BookingEvent(updated, EventPaymentConfirmed)
		r.publish(updated)
	}

	if r.cfg.ConfirmOnPayment && Status(booking.Status) == StatusPending {
		if err := r.store.UpdateStatus(ctx, booking.ID, StatusPending, StatusAccepted); err != nil {
			if errors.Is(err, ErrStaleState) || errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if updated, err := r.store.FindByID(ctx, booking.ID); err == nil {
			r.notifier.BookingEvent(updated, EventAccepted)
			r.publish(updated)
		}
	}
	return nil
}

// applyFailed marks the payment failed but leaves the booking pending so the
// customer can retry; a failed charge never auto-rejects the request.
func (r *Reconciler) applyFailed(ctx context.Context, booking *models.Booking) error {
	if booking.Payment.Status != PaymentPending {
		return nil
	}
	err := r.store.UpdatePaymentStatus(ctx, booking.ID, PaymentPending, PaymentFailed, nil)
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			return nil
		}
		return err
	}
	r.log.WithField("booking_id", booking.ID).Info("payment marked failed")
	if updated, err := r.store.FindByID(ctx, booking.ID); err == nil {
		r.notifier.BookingEvent(updated, EventPaymentFailed)
		r.publish(updated)
	}
	return nil
}

func (r *Reconciler) publish(b *models.Booking) {
	event := realtime.Event{
		BookingID:  b.ID,
		Reference:  b.Reference,
		CustomerID: b.CustomerID,
		WorkerID:   b.WorkerID,
		Status:     b.Status,
	}
	if b.Payment != nil {
		event.PaymentStatus = b.Payment.Status
	}
	r.events.Publish(event)
}
