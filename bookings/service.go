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

// Principal is the authenticated caller as supplied by the auth middleware.
type Principal struct {
	ID   uuid.UUID
	Role string
}

// Gateway is the slice of the payment gateway this subsystem consumes.
// payments.Client satisfies it.
type Gateway interface {
	CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error)
	GetStatus(ctx context.Context, sessionID string) (payments.SessionStatus, error)
	Refund(ctx context.Context, sessionID string) (string, error)
}

// ServiceDirectory and UserDirectory are the lookup collaborators used to
// price bookings and validate workers.
type ServiceDirectory interface {
	ServiceByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
}

type UserDirectory interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier delivers booking emails. Implementations must never block or fail
// the calling state change.
type Notifier interface {
	BookingEvent(booking *models.Booking, event string)
}

// EventSink receives realtime booking events. realtime.Hub satisfies it.
type EventSink interface {
	Publish(event realtime.Event)
}

// Notification event names.
const (
	EventCreated          = "created"
	EventPaymentConfirmed = "payment_confirmed"
	EventPaymentFailed    = "payment_failed"
	EventAccepted         = "accepted"
	EventRejected         = "rejected"
	EventCompleted        = "completed"
	EventCancelled        = "cancelled"
	EventRefunded         = "refunded"
)

type Config struct {
	PlatformFeeCents    int64
	Currency            string
	CancelLockHours     int
	PendingTimeoutHours int
	// ConfirmOnPayment advances a still-pending online booking to accepted as
	// soon as its payment completes, for services that need no worker sign-off.
	ConfirmOnPayment bool
}

// Service is the single authority on booking lifecycle changes. All HTTP
// handlers, webhooks and jobs go through it.
type Service struct {
	store    Store
	gateway  Gateway
	services ServiceDirectory
	users    UserDirectory
	notifier Notifier
	events   EventSink
	cfg      Config
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(store Store, gateway Gateway, services ServiceDirectory, users UserDirectory,
	notifier Notifier, events EventSink, cfg Config, log *logrus.Logger) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		services: services,
		users:    users,
		notifier: notifier,
		events:   events,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type CreateBookingInput struct {
	ServiceID     uuid.UUID
	WorkerID      *uuid.UUID
	Date          time.Time
	TimeSlot      string
	Address       string
	Notes         *string
	PaymentMethod string
}

// Create validates the request, prices the booking server-side and, for
// online payment, opens a checkout session before anything is persisted. A
// gateway failure therefore leaves no orphaned booking behind.
func (s *Service) Create(ctx context.Context, p Principal, in CreateBookingInput) (*models.Booking, *payments.Session, error) {
	if p.Role != RoleCustomer {
		return nil, nil, fmt.Errorf("%w: only customers can create bookings", ErrForbidden)
	}
	if in.PaymentMethod != MethodOnline && in.PaymentMethod != MethodCOD {
		return nil, nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	if !ValidTimeSlot(in.TimeSlot) {
		return nil, nil, fmt.Errorf("%w: unknown time slot %q", ErrValidation, in.TimeSlot)
	}
	slotStart, err := SlotStart(in.Date, in.TimeSlot)
	if err != nil {
		return nil, nil, err
	}
	if slotStart.Before(s.now()) {
		return nil, nil, fmt.Errorf("%w: slot is in the past", ErrValidation)
	}

	svc, err := s.services.ServiceByID(ctx, in.ServiceID)
	if err != nil {
		return nil, nil, err
	}
	if !svc.IsActive {
		return nil, nil, fmt.Errorf("%w: service %s", ErrNotFound, in.ServiceID)
	}

	if in.WorkerID != nil {
		worker, err := s.users.UserByID(ctx, *in.WorkerID)
		if err != nil {
			return nil, nil, err
		}
		if worker.Role != RoleWorker || !worker.IsActive {
			return nil, nil, fmt.Errorf("%w: user %s is not an active worker", ErrValidation, *in.WorkerID)
		}
	}

	// Amount is never trusted from the client.
	amount := svc.PriceCents + s.cfg.PlatformFeeCents

	booking := &models.Booking{
		ID:            uuid.New(),
		CustomerID:    p.ID,
		WorkerID:      in.WorkerID,
		ServiceID:     svc.ID,
		Date:          in.Date,
		TimeSlot:      in.TimeSlot,
		Address:       in.Address,
		Notes:         in.Notes,
		AmountCents:   amount,
		Currency:      s.cfg.Currency,
		PaymentMethod: in.PaymentMethod,
		Status:        string(StatusPending),
	}

	var payment *models.Payment
	var session *payments.Session
	if in.PaymentMethod == MethodOnline {
		session, err = s.gateway.CreateSession(ctx, payments.SessionRequest{
			BookingID:   booking.ID.String(),
			AmountCents: amount,
			Currency:    s.cfg.Currency,
			Description: fmt.Sprintf("%s on %s (%s)", svc.Name, in.Date.Format("2006-01-02"), in.TimeSlot),
			Metadata:    map[string]string{"booking_id": booking.ID.String()},
		})
		if err != nil {
			s.log.WithError(err).WithField("booking_id", booking.ID).Warn("checkout session creation failed, booking aborted")
			return nil, nil, err
		}
		payment = &models.Payment{
			ID:          uuid.New(),
			SessionID:   &session.ID,
			AmountCents: amount,
			Currency:    s.cfg.Currency,
			Status:      PaymentPending,
		}
	}

	if err := s.store.Create(ctx, booking, payment); err != nil {
		return nil, nil, err
	}
	booking.Payment = payment
	booking.Service = *svc
	if customer, err := s.users.UserByID(ctx, p.ID); err == nil {
		booking.Customer = *customer
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.Reference,
		"amount":     amount,
		"method":     in.PaymentMethod,
	}).Info("booking created")

	s.notifier.BookingEvent(booking, EventCreated)
	return booking, session, nil
}

// Get loads a booking, restricted to its customer, its worker, or an admin.
func (s *Service) Get(ctx context.Context, p Principal, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(p, booking) {
		return nil, fmt.Errorf("%w: booking %s", ErrForbidden, id)
	}
	return booking, nil
}

// List returns bookings scoped to the caller's role: customers see their own,
// workers see their assignments, admins see everything.
func (s *Service) List(ctx context.Context, p Principal) ([]models.Booking, error) {
	switch p.Role {
	case RoleCustomer:
		return s.store.FindByCustomer(ctx, p.ID)
	case RoleWorker:
		return s.store.FindByWorker(ctx, p.ID)
	case RoleAdmin:
		return s.store.FindAll(ctx, "")
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
}

// ChangeStatus applies one state-machine transition on behalf of the caller.
// Any required refund is completed before the new status is persisted; a
// failed refund leaves the booking exactly as it was.
func (s *Service) ChangeStatus(ctx context.Context, p Principal, id uuid.UUID, target Status) (*models.Booking, error) {
	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	current := Status(booking.Status)
	if !current.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	if err := s.authorizeTransition(p, booking, target); err != nil {
		return nil, err
	}
	if err := s.checkTransitionPolicy(p, booking, target); err != nil {
		return nil, err
	}

	if target == StatusCancelled || target == StatusRejected {
		if err := s.ensureRefunded(ctx, booking); err != nil {
			return nil, err
		}
	}

	if target == StatusAccepted && p.Role == RoleWorker {
		err = s.store.AcceptByWorker(ctx, id, p.ID)
	} else {
		err = s.store.UpdateStatus(ctx, id, current, target)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": id,
		"transition": fmt.Sprintf("%s -> %s", current, target),
		"actor":      p.ID,
		"role":       p.Role,
	}).Info("booking status changed")

	s.notifier.BookingEvent(updated, transitionEvent(target))
	s.publish(updated)
	return updated, nil
}

// ExpireStalePending rejects bookings that have waited for a worker longer
// than the configured timeout, refunding any completed payment. Called from
// the cron sweep.
func (s *Service) ExpireStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-time.Duration(s.cfg.PendingTimeoutHours) * time.Hour)
	stale, err := s.store.FindStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		booking := &stale[i]
		if err := s.ensureRefunded(ctx, booking); err != nil {
			s.log.WithError(err).WithField("booking_id", booking.ID).Error("auto-reject skipped, refund failed")
			continue
		}
		if err := s.store.UpdateStatus(ctx, booking.ID, StatusPending, StatusRejected); err != nil {
			if errors.Is(err, ErrStaleState) || errors.Is(err, ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
		if updated, err := s.store.FindByID(ctx, booking.ID); err == nil {
			s.notifier.BookingEvent(updated, EventRejected)
			s.publish(updated)
		}
	}
	if expired > 0 {
		s.log.WithField("count", expired).Info("auto-rejected stale pending bookings")
	}
	return expired, nil
}

// DeleteMode is the admin's explicit choice when hard-deleting a booking
// that may carry a successful charge.
type DeleteMode string

const (
	// DeleteWithRefund cancels (refunding if paid) before deleting.
	DeleteWithRefund DeleteMode = "refund"
	// DeleteRecordOnly removes the record and leaves the gateway untouched.
	DeleteRecordOnly DeleteMode = "delete-only"
)

// Delete hard-deletes a booking. Whether a refund is implied is never
// guessed; the admin states it via mode.
func (s *Service) Delete(ctx context.Context, p Principal, id uuid.UUID, mode DeleteMode) error {
	if p.Role != RoleAdmin {
		return fmt.Errorf("%w: admin only", ErrForbidden)
	}

	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	switch mode {
	case DeleteWithRefund:
		if err := s.ensureRefunded(ctx, booking); err != nil {
			return err
		}
	case DeleteRecordOnly:
		// Charge, if any, stays attached at the gateway.
	default:
		return fmt.Errorf("%w: mode must be %q or %q", ErrValidation, DeleteWithRefund, DeleteRecordOnly)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"booking_id": id, "mode": mode, "actor": p.ID}).
		Warn("booking hard-deleted by admin")
	return nil
}

// ensureRefunded guarantees that no completed charge remains attached before
// a cancellation-class transition persists. AlreadyRefunded and NotAttached
// from the gateway count as success; anything else aborts with RefundFailed.
func (s *Service) ensureRefunded(ctx context.Context, booking *models.Booking) error {
	payment := booking.Payment
	if payment == nil || payment.Status != PaymentCompleted || payment.SessionID == nil {
		return nil
	}

	refundID, err := s.gateway.Refund(ctx, *payment.SessionID)
	if err != nil && !errors.Is(err, payments.ErrAlreadyRefunded) && !errors.Is(err, payments.ErrNotAttached) {
		s.log.WithError(err).WithField("booking_id", booking.ID).Error("refund failed")
		return fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}

	var refundRef *string
	if err == nil && refundID != "" {
		refundRef = &refundID
	}

	if err := s.store.UpdatePaymentStatus(ctx, booking.ID, PaymentCompleted, PaymentRefunded, refundRef); err != nil {
		if errors.Is(err, ErrStaleState) {
			// A concurrent actor already moved the payment on; the charge is
			// no longer completed, which is all this step guarantees.
			return nil
		}
		return err
	}
	payment.Status = PaymentRefunded
	payment.RefundID = refundRef
	s.notifier.BookingEvent(booking, EventRefunded)
	return nil
}

func (s *Service) canView(p Principal, b *models.Booking) bool {
	if p.Role == RoleAdmin {
		return true
	}
	if b.CustomerID == p.ID {
		return true
	}
	return b.WorkerID != nil && *b.WorkerID == p.ID
}

func (s *Service) authorizeTransition(p Principal, b *models.Booking, target Status) error {
	if p.Role == RoleAdmin {
		return nil
	}
	switch target {
	case StatusAccepted, StatusRejected:
		if p.Role != RoleWorker {
			return fmt.Errorf("%w: only the worker may %s a booking", ErrForbidden, target)
		}
		if b.WorkerID != nil && *b.WorkerID != p.ID {
			return fmt.Errorf("%w: booking is assigned to another worker", ErrForbidden)
		}
	case StatusCompleted:
		if p.Role != RoleWorker || b.WorkerID == nil || *b.WorkerID != p.ID {
			return fmt.Errorf("%w: only the assigned worker may complete a booking", ErrForbidden)
		}
	case StatusCancelled:
		if p.Role != RoleCustomer || b.CustomerID != p.ID {
			return fmt.Errorf("%w: only the booking's customer may cancel", ErrForbidden)
		}
	default:
		return fmt.Errorf("%w: %s is not a requestable status", ErrValidation, target)
	}
	return nil
}

func (s *Service) checkTransitionPolicy(p Principal, b *models.Booking, target Status) error {
	switch target {
	case StatusAccepted:
		// An online booking is only confirmable once its payment has landed.
		if b.PaymentMethod == MethodOnline && (b.Payment == nil || b.Payment.Status != PaymentCompleted) {
			return fmt.Errorf("%w: online booking cannot be accepted before payment completes", ErrInvalidTransition)
		}
	case StatusCompleted:
		slotEnd, err := SlotEnd(b.Date, b.TimeSlot)
		if err != nil {
			return err
		}
		if slotEnd.After(s.now()) {
			return fmt.Errorf("%w: booking cannot be completed before the slot has ended", ErrValidation)
		}
	case StatusCancelled:
		if p.Role == RoleAdmin {
			return nil
		}
		slotStart, err := SlotStart(b.Date, b.TimeSlot)
		if err != nil {
			return err
		}
		lock := time.Duration(s.cfg.CancelLockHours) * time.Hour
		if s.now().After(slotStart.Add(-lock)) {
			return fmt.Errorf("%w: within %d hours of the slot", ErrCancelLocked, s.cfg.CancelLockHours)
		}
	}
	return nil
}

func (s *Service) publish(b *models.Booking) {
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
	s.events.Publish(event)
}

func transitionEvent(target Status) string {
	switch target {
	case StatusAccepted:
		return EventAccepted
	case StatusRejected:
		return EventRejected
	case StatusCompleted:
		return EventCompleted
	case StatusCancelled:
		return EventCancelled
	default:
		return string(target)
	}
}
