package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixlify/homeservices-api/models"
	"github.com/fixlify/homeservices-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the persistence boundary for bookings. Status writes are
// compare-and-swap on the current value so concurrent transitions cannot
// silently overwrite each other.
type Store interface {
	Create(ctx context.Context, booking *models.Booking, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error)
	FindByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Booking, error)
	FindAll(ctx context.Context, status string) ([]models.Booking, error)
	FindStalePending(ctx context.Context, createdBefore time.Time) ([]models.Booking, error)
	FindUnreconciled(ctx context.Context, createdBefore time.Time) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) error
	AcceptByWorker(ctx context.Context, id uuid.UUID, workerID uuid.UUID) error
	UpdatePaymentStatus(ctx context.Context, bookingID uuid.UUID, expected, next string, refundID *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Create persists the booking and, for online bookings, its payment row in
// one transaction, assigning the human-readable reference along the way.
func (s *gormStore) Create(ctx context.Context, booking *models.Booking, payment *models.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reference, err := utils.GenerateBookingReference(tx)
		if err != nil {
			return err
		}
		booking.Reference = reference

		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		if payment != nil {
			payment.BookingID = booking.ID
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *gormStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Worker").
		Preload("Service").
		Preload("Payment").
		First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: booking %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &booking, nil
}

func (s *gormStore) FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no booking for session %s", ErrNotFound, sessionID)
		}
		return nil, err
	}
	return s.FindByID(ctx, payment.BookingID)
}

func (s *gormStore) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Worker").
		Preload("Service").
		Preload("Payment").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&bookings).Error
	return bookings, err
}

func (s *gormStore) FindByWorker(ctx context.Context, workerID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Service").
		Preload("Payment").
		Where("worker_id = ?", workerID).
		Order("created_at desc").
		Find(&bookings).Error
	return bookings, err
}

func (s *gormStore) FindAll(ctx context.Context, status string) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Worker").
		Preload("Service").
		Preload("Payment").
		Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bookings []models.Booking
	err := q.Find(&bookings).Error
	return bookings, err
}

func (s *gormStore) FindStalePending(ctx context.Context, createdBefore time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Service").
		Preload("Payment").
		Where("status = ? AND created_at < ?", StatusPending, createdBefore).
		Find(&bookings).Error
	return bookings, err
}

// FindUnreconciled returns online bookings whose payment is still pending,
// candidates for the missed-webhook sweep.
func (s *gormStore) FindUnreconciled(ctx context.Context, createdBefore time.Time) ([]models.Booking, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", PaymentPending, createdBefore).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	bookings := make([]models.Booking, 0, len(payments))
	for _, p := range payments {
		b, err := s.FindByID(ctx, p.BookingID)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, nil
}

// UpdateStatus is a compare-and-swap: the write applies only if the booking
// is still in the expected status. RowsAffected distinguishes a lost race
// from a missing record.
func (s *gormStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) error {
	res := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.staleOrMissing(ctx, id)
	}
	return nil
}

// AcceptByWorker transitions pending -> accepted and claims the booking for
// the worker. A booking created with a chosen worker may only be accepted by
// that worker; an open booking is claimed by whoever accepts first. The
// worker column is never rewritten once set.
func (s *gormStore) AcceptByWorker(ctx context.Context, id uuid.UUID, workerID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ? AND (worker_id IS NULL OR worker_id = ?)", id, StatusPending, workerID).
		Updates(map[string]interface{}{"status": StatusAccepted, "worker_id": workerID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.staleOrMissing(ctx, id)
	}
	return nil
}

func (s *gormStore) UpdatePaymentStatus(ctx context.Context, bookingID uuid.UUID, expected, next string, refundID *string) error {
	updates := map[string]interface{}{"status": next}
	if refundID != nil {
		updates["refund_id"] = refundID
	}
	res := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Payment{}).Where("booking_id = ?", bookingID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: payment for booking %s", ErrNotFound, bookingID)
		}
		return fmt.Errorf("%w: payment status is no longer %q", ErrStaleState, expected)
	}
	return nil
}

// Delete hard-deletes the booking and its payment row. Refund policy is the
// caller's responsibility; the store never talks to the gateway.
func (s *gormStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Booking{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking %s", ErrNotFound, id)
		}
		return nil
	})
}

func (s *gormStore) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w", ErrStaleState)
}
