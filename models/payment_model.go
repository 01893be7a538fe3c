package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment exists only for online bookings, one row per booking.
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;unique" json:"booking_id"`

	SessionID   *string `gorm:"size:255;unique" json:"session_id"`
	AmountCents int64   `gorm:"not null" json:"amount_cents"`
	Currency    string  `gorm:"size:3;not null" json:"currency"`
	Status      string  `gorm:"size:20;not null;default:'pending'" json:"status"`
	RefundID    *string `gorm:"size:255" json:"refund_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
