package models

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Reference  string     `gorm:"size:12;not null;unique" json:"reference"`
	CustomerID uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	WorkerID   *uuid.UUID `gorm:"type:uuid;index" json:"worker_id"`
	ServiceID  uuid.UUID  `gorm:"type:uuid;not null" json:"service_id"`

	Date     time.Time `gorm:"type:date;not null" json:"date"`
	TimeSlot string    `gorm:"size:20;not null" json:"time_slot"`
	Address  string    `gorm:"size:500;not null" json:"address"`
	Notes    *string   `gorm:"type:text" json:"notes"`

	// AmountCents is computed server-side at creation and never updated.
	AmountCents   int64  `gorm:"not null" json:"amount_cents"`
	Currency      string `gorm:"size:3;not null" json:"currency"`
	PaymentMethod string `gorm:"size:20;not null" json:"payment_method"`
	Status        string `gorm:"size:20;not null;default:'pending'" json:"status"`

	Customer User     `gorm:"foreignkey:CustomerID" json:"customer,omitempty"`
	Worker   *User    `gorm:"foreignkey:WorkerID" json:"worker,omitempty"`
	Service  Service  `gorm:"foreignkey:ServiceID" json:"service,omitempty"`
	Payment  *Payment `gorm:"foreignkey:BookingID" json:"payment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
