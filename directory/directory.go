// Package directory provides the service- and user-lookup collaborators the
// booking core consumes to price bookings and validate workers.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixlify/homeservices-api/bookings"
	"github.com/fixlify/homeservices-api/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Services struct {
	db *gorm.DB
}

func NewServices(db *gorm.DB) *Services {
	return &Services{db: db}
}

func (s *Services) ServiceByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: service %s", bookings.ErrNotFound, id)
		}
		return nil, err
	}
	return &svc, nil
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (u *Users) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", bookings.ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}
