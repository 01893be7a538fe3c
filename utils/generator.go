package utils

import (
	"errors"
	"math/rand"
	"time"

	"github.com/fixlify/homeservices-api/models"
	"gorm.io/gorm"
)

const referenceLength = 8
const letterBytes = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBookingReference returns a short human-readable code that is unique
// among bookings, e.g. "BK-7F3KQ2MN".
func GenerateBookingReference(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, referenceLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		code := "BK-" + string(b)

		var booking models.Booking
		err := tx.Where("reference = ?", code).First(&booking).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return code, nil
			}
			return "", err
		}
	}
}
