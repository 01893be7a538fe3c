package bookings

import (
	"fmt"
	"strings"
	"time"
)

// TimeSlots are the bookable buckets of a working day.
var TimeSlots = []string{
	"08:00-10:00",
	"10:00-12:00",
	"12:00-14:00",
	"14:00-16:00",
	"16:00-18:00",
}

func ValidTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// SlotStart resolves the wall-clock start of a booking's slot in UTC.
func SlotStart(date time.Time, slot string) (time.Time, error) {
	start, _, ok := strings.Cut(slot, "-")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: malformed time slot %q", ErrValidation, slot)
	}
	t, err := time.Parse("15:04", start)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed time slot %q", ErrValidation, slot)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// SlotEnd resolves the wall-clock end of a booking's slot in UTC.
func SlotEnd(date time.Time, slot string) (time.Time, error) {
	_, end, ok := strings.Cut(slot, "-")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: malformed time slot %q", ErrValidation, slot)
	}
	t, err := time.Parse("15:04", end)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed time slot %q", ErrValidation, slot)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
