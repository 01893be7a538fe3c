package bookings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled}

	allowed := map[Status]map[Status]bool{
		StatusPending:  {StatusAccepted: true, StatusRejected: true, StatusCancelled: true},
		StatusAccepted: {StatusCompleted: true, StatusCancelled: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("accepted")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)

	_, err = ParseStatus("confirmed")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSlotParsing(t *testing.T) {
	assert.True(t, ValidTimeSlot("08:00-10:00"))
	assert.False(t, ValidTimeSlot("8am-10am"))

	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	start, err := SlotStart(date, "14:00-16:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC), start)

	end, err := SlotEnd(date, "14:00-16:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 12, 16, 0, 0, 0, time.UTC), end)

	_, err = SlotStart(date, "garbage")
	assert.ErrorIs(t, err, ErrValidation)
}
