package bookings

import "errors"

// Every operation in this package fails with one of these, possibly wrapped
// with context. Handlers map them onto HTTP statuses in one place.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("invalid request")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleState        = errors.New("booking was modified concurrently, reload and retry")
	ErrRefundFailed      = errors.New("refund failed, booking left unchanged")
	ErrCancelLocked      = errors.New("booking can no longer be cancelled this close to the slot")
)
