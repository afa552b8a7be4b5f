package booking

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrVendorNotFound  = errors.New("vendor not found")

	// ErrSlotUnavailable means the availability pre-check rejected the slot.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrSlotConflict means another writer won the race for the slot.
	ErrSlotConflict = errors.New("slot already reserved")

	ErrInvalidLineItem   = errors.New("invalid line item")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleBooking means an optimistic version check failed; the caller
	// should re-read the booking and may retry once.
	ErrStaleBooking = errors.New("booking was modified concurrently")

	ErrAccessDenied = errors.New("access denied")
)

// ValidationError reports malformed input with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ExternalServiceError wraps a failed or timed-out repository or port call.
// The current operation fails; no partial state is left behind.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service failure during %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func externalFailure(op string, err error) error {
	return &ExternalServiceError{Op: op, Err: err}
}
