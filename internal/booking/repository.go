package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all booking persistence the engine needs.
//
// ReserveSlot must be atomic: the storage layer, not the availability
// pre-check, is the source of truth for the no-double-booking invariant.
// UpdateStatus must serialize concurrent transitions on one booking via the
// expectedVersion check.
type Repository interface {
	// ReserveSlot persists a new booking. It fails with ErrSlotConflict if
	// another active booking already occupies an overlapping slot.
	ReserveSlot(ctx context.Context, b *Booking) (*Booking, error)

	Get(ctx context.Context, id uuid.UUID) (*Booking, error)

	// UpdateStatus applies a status transition with an optimistic version
	// check, appending one history entry. The stored cancellation record is
	// replaced with the given value; nil clears it, keeping the record
	// consistent with the status. Fails with ErrStaleBooking when
	// expectedVersion lost a race.
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, newStatus Status, entry HistoryEntry, cancellation *CancellationInfo) (*Booking, error)

	// SetPayment records the payment handle obtained from the gateway.
	SetPayment(ctx context.Context, id uuid.UUID, payment PaymentInfo) error

	// ListActiveByVendorAndDate returns bookings that occupy slots for the
	// vendor on the given calendar date.
	ListActiveByVendorAndDate(ctx context.Context, vendorID uuid.UUID, date time.Time) ([]*Booking, error)

	// HasBookingsByCustomer reports whether the customer has booked before,
	// in any status. Drives the first-time-customer discount.
	HasBookingsByCustomer(ctx context.Context, customerID uuid.UUID) (bool, error)
}
