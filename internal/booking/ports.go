package booking

import (
	"context"

	"github.com/google/uuid"
)

// VendorCatalogPort exposes a vendor's operating hours, service catalog and
// booking policy as a point-in-time snapshot.
type VendorCatalogPort interface {
	GetAvailability(ctx context.Context, vendorID uuid.UUID) (*VendorAvailability, error)
}

type PaymentHandle struct {
	Reference string
	Status    PaymentStatus
}

// PaymentPort is the engine's view of the payment gateway. Wire-level
// concerns (hash signing, callbacks) live behind it.
type PaymentPort interface {
	CreateCharge(ctx context.Context, bookingID uuid.UUID, amount Money, currency, method string) (PaymentHandle, error)
	CapturePayment(ctx context.Context, reference string) error
	IssueRefund(ctx context.Context, bookingID uuid.UUID, reference string, amount Money) error
}

// NotificationPort delivers booking lifecycle notifications. All calls are
// fire-and-forget: the engine logs failures and never propagates them.
type NotificationPort interface {
	BookingCreated(ctx context.Context, b *Booking) error
	StatusChanged(ctx context.Context, b *Booking, previous Status) error
	ReviewRequested(ctx context.Context, b *Booking) error
}
