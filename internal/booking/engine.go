package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/localmart/booking-engine/internal/redis"
)

// Engine composes availability checking, pricing, the state machine and the
// cancellation policy into the booking operations exposed to callers.
type Engine struct {
	repo     Repository
	catalog  VendorCatalogPort
	payments PaymentPort
	notifier NotificationPort
	pricing  *PricingEngine
	locker   redisclient.Locker
	clock    Clock
	logger   *zap.Logger
}

func NewEngine(
	repo Repository,
	catalog VendorCatalogPort,
	payments PaymentPort,
	notifier NotificationPort,
	pricing *PricingEngine,
	locker redisclient.Locker,
	clock Clock,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		repo:     repo,
		catalog:  catalog,
		payments: payments,
		notifier: notifier,
		pricing:  pricing,
		locker:   locker,
		clock:    clock,
		logger:   logger,
	}
}

type CreateBookingRequest struct {
	CustomerID    uuid.UUID
	VendorID      uuid.UUID
	Items         []LineItemRequest
	ServiceDate   time.Time
	Slot          TimeSlot
	PaymentMethod string
}

func (req *CreateBookingRequest) validate(now time.Time) error {
	if req.CustomerID == uuid.Nil {
		return invalidField("customer_id", "must be set")
	}
	if req.VendorID == uuid.Nil {
		return invalidField("vendor_id", "must be set")
	}
	if len(req.Items) == 0 {
		return invalidField("line_items", "at least one line item is required")
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return invalidField(fmt.Sprintf("line_items[%d].quantity", i), "must be positive")
		}
	}
	if !req.Slot.Valid() {
		return invalidField("time_slot", "start must precede end within one day")
	}
	today := dateOnly(now)
	if dateOnly(req.ServiceDate).Before(today) {
		return invalidField("service_date", "must not be in the past")
	}
	return nil
}

// CreateBooking reserves a conflict-free, priced booking. The availability
// check is re-validated inside the per vendor-day lock before the atomic
// reserve; on a lost race the caller receives ErrSlotConflict and must pick
// another slot rather than be retried silently.
func (e *Engine) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	now := e.clock.Now()
	if err := req.validate(now); err != nil {
		return nil, err
	}

	av, err := e.catalog.GetAvailability(ctx, req.VendorID)
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) {
			return nil, err
		}
		return nil, externalFailure("load vendor availability", err)
	}

	serviceDate := dateOnly(req.ServiceDate)

	existing, err := e.repo.ListActiveByVendorAndDate(ctx, req.VendorID, serviceDate)
	if err != nil {
		return nil, externalFailure("list bookings", err)
	}
	if !IsAvailable(av, serviceDate, req.Slot, existing) {
		return nil, ErrSlotUnavailable
	}

	hasBooked, err := e.repo.HasBookingsByCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, externalFailure("check customer history", err)
	}

	items, pricing, err := e.pricing.Price(av, req.Items, serviceDate, now, !hasBooked)
	if err != nil {
		return nil, err
	}

	initialStatus := StatusPendingApproval
	if av.AutoConfirm {
		initialStatus = StatusConfirmed
	}

	b := &Booking{
		ID:          uuid.New(),
		CustomerID:  req.CustomerID,
		VendorID:    req.VendorID,
		LineItems:   items,
		ServiceDate: serviceDate,
		Slot:        req.Slot,
		Status:      initialStatus,
		Pricing:     pricing,
		Payment: PaymentInfo{
			Method: req.PaymentMethod,
			Status: PaymentUnpaid,
		},
		History: []HistoryEntry{{
			Status:    initialStatus,
			ChangedBy: RoleCustomer,
			ChangedAt: now,
			Notes:     "booking created",
		}},
	}

	var created *Booking

	reserve := func(lockCtx context.Context) error {
		// Re-check inside the critical section: another writer may have
		// reserved an overlapping slot since the pre-check.
		current, err := e.repo.ListActiveByVendorAndDate(lockCtx, req.VendorID, serviceDate)
		if err != nil {
			return externalFailure("list bookings", err)
		}
		if !IsAvailable(av, serviceDate, req.Slot, current) {
			return ErrSlotConflict
		}

		created, err = e.repo.ReserveSlot(lockCtx, b)
		if err != nil {
			if errors.Is(err, ErrSlotConflict) {
				return err
			}
			return externalFailure("reserve slot", err)
		}
		return nil
	}

	err = e.locker.WithLock(ctx, slotLockKey(req.VendorID, serviceDate), reserve)
	var externalErr *ExternalServiceError
	switch {
	case err == nil:
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return nil, ErrSlotConflict
	case errors.Is(err, ErrSlotConflict), errors.As(err, &externalErr):
		return nil, err
	default:
		// Lock infrastructure failure. The storage constraint still
		// guarantees the invariant, so degrade to the unguarded reserve.
		e.logger.Warn("slot lock unavailable, relying on storage constraint", zap.Error(err))
		if err := reserve(ctx); err != nil {
			return nil, err
		}
	}

	e.chargeBooking(ctx, created)

	if err := e.notifier.BookingCreated(ctx, created); err != nil {
		e.logger.Warn("booking created notification failed",
			zap.String("booking_id", created.ID.String()), zap.Error(err))
	}

	e.logger.Info("booking created",
		zap.String("booking_id", created.ID.String()),
		zap.String("vendor_id", created.VendorID.String()),
		zap.String("status", string(created.Status)),
		zap.String("total", created.Pricing.Total.String()))

	return created, nil
}

// chargeBooking asks the gateway for a charge and records the handle.
// Best-effort: the booking is already committed, so a gateway failure is
// logged and payment stays unpaid for an out-of-band retry.
func (e *Engine) chargeBooking(ctx context.Context, b *Booking) {
	handle, err := e.payments.CreateCharge(ctx, b.ID, b.Pricing.Total, b.Pricing.Currency, b.Payment.Method)
	if err != nil {
		e.logger.Warn("charge creation failed",
			zap.String("booking_id", b.ID.String()), zap.Error(err))
		return
	}

	b.Payment.Status = handle.Status
	b.Payment.Reference = handle.Reference
	if err := e.repo.SetPayment(ctx, b.ID, b.Payment); err != nil {
		e.logger.Warn("recording payment handle failed",
			zap.String("booking_id", b.ID.String()), zap.Error(err))
	}
}

// TransitionStatus applies a lifecycle transition gated by the actor role.
// A transition into Cancelled goes through the cancellation policy; reaching
// Completed finalizes payment and requests a review, both best-effort.
func (e *Engine) TransitionStatus(ctx context.Context, id uuid.UUID, target Status, role Role, notes string) (*Booking, error) {
	if !role.Valid() {
		return nil, invalidField("actor_role", "must be customer, vendor or admin")
	}

	b, err := e.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, externalFailure("load booking", err)
	}

	if target == StatusCancelled {
		return e.cancel(ctx, b, role, notes)
	}

	if err := checkTransition(b.Status, target, role); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	entry := HistoryEntry{Status: target, ChangedBy: role, ChangedAt: now, Notes: notes}

	// Reopening a cancelled booking clears its cancellation record so the
	// record stays consistent with the status.
	updated, err := e.repo.UpdateStatus(ctx, b.ID, b.Version, target, entry, nil)
	if err != nil {
		if errors.Is(err, ErrStaleBooking) || errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, externalFailure("update status", err)
	}

	previous := b.Status
	if target == StatusCompleted {
		e.finalizeCompleted(ctx, updated)
	}

	if err := e.notifier.StatusChanged(ctx, updated, previous); err != nil {
		e.logger.Warn("status change notification failed",
			zap.String("booking_id", updated.ID.String()), zap.Error(err))
	}

	e.logger.Info("booking status changed",
		zap.String("booking_id", updated.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
		zap.String("actor_role", string(role)))

	return updated, nil
}

// CancelBooking cancels a booking, charging the time-tiered fee and
// refunding the remainder when the booking was paid.
func (e *Engine) CancelBooking(ctx context.Context, id uuid.UUID, role Role, reason string) (*Booking, error) {
	if !role.Valid() {
		return nil, invalidField("actor_role", "must be customer, vendor or admin")
	}

	b, err := e.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, externalFailure("load booking", err)
	}

	return e.cancel(ctx, b, role, reason)
}

func (e *Engine) cancel(ctx context.Context, b *Booking, role Role, reason string) (*Booking, error) {
	if err := checkTransition(b.Status, StatusCancelled, role); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	fee := CancellationFee(b, now)

	var refund Money
	if b.Payment.Status == PaymentPaid {
		refund = b.Pricing.Total - fee
	}

	cancellation := &CancellationInfo{
		CancelledBy:  role,
		CancelledAt:  now,
		Reason:       reason,
		FeeCharged:   fee,
		RefundAmount: refund,
	}
	entry := HistoryEntry{Status: StatusCancelled, ChangedBy: role, ChangedAt: now, Notes: reason}

	updated, err := e.repo.UpdateStatus(ctx, b.ID, b.Version, StatusCancelled, entry, cancellation)
	if err != nil {
		if errors.Is(err, ErrStaleBooking) || errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, externalFailure("update status", err)
	}

	// The cancellation is committed; a refund failure must not roll it back.
	if refund > 0 {
		if err := e.payments.IssueRefund(ctx, updated.ID, updated.Payment.Reference, refund); err != nil {
			e.logger.Warn("refund failed",
				zap.String("booking_id", updated.ID.String()),
				zap.String("amount", refund.String()),
				zap.Error(err))
		}
	}

	if err := e.notifier.StatusChanged(ctx, updated, b.Status); err != nil {
		e.logger.Warn("status change notification failed",
			zap.String("booking_id", updated.ID.String()), zap.Error(err))
	}

	e.logger.Info("booking cancelled",
		zap.String("booking_id", updated.ID.String()),
		zap.String("actor_role", string(role)),
		zap.String("fee", fee.String()),
		zap.String("refund", refund.String()))

	return updated, nil
}

// finalizeCompleted captures the payment and requests a review. Both are
// best-effort side effects of an already-committed transition.
func (e *Engine) finalizeCompleted(ctx context.Context, b *Booking) {
	if b.Payment.Reference != "" {
		if err := e.payments.CapturePayment(ctx, b.Payment.Reference); err != nil {
			e.logger.Warn("payment capture failed",
				zap.String("booking_id", b.ID.String()), zap.Error(err))
		}
	}
	if err := e.notifier.ReviewRequested(ctx, b); err != nil {
		e.logger.Warn("review request notification failed",
			zap.String("booking_id", b.ID.String()), zap.Error(err))
	}
}

// GetBooking returns the booking if the actor is the customer, the owning
// vendor, or an admin.
func (e *Engine) GetBooking(ctx context.Context, id uuid.UUID, role Role, actorID uuid.UUID) (*Booking, error) {
	b, err := e.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, externalFailure("load booking", err)
	}

	switch role {
	case RoleAdmin:
	case RoleCustomer:
		if b.CustomerID != actorID {
			return nil, ErrAccessDenied
		}
	case RoleVendor:
		if b.VendorID != actorID {
			return nil, ErrAccessDenied
		}
	default:
		return nil, ErrAccessDenied
	}

	return b, nil
}

func slotLockKey(vendorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s:%s", vendorID, date.Format("2006-01-02"))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
