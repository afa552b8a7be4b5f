package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	redisclient "github.com/localmart/booking-engine/internal/redis"
)

type engineFixture struct {
	engine   *Engine
	repo     *fakeRepo
	catalog  *fakeCatalog
	payments *fakePayments
	notifier *fakeNotifier
	clock    *fixedClock

	vendorID uuid.UUID
	service  VendorService
}

// newFixture wires an engine around in-memory collaborators. The vendor is
// open every day 09:00-17:00 with one 65.00 service and auto-confirm on.
func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	svc := catalogService("Deep Cleaning", 65_00, 60, true)
	av := openAllWeek(t, "09:00", "17:00", svc)
	av.AutoConfirm = true

	f := &engineFixture{
		repo:     newFakeRepo(),
		catalog:  &fakeCatalog{vendors: map[uuid.UUID]*VendorAvailability{av.VendorID: av}},
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
		clock:    &fixedClock{now: time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)},
		vendorID: av.VendorID,
		service:  svc,
	}
	f.engine = NewEngine(f.repo, f.catalog, f.payments, f.notifier,
		NewPricingEngine(DefaultPricingConfig()), &fakeLocker{}, f.clock, zap.NewNop())
	return f
}

func (f *engineFixture) availability() *VendorAvailability {
	return f.catalog.vendors[f.vendorID]
}

func (f *engineFixture) createRequest(t *testing.T) CreateBookingRequest {
	t.Helper()
	return CreateBookingRequest{
		CustomerID:    uuid.New(),
		VendorID:      f.vendorID,
		Items:         []LineItemRequest{{ServiceID: f.service.ID, Quantity: 1}},
		ServiceDate:   dateUTC(2026, time.September, 11),
		Slot:          slotOf(t, "10:00", "11:00"),
		PaymentMethod: "card",
	}
}

func TestCreateBookingFirstTimeCustomer(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t)

	b, err := f.engine.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, int64(1), b.Version)

	// First-time 20% plus early-bird 10%, both off the 65.00 subtotal.
	assert.Equal(t, Money(65_00), b.Pricing.Subtotal)
	assert.Equal(t, Money(19_50), b.Pricing.Discount)
	assert.Equal(t, Money(3_64), b.Pricing.Tax)
	assert.Equal(t, Money(4_55), b.Pricing.ServiceFee)
	assert.Equal(t, Money(53_69), b.Pricing.Total)

	require.Len(t, b.LineItems, 1)
	assert.Equal(t, f.service.ID, b.LineItems[0].ServiceID)
	assert.Equal(t, Money(65_00), b.LineItems[0].UnitPrice)

	require.Len(t, b.History, 1)
	assert.Equal(t, StatusConfirmed, b.History[0].Status)
	assert.Equal(t, RoleCustomer, b.History[0].ChangedBy)

	// Charged and notified once each.
	require.Len(t, f.payments.charges, 1)
	assert.Equal(t, Money(53_69), f.payments.charges[0].Amount)
	assert.Equal(t, PaymentPending, b.Payment.Status)
	assert.NotEmpty(t, b.Payment.Reference)
	assert.Equal(t, []uuid.UUID{b.ID}, f.notifier.created)
}

func TestCreateBookingPendingApprovalWhenNotAutoConfirm(t *testing.T) {
	f := newFixture(t)
	f.availability().AutoConfirm = false

	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, b.Status)
}

func TestCreateBookingReturningCustomerSkipsFirstTimeDiscount(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t)

	f.repo.put(&Booking{
		ID:          uuid.New(),
		CustomerID:  req.CustomerID,
		VendorID:    uuid.New(),
		ServiceDate: dateUTC(2026, time.August, 1),
		Slot:        slotOf(t, "09:00", "10:00"),
		Status:      StatusCompleted,
		Version:     1,
	})

	b, err := f.engine.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	// Early-bird only: 10% of 65.00.
	assert.Equal(t, Money(6_50), b.Pricing.Discount)
}

func TestCreateBookingSlotUnavailable(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t)

	taken := f.createRequest(t)
	taken.Slot = slotOf(t, "10:30", "11:30")
	_, err := f.engine.CreateBooking(context.Background(), taken)
	require.NoError(t, err)

	_, err = f.engine.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateBookingOutsideOperatingHours(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t)
	req.Slot = slotOf(t, "18:00", "19:00")

	_, err := f.engine.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateBookingClosedWeekday(t *testing.T) {
	f := newFixture(t)
	f.availability().Hours[time.Sunday] = DayHours{}
	req := f.createRequest(t)
	req.ServiceDate = dateUTC(2026, time.September, 6) // a Sunday

	_, err := f.engine.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateBookingVendorNotFound(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t)
	req.VendorID = uuid.New()

	_, err := f.engine.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, ErrVendorNotFound)
}

func TestCreateBookingInvalidLineItem(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t)
	req.Items = []LineItemRequest{{ServiceID: uuid.New(), Quantity: 1}}

	_, err := f.engine.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateBookingRequest)
	}{
		{"missing customer", func(r *CreateBookingRequest) { r.CustomerID = uuid.Nil }},
		{"missing vendor", func(r *CreateBookingRequest) { r.VendorID = uuid.Nil }},
		{"no line items", func(r *CreateBookingRequest) { r.Items = nil }},
		{"zero quantity", func(r *CreateBookingRequest) { r.Items[0].Quantity = 0 }},
		{"inverted slot", func(r *CreateBookingRequest) { r.Slot = TimeSlot{Start: 660, End: 600} }},
		{"past date", func(r *CreateBookingRequest) { r.ServiceDate = dateUTC(2026, time.August, 20) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.createRequest(t)
			tt.mutate(&req)
			_, err := f.engine.CreateBooking(context.Background(), req)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateBookingConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)

	base := f.createRequest(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := base
			req.CustomerID = uuid.New()
			_, err := f.engine.CreateBooking(context.Background(), req)
			results[i] = err
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrSlotUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)

	stored, err := f.repo.ListActiveByVendorAndDate(context.Background(), f.vendorID, dateUTC(2026, time.September, 11))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreateBookingLockContention(t *testing.T) {
	f := newFixture(t)
	f.engine.locker = &brokenLocker{err: redisclient.ErrLockNotAcquired}

	_, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreateBookingLockInfraFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.engine.locker = &brokenLocker{err: fmt.Errorf("redis: connection refused")}

	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
}

func TestCreateBookingChargeFailureLeavesUnpaid(t *testing.T) {
	f := newFixture(t)
	f.payments.chargeErr = fmt.Errorf("gateway timeout")

	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)
	assert.Equal(t, PaymentUnpaid, b.Payment.Status)
	assert.Empty(t, b.Payment.Reference)
}

func TestCreateBookingNotificationFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.failAll = true

	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)

	stored, err := f.repo.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestTransitionLifecycleToCompleted(t *testing.T) {
	f := newFixture(t)
	f.availability().AutoConfirm = false

	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)
	require.Equal(t, StatusPendingApproval, b.Status)

	b, err = f.engine.TransitionStatus(context.Background(), b.ID, StatusConfirmed, RoleVendor, "see you then")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, int64(2), b.Version)

	b, err = f.engine.TransitionStatus(context.Background(), b.ID, StatusInProgress, RoleVendor, "")
	require.NoError(t, err)

	// A customer cannot complete the work.
	_, err = f.engine.TransitionStatus(context.Background(), b.ID, StatusCompleted, RoleCustomer, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	b, err = f.engine.TransitionStatus(context.Background(), b.ID, StatusCompleted, RoleVendor, "all done")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, b.Status)
	require.Len(t, b.History, 4)
	assert.Equal(t, "all done", b.History[3].Notes)

	// Completion captures the pending charge and requests a review.
	assert.Equal(t, []string{b.Payment.Reference}, f.payments.captures)
	assert.Equal(t, []uuid.UUID{b.ID}, f.notifier.reviews)
	assert.Len(t, f.notifier.changed, 3)
}

func TestTransitionUnknownBooking(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.TransitionStatus(context.Background(), uuid.New(), StatusConfirmed, RoleVendor, "")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestTransitionStaleVersion(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)

	// Another writer bumps the version between the engine's read and write.
	fired := false
	f.repo.beforeUpdate = func() {
		if !fired {
			fired = true
			f.repo.bookings[b.ID].Version++
		}
	}

	_, err = f.engine.TransitionStatus(context.Background(), b.ID, StatusInProgress, RoleVendor, "")
	assert.ErrorIs(t, err, ErrStaleBooking)
}

func TestCancelPaidBookingLastMinute(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)

	b.Pricing.Total = 200_00
	b.Payment = PaymentInfo{Method: "card", Status: PaymentPaid, Reference: "pi_paid", PaidAmount: 200_00}
	f.repo.put(b)

	// One hour before the 10:00 slot: last-minute tier, 50% fee.
	f.clock.now = time.Date(2026, time.September, 11, 9, 0, 0, 0, time.UTC)

	cancelled, err := f.engine.CancelBooking(context.Background(), b.ID, RoleCustomer, "emergency")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	assert.Equal(t, RoleCustomer, cancelled.Cancellation.CancelledBy)
	assert.Equal(t, Money(100_00), cancelled.Cancellation.FeeCharged)
	assert.Equal(t, Money(100_00), cancelled.Cancellation.RefundAmount)
	assert.Equal(t, "emergency", cancelled.Cancellation.Reason)

	require.Len(t, f.payments.refunds, 1)
	assert.Equal(t, refundCall{BookingID: b.ID, Reference: "pi_paid", Amount: 100_00}, f.payments.refunds[0])
}

func TestCancelUnpaidBookingWithFreeNotice(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)
	b.Payment = PaymentInfo{Method: "card", Status: PaymentUnpaid}
	f.repo.put(b)

	cancelled, err := f.engine.CancelBooking(context.Background(), b.ID, RoleCustomer, "")
	require.NoError(t, err)

	require.NotNil(t, cancelled.Cancellation)
	assert.Equal(t, Money(0), cancelled.Cancellation.FeeCharged)
	assert.Equal(t, Money(0), cancelled.Cancellation.RefundAmount)
	assert.Empty(t, f.payments.refunds)
}

func TestCancelCompletedBookingByCustomer(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)
	b.Status = StatusCompleted
	f.repo.put(b)

	_, err = f.engine.CancelBooking(context.Background(), b.ID, RoleCustomer, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdminOverrides(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.CreateBooking(context.Background(), f.createRequest(t))
	require.NoError(t, err)
	b.Status = StatusCompleted
	f.repo.put(b)

	cancelled, err := f.engine.TransitionStatus(context.Background(), b.ID, StatusCancelled, RoleAdmin, "disputed")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)

	// Reopening clears the cancellation record.
	reopened, err := f.engine.TransitionStatus(context.Background(), cancelled.ID, StatusConfirmed, RoleAdmin, "dispute resolved")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, reopened.Status)
	assert.Nil(t, reopened.Cancellation)
}

func TestGetBookingAccess(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t)
	b, err := f.engine.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	ctx := context.Background()

	got, err := f.engine.GetBooking(ctx, b.ID, RoleCustomer, req.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.engine.GetBooking(ctx, b.ID, RoleCustomer, uuid.New())
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.engine.GetBooking(ctx, b.ID, RoleVendor, f.vendorID)
	require.NoError(t, err)

	_, err = f.engine.GetBooking(ctx, b.ID, RoleVendor, uuid.New())
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.engine.GetBooking(ctx, b.ID, RoleAdmin, uuid.New())
	require.NoError(t, err)

	_, err = f.engine.GetBooking(ctx, uuid.New(), RoleAdmin, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
