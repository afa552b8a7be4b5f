package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory collaborators for engine tests. The repository mirrors the
// Postgres implementation's contract: atomic overlap rejection on reserve and
// an optimistic version check on status updates.

type fakeRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking

	// beforeUpdate, when set, runs under the lock just before the version
	// check. Tests use it to lose an optimistic race on purpose.
	beforeUpdate func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: make(map[uuid.UUID]*Booking)}
}

func cloneBooking(b *Booking) *Booking {
	cp := *b
	cp.LineItems = append([]LineItem(nil), b.LineItems...)
	cp.History = append([]HistoryEntry(nil), b.History...)
	if b.Cancellation != nil {
		c := *b.Cancellation
		cp.Cancellation = &c
	}
	return &cp
}

func (r *fakeRepo) put(b *Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = cloneBooking(b)
}

func (r *fakeRepo) ReserveSlot(_ context.Context, b *Booking) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.bookings {
		if other.VendorID == b.VendorID &&
			other.ServiceDate.Equal(b.ServiceDate) &&
			other.IsActive() &&
			other.Slot.Overlaps(b.Slot) {
			return nil, ErrSlotConflict
		}
	}

	stored := cloneBooking(b)
	stored.Version = 1
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.bookings[stored.ID] = stored
	return cloneBooking(stored), nil
}

func (r *fakeRepo) Get(_ context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, expectedVersion int64, newStatus Status, entry HistoryEntry, cancellation *CancellationInfo) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if b.Version != expectedVersion {
		return nil, ErrStaleBooking
	}

	b.Status = newStatus
	b.History = append(b.History, entry)
	b.Cancellation = nil
	if cancellation != nil {
		c := *cancellation
		b.Cancellation = &c
	}
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	return cloneBooking(b), nil
}

func (r *fakeRepo) SetPayment(_ context.Context, id uuid.UUID, payment PaymentInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Payment = payment
	return nil
}

func (r *fakeRepo) ListActiveByVendorAndDate(_ context.Context, vendorID uuid.UUID, date time.Time) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.bookings {
		if b.VendorID == vendorID && b.ServiceDate.Equal(date) && b.IsActive() {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r *fakeRepo) HasBookingsByCustomer(_ context.Context, customerID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.CustomerID == customerID {
			return true, nil
		}
	}
	return false, nil
}

type fakeCatalog struct {
	vendors map[uuid.UUID]*VendorAvailability
}

func (c *fakeCatalog) GetAvailability(_ context.Context, vendorID uuid.UUID) (*VendorAvailability, error) {
	av, ok := c.vendors[vendorID]
	if !ok {
		return nil, ErrVendorNotFound
	}
	return av, nil
}

type chargeCall struct {
	BookingID uuid.UUID
	Amount    Money
}

type refundCall struct {
	BookingID uuid.UUID
	Reference string
	Amount    Money
}

type fakePayments struct {
	mu        sync.Mutex
	charges   []chargeCall
	captures  []string
	refunds   []refundCall
	chargeErr error
	refundErr error
}

func (p *fakePayments) CreateCharge(_ context.Context, bookingID uuid.UUID, amount Money, _, _ string) (PaymentHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chargeErr != nil {
		return PaymentHandle{}, p.chargeErr
	}
	p.charges = append(p.charges, chargeCall{BookingID: bookingID, Amount: amount})
	return PaymentHandle{
		Reference: fmt.Sprintf("pi_test_%d", len(p.charges)),
		Status:    PaymentPending,
	}, nil
}

func (p *fakePayments) CapturePayment(_ context.Context, reference string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captures = append(p.captures, reference)
	return nil
}

func (p *fakePayments) IssueRefund(_ context.Context, bookingID uuid.UUID, reference string, amount Money) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refunds = append(p.refunds, refundCall{BookingID: bookingID, Reference: reference, Amount: amount})
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	created   []uuid.UUID
	changed   []uuid.UUID
	reviews   []uuid.UUID
	failAll   bool
}

func (n *fakeNotifier) BookingCreated(_ context.Context, b *Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll {
		return fmt.Errorf("notification transport down")
	}
	n.created = append(n.created, b.ID)
	return nil
}

func (n *fakeNotifier) StatusChanged(_ context.Context, b *Booking, _ Status) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll {
		return fmt.Errorf("notification transport down")
	}
	n.changed = append(n.changed, b.ID)
	return nil
}

func (n *fakeNotifier) ReviewRequested(_ context.Context, b *Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAll {
		return fmt.Errorf("notification transport down")
	}
	n.reviews = append(n.reviews, b.ID)
	return nil
}

// fakeLocker serializes callers per key, matching the Redis locker's effect.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

// brokenLocker fails every acquisition with an infrastructure error.
type brokenLocker struct {
	err error
}

func (l *brokenLocker) WithLock(context.Context, string, func(ctx context.Context) error) error {
	return l.err
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }
