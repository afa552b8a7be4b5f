package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusConfirmed       Status = "confirmed"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// ActiveStatuses are the statuses under which a booking occupies its slot.
var ActiveStatuses = []Status{
	StatusPendingApproval,
	StatusConfirmed,
	StatusInProgress,
}

func (s Status) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Role is the capacity in which a caller acts on a booking, distinct from
// its authenticated identity.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor || r == RoleAdmin
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// LineItem is a priced, quantified reference to one vendor service, frozen
// into the booking at creation time. A later catalog change never alters it.
type LineItem struct {
	ServiceID       uuid.UUID `json:"service_id"`
	Name            string    `json:"name"`
	UnitPrice       Money     `json:"unit_price"`
	Quantity        int       `json:"quantity"`
	DurationMinutes int       `json:"duration_minutes"`
}

type PricingBreakdown struct {
	Subtotal   Money  `json:"subtotal"`
	Discount   Money  `json:"discount"`
	Tax        Money  `json:"tax"`
	ServiceFee Money  `json:"service_fee"`
	Total      Money  `json:"total"`
	Currency   string `json:"currency"`
}

type PaymentInfo struct {
	Method     string        `json:"method"`
	Status     PaymentStatus `json:"status"`
	Reference  string        `json:"reference,omitempty"`
	PaidAmount Money         `json:"paid_amount"`
}

// CancellationInfo is present if and only if the booking is cancelled.
type CancellationInfo struct {
	CancelledBy  Role      `json:"cancelled_by"`
	CancelledAt  time.Time `json:"cancelled_at"`
	Reason       string    `json:"reason,omitempty"`
	FeeCharged   Money     `json:"fee_charged"`
	RefundAmount Money     `json:"refund_amount"`
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedBy Role      `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Notes     string    `json:"notes,omitempty"`
}

type Booking struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	VendorID     uuid.UUID
	LineItems    []LineItem
	ServiceDate  time.Time // calendar date, midnight UTC
	Slot         TimeSlot
	Status       Status
	Pricing      PricingBreakdown
	Payment      PaymentInfo
	Cancellation *CancellationInfo
	History      []HistoryEntry
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (b *Booking) IsActive() bool {
	return b.Status.IsActive()
}

// ServiceStart is the instant the booked service begins.
func (b *Booking) ServiceStart() time.Time {
	return b.Slot.Start.OnDate(b.ServiceDate)
}

// VendorService is one entry of a vendor's service catalog.
type VendorService struct {
	ID              uuid.UUID
	Name            string
	Price           Money
	DurationMinutes int
	Active          bool
}

// DayHours are a vendor's operating hours for one weekday.
type DayHours struct {
	Open   TimeOfDay
	Close  TimeOfDay
	IsOpen bool
}

// VendorAvailability is a point-in-time snapshot of a vendor's operating
// hours, catalog and booking policy. It is owned by the vendor-management
// subsystem; the engine only reads it.
type VendorAvailability struct {
	VendorID    uuid.UUID
	Hours       [7]DayHours // indexed by time.Weekday
	Services    []VendorService
	AutoConfirm bool
}

func (a *VendorAvailability) HoursOn(day time.Weekday) DayHours {
	return a.Hours[day]
}

func (a *VendorAvailability) ServiceByID(id uuid.UUID) (VendorService, bool) {
	for _, svc := range a.Services {
		if svc.ID == id {
			return svc, true
		}
	}
	return VendorService{}, false
}
