package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/localmart/booking-engine/internal/booking"
)

type LineItemRequest struct {
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

type CreateBookingRequest struct {
	CustomerID    string            `json:"customer_id"`
	VendorID      string            `json:"vendor_id"`
	LineItems     []LineItemRequest `json:"line_items"`
	ServiceDate   string            `json:"service_date"` // YYYY-MM-DD
	StartTime     string            `json:"start_time"`   // HH:MM
	EndTime       string            `json:"end_time"`     // HH:MM
	PaymentMethod string            `json:"payment_method"`
}

type TransitionRequest struct {
	Target string `json:"target"`
	Notes  string `json:"notes,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type LineItemResponse struct {
	ServiceID       uuid.UUID `json:"service_id"`
	Name            string    `json:"name"`
	UnitPrice       string    `json:"unit_price"`
	Quantity        int       `json:"quantity"`
	DurationMinutes int       `json:"duration_minutes"`
}

type PricingResponse struct {
	Subtotal   string `json:"subtotal"`
	Discount   string `json:"discount"`
	Tax        string `json:"tax"`
	ServiceFee string `json:"service_fee"`
	Total      string `json:"total"`
	Currency   string `json:"currency"`
}

type PaymentResponse struct {
	Method     string `json:"method"`
	Status     string `json:"status"`
	Reference  string `json:"reference,omitempty"`
	PaidAmount string `json:"paid_amount"`
}

type CancellationResponse struct {
	CancelledBy  string    `json:"cancelled_by"`
	CancelledAt  time.Time `json:"cancelled_at"`
	Reason       string    `json:"reason,omitempty"`
	FeeCharged   string    `json:"fee_charged"`
	RefundAmount string    `json:"refund_amount"`
}

type HistoryEntryResponse struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Notes     string    `json:"notes,omitempty"`
}

type BookingResponse struct {
	ID           uuid.UUID              `json:"id"`
	CustomerID   uuid.UUID              `json:"customer_id"`
	VendorID     uuid.UUID              `json:"vendor_id"`
	LineItems    []LineItemResponse     `json:"line_items"`
	ServiceDate  string                 `json:"service_date"`
	StartTime    string                 `json:"start_time"`
	EndTime      string                 `json:"end_time"`
	Status       string                 `json:"status"`
	Pricing      PricingResponse        `json:"pricing"`
	Payment      PaymentResponse        `json:"payment"`
	Cancellation *CancellationResponse  `json:"cancellation,omitempty"`
	History      []HistoryEntryResponse `json:"history"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	items := make([]LineItemResponse, 0, len(b.LineItems))
	for _, item := range b.LineItems {
		items = append(items, LineItemResponse{
			ServiceID:       item.ServiceID,
			Name:            item.Name,
			UnitPrice:       item.UnitPrice.String(),
			Quantity:        item.Quantity,
			DurationMinutes: item.DurationMinutes,
		})
	}

	history := make([]HistoryEntryResponse, 0, len(b.History))
	for _, entry := range b.History {
		history = append(history, HistoryEntryResponse{
			Status:    string(entry.Status),
			ChangedBy: string(entry.ChangedBy),
			ChangedAt: entry.ChangedAt,
			Notes:     entry.Notes,
		})
	}

	resp := BookingResponse{
		ID:          b.ID,
		CustomerID:  b.CustomerID,
		VendorID:    b.VendorID,
		LineItems:   items,
		ServiceDate: b.ServiceDate.Format("2006-01-02"),
		StartTime:   b.Slot.Start.String(),
		EndTime:     b.Slot.End.String(),
		Status:      string(b.Status),
		Pricing: PricingResponse{
			Subtotal:   b.Pricing.Subtotal.String(),
			Discount:   b.Pricing.Discount.String(),
			Tax:        b.Pricing.Tax.String(),
			ServiceFee: b.Pricing.ServiceFee.String(),
			Total:      b.Pricing.Total.String(),
			Currency:   b.Pricing.Currency,
		},
		Payment: PaymentResponse{
			Method:     b.Payment.Method,
			Status:     string(b.Payment.Status),
			Reference:  b.Payment.Reference,
			PaidAmount: b.Payment.PaidAmount.String(),
		},
		History:   history,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}

	if b.Cancellation != nil {
		resp.Cancellation = &CancellationResponse{
			CancelledBy:  string(b.Cancellation.CancelledBy),
			CancelledAt:  b.Cancellation.CancelledAt,
			Reason:       b.Cancellation.Reason,
			FeeCharged:   b.Cancellation.FeeCharged.String(),
			RefundAmount: b.Cancellation.RefundAmount.String(),
		}
	}

	return resp
}
