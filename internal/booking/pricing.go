package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PricingConfig carries the injected pricing rates. Percentages are basis
// points so all arithmetic stays in integers.
type PricingConfig struct {
	TaxRateBps           int64
	ServiceFeeBps        int64
	FirstTimeDiscountBps int64
	FirstTimeDiscountCap Money
	EarlyBirdDiscountBps int64
	EarlyBirdMinNotice   time.Duration
	Currency             string
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		TaxRateBps:           800,
		ServiceFeeBps:        1000,
		FirstTimeDiscountBps: 2000,
		FirstTimeDiscountCap: 100_00,
		EarlyBirdDiscountBps: 1000,
		EarlyBirdMinNotice:   7 * 24 * time.Hour,
		Currency:             "USD",
	}
}

// LineItemRequest references a catalog service by ID; price, name and
// duration are snapshotted from the vendor's current catalog at pricing time.
type LineItemRequest struct {
	ServiceID uuid.UUID `json:"service_id"`
	Quantity  int       `json:"quantity"`
}

// PricingEngine computes a booking's price breakdown. Price is pure given a
// fixed catalog snapshot and now.
type PricingEngine struct {
	cfg PricingConfig
}

func NewPricingEngine(cfg PricingConfig) *PricingEngine {
	return &PricingEngine{cfg: cfg}
}

// Price snapshots the requested services from the vendor catalog and computes
// the breakdown. It fails with ErrInvalidLineItem when a referenced service
// is unknown or inactive.
//
// Both discounts are computed off the original subtotal (not compounding),
// each capped independently, then summed and capped at the subtotal.
func (p *PricingEngine) Price(av *VendorAvailability, items []LineItemRequest, serviceDate time.Time, now time.Time, firstTimeCustomer bool) ([]LineItem, PricingBreakdown, error) {
	snapshot := make([]LineItem, 0, len(items))
	var subtotal Money

	for _, item := range items {
		svc, ok := av.ServiceByID(item.ServiceID)
		if !ok {
			return nil, PricingBreakdown{}, fmt.Errorf("%w: service %s not in vendor catalog", ErrInvalidLineItem, item.ServiceID)
		}
		if !svc.Active {
			return nil, PricingBreakdown{}, fmt.Errorf("%w: service %s is inactive", ErrInvalidLineItem, item.ServiceID)
		}
		snapshot = append(snapshot, LineItem{
			ServiceID:       svc.ID,
			Name:            svc.Name,
			UnitPrice:       svc.Price,
			Quantity:        item.Quantity,
			DurationMinutes: svc.DurationMinutes,
		})
		subtotal += svc.Price * Money(item.Quantity)
	}

	var discount Money
	if firstTimeCustomer {
		discount += minMoney(MulRate(subtotal, p.cfg.FirstTimeDiscountBps), p.cfg.FirstTimeDiscountCap)
	}
	if serviceDate.Sub(now) >= p.cfg.EarlyBirdMinNotice {
		discount += MulRate(subtotal, p.cfg.EarlyBirdDiscountBps)
	}
	discount = minMoney(discount, subtotal)

	base := subtotal - discount
	tax := MulRate(base, p.cfg.TaxRateBps)
	fee := MulRate(base, p.cfg.ServiceFeeBps)

	breakdown := PricingBreakdown{
		Subtotal:   subtotal,
		Discount:   discount,
		Tax:        tax,
		ServiceFee: fee,
		Total:      base + tax + fee,
		Currency:   p.cfg.Currency,
	}
	return snapshot, breakdown, nil
}
