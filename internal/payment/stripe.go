// Package payment implements the engine's PaymentPort against Stripe.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"
	"go.uber.org/zap"

	"github.com/localmart/booking-engine/internal/booking"
)

type StripeGateway struct {
	logger *zap.Logger
}

// NewStripeGateway configures the package-global Stripe key and returns the
// gateway. Amounts are already in minor units, matching Stripe's contract.
func NewStripeGateway(apiKey string, logger *zap.Logger) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{logger: logger}
}

func (g *StripeGateway) CreateCharge(ctx context.Context, bookingID uuid.UUID, amount booking.Money, currency, method string) (booking.PaymentHandle, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(amount)),
		Currency:      stripe.String(strings.ToLower(currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Metadata: map[string]string{
			"booking_id":     bookingID.String(),
			"payment_method": method,
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return booking.PaymentHandle{}, fmt.Errorf("create payment intent: %w", err)
	}

	g.logger.Debug("payment intent created",
		zap.String("booking_id", bookingID.String()),
		zap.String("payment_intent", pi.ID))

	return booking.PaymentHandle{
		Reference: pi.ID,
		Status:    booking.PaymentPending,
	}, nil
}

func (g *StripeGateway) CapturePayment(ctx context.Context, reference string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if _, err := paymentintent.Capture(reference, params); err != nil {
		return fmt.Errorf("capture payment intent %s: %w", reference, err)
	}
	return nil
}

func (g *StripeGateway) IssueRefund(ctx context.Context, bookingID uuid.UUID, reference string, amount booking.Money) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
		Amount:        stripe.Int64(int64(amount)),
		Metadata: map[string]string{
			"booking_id": bookingID.String(),
		},
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("refund payment intent %s: %w", reference, err)
	}
	return nil
}

// LogGateway is a stand-in used when no Stripe key is configured (local
// development). It records intent in logs and reports success.
type LogGateway struct {
	logger *zap.Logger
}

func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) CreateCharge(_ context.Context, bookingID uuid.UUID, amount booking.Money, currency, method string) (booking.PaymentHandle, error) {
	g.logger.Info("charge (log only)",
		zap.String("booking_id", bookingID.String()),
		zap.String("amount", amount.String()),
		zap.String("currency", currency),
		zap.String("method", method))
	return booking.PaymentHandle{
		Reference: "local-" + uuid.NewString(),
		Status:    booking.PaymentPending,
	}, nil
}

func (g *LogGateway) CapturePayment(_ context.Context, reference string) error {
	g.logger.Info("capture (log only)", zap.String("reference", reference))
	return nil
}

func (g *LogGateway) IssueRefund(_ context.Context, bookingID uuid.UUID, reference string, amount booking.Money) error {
	g.logger.Info("refund (log only)",
		zap.String("booking_id", bookingID.String()),
		zap.String("reference", reference),
		zap.String("amount", amount.String()))
	return nil
}
