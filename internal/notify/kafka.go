// Package notify implements the engine's NotificationPort. Downstream
// consumers (email, SMS, marketing sync) subscribe to the booking event
// topic; delivery to them is not this service's concern.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/localmart/booking-engine/internal/booking"
)

const (
	EventBookingCreated  = "booking.created"
	EventStatusChanged   = "booking.status_changed"
	EventReviewRequested = "booking.review_requested"
)

type event struct {
	Type           string         `json:"type"`
	BookingID      string         `json:"booking_id"`
	CustomerID     string         `json:"customer_id"`
	VendorID       string         `json:"vendor_id"`
	Status         booking.Status `json:"status"`
	PreviousStatus booking.Status `json:"previous_status,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

type KafkaNotifier struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaNotifier{writer: writer, logger: logger}
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func (n *KafkaNotifier) BookingCreated(ctx context.Context, b *booking.Booking) error {
	return n.publish(ctx, event{
		Type:       EventBookingCreated,
		BookingID:  b.ID.String(),
		CustomerID: b.CustomerID.String(),
		VendorID:   b.VendorID.String(),
		Status:     b.Status,
		OccurredAt: b.CreatedAt,
	})
}

func (n *KafkaNotifier) StatusChanged(ctx context.Context, b *booking.Booking, previous booking.Status) error {
	return n.publish(ctx, event{
		Type:           EventStatusChanged,
		BookingID:      b.ID.String(),
		CustomerID:     b.CustomerID.String(),
		VendorID:       b.VendorID.String(),
		Status:         b.Status,
		PreviousStatus: previous,
		OccurredAt:     b.UpdatedAt,
	})
}

func (n *KafkaNotifier) ReviewRequested(ctx context.Context, b *booking.Booking) error {
	return n.publish(ctx, event{
		Type:       EventReviewRequested,
		BookingID:  b.ID.String(),
		CustomerID: b.CustomerID.String(),
		VendorID:   b.VendorID.String(),
		Status:     b.Status,
		OccurredAt: b.UpdatedAt,
	})
}

func (n *KafkaNotifier) publish(ctx context.Context, ev event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.BookingID),
		Value: payload,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}

	n.logger.Debug("booking event published",
		zap.String("type", ev.Type),
		zap.String("booking_id", ev.BookingID))
	return nil
}

// LogNotifier is used when no Kafka brokers are configured (local
// development); events go to the log only.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) BookingCreated(_ context.Context, b *booking.Booking) error {
	n.logger.Info("event (log only)", zap.String("type", EventBookingCreated), zap.String("booking_id", b.ID.String()))
	return nil
}

func (n *LogNotifier) StatusChanged(_ context.Context, b *booking.Booking, previous booking.Status) error {
	n.logger.Info("event (log only)",
		zap.String("type", EventStatusChanged),
		zap.String("booking_id", b.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(b.Status)))
	return nil
}

func (n *LogNotifier) ReviewRequested(_ context.Context, b *booking.Booking) error {
	n.logger.Info("event (log only)", zap.String("type", EventReviewRequested), zap.String("booking_id", b.ID.String()))
	return nil
}
