// Package notifications tells the rest of the platform about booking lifecycle
// changes. Delivery is best effort: callers never see a notification failure.
package notifications

import (
	"context"
	"time"

	"tourbook/pkg/kafka"
	"tourbook/pkg/logger"
	"tourbook/pkg/middleware"
	"tourbook/pkg/model"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"

	eventSource        = "tourbook"
	eventSchemaVersion = "1"
)

type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking)
}

// Publisher is the subset of kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// BookingEvent is the payload of every booking lifecycle message.
type BookingEvent struct {
	BookingID     string    `json:"booking_id"`
	CustomerRef   string    `json:"customer_ref"`
	TourRef       string    `json:"tour_ref"`
	BookingDate   string    `json:"booking_date"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   float64   `json:"total_amount"`
	RefundAmount  float64   `json:"refund_amount,omitempty"`
	Reason        string    `json:"cancellation_reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewBookingEvent(booking *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:     booking.ID,
		CustomerRef:   booking.CustomerRef,
		TourRef:       booking.TourRef,
		BookingDate:   booking.BookingDate.Format(time.DateOnly),
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		TotalAmount:   booking.TotalAmount,
		RefundAmount:  booking.RefundAmount,
		Reason:        booking.CancellationReason,
		OccurredAt:    at.UTC(),
	}
}

type kafkaNotifier struct {
	publisher Publisher
	timeout   time.Duration
	log       *logger.Logger
}

// NewKafkaNotifier publishes each event on its own goroutine, bounded by timeout.
func NewKafkaNotifier(publisher Publisher, timeout time.Duration, log *logger.Logger) Notifier {
	if log == nil {
		log = logger.Discard()
	}
	return &kafkaNotifier{publisher: publisher, timeout: timeout, log: log}
}

func (n *kafkaNotifier) BookingConfirmed(ctx context.Context, booking *model.Booking) {
	n.send(ctx, EventBookingConfirmed, booking)
}

func (n *kafkaNotifier) BookingCancelled(ctx context.Context, booking *model.Booking) {
	n.send(ctx, EventBookingCancelled, booking)
}

func (n *kafkaNotifier) send(ctx context.Context, eventType string, booking *model.Booking) {
	if booking == nil {
		return
	}

	msg, err := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(NewBookingEvent(booking, time.Now())).
		WithEventType(eventType).
		WithSource(eventSource).
		WithSchemaVersion(eventSchemaVersion).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		Build()
	if err != nil {
		n.log.Error("Failed to build booking event", "event_type", eventType, "booking_id", booking.ID, "error", err)
		return
	}

	// The request context is about to end; the publish outlives it.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if err := n.publisher.Publish(pubCtx, msg); err != nil {
			n.log.Warn("Failed to publish booking event",
				"event_type", eventType,
				"booking_id", booking.ID,
				"event_id", msg.GetEventID(),
				"error", err,
			)
		}
	}()
}

type logNotifier struct {
	log *logger.Logger
}

// NewLogNotifier only records events in the service log. Used when Kafka is disabled.
func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) BookingConfirmed(_ context.Context, booking *model.Booking) {
	n.log.Info("Booking confirmed", "booking_id", booking.ID, "customer_ref", booking.CustomerRef)
}

func (n *logNotifier) BookingCancelled(_ context.Context, booking *model.Booking) {
	n.log.Info("Booking cancelled",
		"booking_id", booking.ID,
		"customer_ref", booking.CustomerRef,
		"refund_amount", booking.RefundAmount,
	)
}
