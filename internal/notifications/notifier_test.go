package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
	"tourbook/pkg/kafka"
	"tourbook/pkg/logger"
	"tourbook/pkg/middleware"
	"tourbook/pkg/model"
)

type mockPublisher struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	return m.publishFunc(ctx, msg)
}

func testBooking() *model.Booking {
	return &model.Booking{
		ID:            "65a1f0c2e4b0a1b2c3d4e5f6",
		CustomerRef:   "cust-1",
		TourRef:       "tour-1",
		BookingDate:   time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
		Status:        model.BookingConfirmed,
		PaymentStatus: model.PaymentPending,
		TotalAmount:   400,
	}
}

func TestKafkaNotifier_PublishesConfirmedEvent(t *testing.T) {
	published := make(chan kafka.Message, 1)
	publisher := &mockPublisher{publishFunc: func(ctx context.Context, msg kafka.Message) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected publish context to carry a deadline")
		}
		published <- msg
		return nil
	}}

	notifier := NewKafkaNotifier(publisher, time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(middleware.WithRequestID(context.Background(), "req-42"))
	notifier.BookingConfirmed(ctx, testBooking())
	cancel()

	select {
	case msg := <-published:
		if msg.Key != "65a1f0c2e4b0a1b2c3d4e5f6" {
			t.Errorf("Key = %q, want booking id", msg.Key)
		}
		if msg.GetEventType() != EventBookingConfirmed {
			t.Errorf("event type = %q", msg.GetEventType())
		}
		if msg.GetCorrelationID() != "req-42" {
			t.Errorf("correlation id = %q, want req-42", msg.GetCorrelationID())
		}
		var event BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			t.Fatalf("DecodeValue() error = %v", err)
		}
		if event.BookingDate != "2024-12-20" || event.TotalAmount != 400 {
			t.Errorf("unexpected event payload: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestKafkaNotifier_FailureIsSwallowed(t *testing.T) {
	done := make(chan struct{})
	publisher := &mockPublisher{publishFunc: func(ctx context.Context, msg kafka.Message) error {
		defer close(done)
		return errors.New("broker down")
	}}

	notifier := NewKafkaNotifier(publisher, time.Second, logger.Discard())
	notifier.BookingCancelled(context.Background(), testBooking())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was never attempted")
	}
}
