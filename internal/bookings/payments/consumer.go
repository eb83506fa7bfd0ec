// Package payments applies payment confirmations published by the payment
// gateway to bookings.
package payments

import (
	"context"
	"fmt"
	"tourbook/pkg/kafka"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	apperrors "tourbook/pkg/errors"
)

const EventPaymentConfirmed = "payment.confirmed"

// Confirmation is the payload of a payment confirmation message.
type Confirmation struct {
	BookingID     string `json:"booking_id"`
	PaymentRef    string `json:"payment_ref"`
	PaymentMethod string `json:"payment_method"`
}

// Marker records a payment on a booking. The booking service satisfies it.
type Marker interface {
	MarkPaid(ctx context.Context, id, paymentRef, method string) (*model.Booking, error)
}

type Handler struct {
	bookings Marker
	log      *logger.Logger
}

func NewHandler(bookings Marker, log *logger.Logger) *Handler {
	return &Handler{bookings: bookings, log: log}
}

// Handle is a kafka.MessageHandler. Bad payloads and business rejections are
// permanent so they go straight to the dead letter topic; anything else is
// retried.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var c Confirmation
	if err := msg.DecodeValue(&c); err != nil {
		return kafka.NewPermanentError("invalid payment confirmation payload", err)
	}
	if c.BookingID == "" {
		c.BookingID = msg.Key
	}
	if c.BookingID == "" || c.PaymentRef == "" {
		return kafka.NewPermanentError("payment confirmation missing booking_id or payment_ref", nil)
	}

	booking, err := h.bookings.MarkPaid(ctx, c.BookingID, c.PaymentRef, c.PaymentMethod)
	if err != nil {
		return classify(c, err)
	}

	h.log.Info("Payment confirmation applied",
		"booking_id", booking.ID,
		"payment_ref", c.PaymentRef,
		"event_id", msg.GetEventID(),
	)
	return nil
}

func classify(c Confirmation, err error) error {
	detail := fmt.Sprintf("booking %s payment %s", c.BookingID, c.PaymentRef)

	switch {
	case apperrors.HasCode(err, apperrors.CodeNotFound),
		apperrors.HasCode(err, apperrors.CodeInvalidState),
		apperrors.HasCode(err, apperrors.CodeInvalidInput),
		apperrors.HasCode(err, apperrors.CodeValidation):
		return kafka.NewPermanentError(detail, err)
	case apperrors.HasCode(err, apperrors.CodeConflict):
		// A different payment already settled this booking; retrying cannot help.
		return kafka.NewPermanentError(detail, err)
	default:
		return kafka.NewTransientError(detail, err)
	}
}
