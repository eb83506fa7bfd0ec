package service

import (
	"context"
	"errors"
	"time"
	bookingserrors "tourbook/internal/bookings/errors"
	"tourbook/internal/bookings/repository"
	"tourbook/pkg/daterange"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"
	"tourbook/pkg/sanitizer"
)

// Cancel moves an active booking to cancelled and frees its reservation holds.
// Concurrent cancels are safe: exactly one wins the compare-and-set and only
// the winner releases. Everyone else gets the stored cancelled booking back.
func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, id, reason string) (*model.Booking, error) {
	reason = sanitizer.SanitizeFreeText(reason)
	if err := s.validator.ValidateCancel(&model.CancelRequest{Reason: reason}); err != nil {
		return nil, apperrors.Validation("Invalid cancellation", map[string]any{"errors": err})
	}

	for range maxCASAttempts {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(actor, current); err != nil {
			return nil, err
		}

		switch current.Status {
		case model.BookingCancelled:
			return current, nil
		case model.BookingCompleted:
			return nil, apperrors.InvalidState("Completed bookings cannot be cancelled")
		}

		now := s.clock.Now().UTC()
		refund := RefundFor(current.TotalAmount, current.BookingDate.Sub(now).Hours())
		paymentStatus := current.PaymentStatus
		if paymentStatus == model.PaymentCompleted && refund > 0 {
			paymentStatus = model.PaymentRefunded
		}

		cancelled, err := s.repo.Cancel(ctx, id, repository.Cancellation{
			Reason:             reason,
			RefundAmount:       refund,
			PaymentStatus:      paymentStatus,
			PriorPaymentStatus: current.PaymentStatus,
			At:                 now,
		})
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			s.cfg.Log.Debug("Booking changed during cancellation, re-reading", "id", id)
			continue
		}
		if err != nil {
			s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to cancel booking", err)
		}

		s.cfg.Log.Info("Booking cancelled",
			"id", id,
			"cancelled_by", actor.CustomerRef,
			"refund_amount", refund,
			"payment_status", paymentStatus,
		)

		s.releaseHolds(ctx, cancelled)
		s.notifier.BookingCancelled(ctx, cancelled)
		return cancelled, nil
	}

	return nil, apperrors.Conflict("Booking was modified concurrently, please retry")
}

// releaseHolds frees every day the booking holds. Failures are queued for the
// sweeper; the cancellation itself already stands.
func (s *bookingService) releaseHolds(ctx context.Context, booking *model.Booking) {
	ctx = context.WithoutCancel(ctx)

	held, err := s.coordinator.ReleaseReservation(ctx, booking.ID)
	if err == nil {
		if len(held) > 0 {
			s.cfg.Log.Info("Reservation released", "booking_ref", booking.ID, "days", len(held))
		}
		return
	}

	pending := map[string][]time.Time{}
	for _, rec := range held {
		pending[rec.ResourceKey] = append(pending[rec.ResourceKey], rec.Date)
	}
	// The lookup itself failed, so fall back to what the booking recorded.
	if len(pending) == 0 && booking.Hotel != nil {
		pending[booking.Hotel.ResourceKey] = daterange.Expand(booking.Hotel.CheckIn, booking.Hotel.CheckOut)
	}
	if len(pending) == 0 {
		s.cfg.Log.Error("Failed to release reservation and nothing to queue", "booking_ref", booking.ID, "error", err)
		return
	}

	for key, dates := range pending {
		s.enqueueRelease(ctx, key, dates, booking.ID, err)
	}
}
