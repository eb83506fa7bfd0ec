package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	bookingserrors "tourbook/internal/bookings/errors"
	"tourbook/pkg/clock"
	"tourbook/pkg/model"
)

type memoryBookingRepository struct {
	mu       sync.RWMutex
	clock    clock.Clock
	bookings map[string]*model.Booking
}

func NewMemoryBookingRepository(clk clock.Clock) BookingRepository {
	return &memoryBookingRepository{clock: clk, bookings: make(map[string]*model.Booking)}
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == "" {
		booking.ID = NewBookingID()
	}
	if _, exists := r.bookings[booking.ID]; exists {
		return fmt.Errorf("failed to create booking: duplicate id %s", booking.ID)
	}
	r.bookings[booking.ID] = copyBooking(booking)
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return copyBooking(b), nil
}

func (r *memoryBookingRepository) FindByCustomer(_ context.Context, customerRef string, limit int, offset int64) ([]*model.Booking, error) {
	return r.page(func(b *model.Booking) bool { return b.CustomerRef == customerRef }, limit, offset), nil
}

func (r *memoryBookingRepository) CountByCustomer(_ context.Context, customerRef string) (int64, error) {
	return r.count(func(b *model.Booking) bool { return b.CustomerRef == customerRef }), nil
}

func (r *memoryBookingRepository) FindAll(_ context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	return r.page(matchStatus(status), limit, offset), nil
}

func (r *memoryBookingRepository) Count(_ context.Context, status string) (int64, error) {
	return r.count(matchStatus(status)), nil
}

func matchStatus(status string) func(*model.Booking) bool {
	return func(b *model.Booking) bool { return status == "" || b.Status == status }
}

func (r *memoryBookingRepository) page(match func(*model.Booking) bool, limit int, offset int64) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*model.Booking{}
	for _, b := range r.bookings {
		if match(b) {
			matched = append(matched, copyBooking(b))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if offset >= int64(len(matched)) {
		return []*model.Booking{}
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func (r *memoryBookingRepository) count(match func(*model.Booking) bool) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, b := range r.bookings {
		if match(b) {
			n++
		}
	}
	return n
}

func (r *memoryBookingRepository) TransitionStatus(_ context.Context, id, from, to string) (*model.Booking, error) {
	return r.compareAndSet(id, func(b *model.Booking) bool { return b.Status == from }, func(b *model.Booking) {
		b.Status = to
		b.UpdatedAt = r.clock.Now()
	})
}

func (r *memoryBookingRepository) Cancel(_ context.Context, id string, c Cancellation) (*model.Booking, error) {
	return r.compareAndSet(id, func(b *model.Booking) bool {
		return b.IsActive() && b.PaymentStatus == c.PriorPaymentStatus
	}, func(b *model.Booking) {
		at := c.At
		b.Status = model.BookingCancelled
		b.PaymentStatus = c.PaymentStatus
		b.CancellationReason = c.Reason
		b.RefundAmount = c.RefundAmount
		b.CancelledAt = &at
		b.UpdatedAt = at
	})
}

func (r *memoryBookingRepository) MarkPaid(_ context.Context, id string, payment model.PaymentDetails) (*model.Booking, error) {
	return r.compareAndSet(id, func(b *model.Booking) bool {
		return b.Status != model.BookingCancelled && b.PaymentStatus != model.PaymentCompleted
	}, func(b *model.Booking) {
		p := payment
		b.PaymentStatus = model.PaymentCompleted
		b.Payment = &p
		b.UpdatedAt = payment.PaidAt
	})
}

func (r *memoryBookingRepository) compareAndSet(id string, guard func(*model.Booking) bool, apply func(*model.Booking)) (*model.Booking, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || !guard(b) {
		return nil, bookingserrors.ErrStatusChanged
	}
	apply(b)
	return copyBooking(b), nil
}

func copyBooking(b *model.Booking) *model.Booking {
	c := *b
	if b.Hotel != nil {
		h := *b.Hotel
		c.Hotel = &h
	}
	if b.Payment != nil {
		p := *b.Payment
		c.Payment = &p
	}
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
