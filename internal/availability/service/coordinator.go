package service

import (
	"context"
	"fmt"
	"time"
	availabilityerrors "tourbook/internal/availability/errors"
	"tourbook/internal/availability/repository"
	"tourbook/pkg/config"
	"tourbook/pkg/daterange"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"
)

// Coordinator is the only writer of reservation holds. Every hold it creates
// is tagged with the booking id so releases can be scoped to that booking.
type Coordinator interface {
	Reserve(ctx context.Context, resourceKey string, from, to time.Time, bookingRef string) ([]time.Time, error)
	Release(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error
	ReleaseReservation(ctx context.Context, bookingRef string) ([]*model.AvailabilityRecord, error)
}

type reservationCoordinator struct {
	repo  repository.AvailabilityRepository
	cache CalendarCache
	cfg   *config.Config
}

func NewCoordinator(repo repository.AvailabilityRepository, cache CalendarCache, cfg *config.Config) Coordinator {
	if cache == nil {
		cache = NoopCalendarCache()
	}
	return &reservationCoordinator{
		repo:  repo,
		cache: cache,
		cfg:   cfg,
	}
}

func (c *reservationCoordinator) Reserve(ctx context.Context, resourceKey string, from, to time.Time, bookingRef string) ([]time.Time, error) {
	if bookingRef == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	days := daterange.Expand(from, to)
	if err := c.repo.ReserveRange(ctx, resourceKey, days, bookingRef); err != nil {
		if conflict, ok := availabilityerrors.AsConflict(err); ok {
			c.cfg.Log.Info("Reservation rejected, dates unavailable",
				"resource_key", resourceKey,
				"booking_ref", bookingRef,
				"unavailable_dates", daterange.FormatAll(conflict.Dates),
			)
			return nil, ConflictToAppError(conflict)
		}
		c.cfg.Log.Error("Failed to reserve dates",
			"resource_key", resourceKey,
			"booking_ref", bookingRef,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to reserve dates", err)
	}

	c.invalidate(ctx, resourceKey, days)
	c.cfg.Log.Info("Dates reserved",
		"resource_key", resourceKey,
		"booking_ref", bookingRef,
		"from", daterange.Format(days[0]),
		"to", daterange.Format(days[len(days)-1]),
	)
	return days, nil
}

func (c *reservationCoordinator) Release(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error {
	if bookingRef == "" {
		return apperrors.InvalidInput("Booking reference cannot be empty")
	}

	if err := c.repo.ReleaseHeldBy(ctx, resourceKey, dates, bookingRef); err != nil {
		c.cfg.Log.Error("Failed to release dates",
			"resource_key", resourceKey,
			"booking_ref", bookingRef,
			"error", err,
		)
		return apperrors.Internal("Failed to release dates", err)
	}

	c.invalidate(ctx, resourceKey, dates)
	c.cfg.Log.Info("Dates released", "resource_key", resourceKey, "booking_ref", bookingRef, "count", len(dates))
	return nil
}

// ReleaseReservation frees every day held by bookingRef across all resources
// and returns the records that were held.
func (c *reservationCoordinator) ReleaseReservation(ctx context.Context, bookingRef string) ([]*model.AvailabilityRecord, error) {
	if bookingRef == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	held, err := c.repo.FindByReservation(ctx, bookingRef)
	if err != nil {
		return nil, apperrors.Internal("Failed to load reservation", err)
	}

	byResource := map[string][]time.Time{}
	var order []string
	for _, rec := range held {
		if _, ok := byResource[rec.ResourceKey]; !ok {
			order = append(order, rec.ResourceKey)
		}
		byResource[rec.ResourceKey] = append(byResource[rec.ResourceKey], rec.Date)
	}

	for _, key := range order {
		if err := c.Release(ctx, key, byResource[key], bookingRef); err != nil {
			return held, err
		}
	}
	return held, nil
}

func (c *reservationCoordinator) invalidate(ctx context.Context, resourceKey string, days []time.Time) {
	if err := c.cache.Invalidate(ctx, resourceKey, daterange.Months(days)); err != nil {
		c.cfg.Log.Warn("Failed to invalidate calendar cache", "resource_key", resourceKey, "error", err)
	}
}

// ConflictToAppError renders a storage conflict as a 409 carrying the
// unavailable days.
func ConflictToAppError(conflict *availabilityerrors.ConflictError) *apperrors.AppError {
	dates := daterange.FormatAll(conflict.Dates)
	return apperrors.Conflict(fmt.Sprintf("%s is not available on %d requested date(s)", conflict.ResourceKey, len(dates))).
		WithDetails(map[string]any{
			"resource_key":      conflict.ResourceKey,
			"unavailable_dates": dates,
		})
}
