package service

import (
	"context"
	"errors"
	"time"
	availabilityerrors "tourbook/internal/availability/errors"
	"tourbook/internal/availability/repository"
	"tourbook/internal/availability/validator"
	"tourbook/pkg/config"
	"tourbook/pkg/daterange"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"
)

type AvailabilityService interface {
	CheckRoom(ctx context.Context, hotelID, roomID string, checkIn, checkOut time.Time) (*model.AvailabilityCheck, error)
	SetStatus(ctx context.Context, actor model.Actor, req *model.SetAvailabilityRequest) (*model.AvailabilityRecord, error)
	ReleaseRoom(ctx context.Context, actor model.Actor, hotelID, roomID string, checkIn, checkOut time.Time) error
}

type availabilityService struct {
	repo      repository.AvailabilityRepository
	cache     CalendarCache
	validator *validator.AvailabilityValidator
	cfg       *config.Config
}

func NewAvailabilityService(
	repo repository.AvailabilityRepository,
	cache CalendarCache,
	validator *validator.AvailabilityValidator,
	cfg *config.Config,
) AvailabilityService {
	if cache == nil {
		cache = NoopCalendarCache()
	}
	return &availabilityService{
		repo:      repo,
		cache:     cache,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *availabilityService) CheckRoom(ctx context.Context, hotelID, roomID string, checkIn, checkOut time.Time) (*model.AvailabilityCheck, error) {
	if err := s.validateRoomRange(hotelID, roomID, checkIn, checkOut); err != nil {
		return nil, err
	}

	key := model.RoomResource(hotelID, roomID)
	records, err := s.repo.GetRange(ctx, key, checkIn, checkOut)
	if err != nil {
		s.cfg.Log.Error("Failed to check room availability", "resource_key", key, "error", err)
		return nil, apperrors.Internal("Failed to check availability", err)
	}

	unavailable := []string{}
	for _, rec := range records {
		if rec.IsHeld() {
			unavailable = append(unavailable, daterange.Format(rec.Date))
		}
	}

	return &model.AvailabilityCheck{
		ResourceKey:      key,
		IsAvailable:      len(unavailable) == 0,
		UnavailableDates: unavailable,
	}, nil
}

func (s *availabilityService) SetStatus(ctx context.Context, actor model.Actor, req *model.SetAvailabilityRequest) (*model.AvailabilityRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateSetStatus(req); err != nil {
		s.cfg.Log.Warn("Availability update validation failed", "error", err)
		return nil, apperrors.Validation("Invalid availability update", map[string]any{"errors": err})
	}

	date, err := daterange.ParseDay(req.Date)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	key := req.Key()
	rec, err := s.repo.SetStatus(ctx, key, date, req.Status, req.SlotsAvailable)
	if err != nil {
		if errors.Is(err, availabilityerrors.ErrInvalidStatus) || errors.Is(err, availabilityerrors.ErrCapacityWithoutLimited) {
			return nil, apperrors.Validation("Invalid availability update", map[string]any{"error": err.Error()})
		}
		s.cfg.Log.Error("Failed to set availability", "resource_key", key, "date", req.Date, "error", err)
		return nil, apperrors.Internal("Failed to set availability", err)
	}

	s.invalidate(ctx, key, []time.Time{date})
	s.cfg.Log.Info("Availability updated",
		"resource_key", key,
		"date", daterange.Format(date),
		"status", req.Status,
		"by", actor.CustomerRef,
	)
	return rec, nil
}

func (s *availabilityService) ReleaseRoom(ctx context.Context, actor model.Actor, hotelID, roomID string, checkIn, checkOut time.Time) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.validateRoomRange(hotelID, roomID, checkIn, checkOut); err != nil {
		return err
	}

	key := model.RoomResource(hotelID, roomID)
	days := daterange.Expand(checkIn, checkOut)
	if err := s.repo.ReleaseRange(ctx, key, days); err != nil {
		s.cfg.Log.Error("Failed to release room", "resource_key", key, "error", err)
		return apperrors.Internal("Failed to release room", err)
	}

	s.invalidate(ctx, key, days)
	s.cfg.Log.Info("Room released manually", "resource_key", key, "days", len(days), "by", actor.CustomerRef)
	return nil
}

func (s *availabilityService) validateRoomRange(hotelID, roomID string, checkIn, checkOut time.Time) error {
	req := &model.RoomRangeRequest{HotelID: hotelID, RoomID: roomID, CheckIn: model.DayOf(checkIn), CheckOut: model.DayOf(checkOut)}
	if err := s.validator.ValidateRoomRange(req); err != nil {
		s.cfg.Log.Warn("Room range validation failed", "hotel_id", hotelID, "room_id", roomID, "error", err)
		return apperrors.Validation("Invalid room date range", map[string]any{"errors": err})
	}
	return nil
}

func (s *availabilityService) invalidate(ctx context.Context, resourceKey string, days []time.Time) {
	if err := s.cache.Invalidate(ctx, resourceKey, daterange.Months(days)); err != nil {
		s.cfg.Log.Warn("Failed to invalidate calendar cache", "resource_key", resourceKey, "error", err)
	}
}

func requireAdmin(actor model.Actor) error {
	if actor.IsAnonymous() {
		return apperrors.Unauthorized("Authentication required")
	}
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Admin access required")
	}
	return nil
}
