package service

import (
	"context"
	"time"
	"tourbook/internal/availability/repository"
	"tourbook/internal/availability/validator"
	"tourbook/pkg/config"
	"tourbook/pkg/daterange"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"
)

type CalendarService interface {
	GetMonth(ctx context.Context, resourceKey string, year, month int) (map[string]string, error)
}

type calendarService struct {
	repo      repository.AvailabilityRepository
	cache     CalendarCache
	validator *validator.AvailabilityValidator
	cfg       *config.Config
}

func NewCalendarService(
	repo repository.AvailabilityRepository,
	cache CalendarCache,
	validator *validator.AvailabilityValidator,
	cfg *config.Config,
) CalendarService {
	if cache == nil {
		cache = NoopCalendarCache()
	}
	return &calendarService{
		repo:      repo,
		cache:     cache,
		validator: validator,
		cfg:       cfg,
	}
}

// GetMonth maps every day of the month to its stored status. Days without a
// record are available.
func (s *calendarService) GetMonth(ctx context.Context, resourceKey string, year, month int) (map[string]string, error) {
	query := &model.CalendarQuery{ResourceKey: resourceKey, Year: year, Month: month}
	if err := s.validator.ValidateCalendarQuery(query); err != nil {
		s.cfg.Log.Warn("Calendar query validation failed", "resource_key", resourceKey, "error", err)
		return nil, apperrors.Validation("Invalid calendar query", map[string]any{"errors": err})
	}

	// The version is taken before storage is read; see CalendarCache.
	days, version, ok, cacheErr := s.cache.Get(ctx, resourceKey, year, month)
	if cacheErr != nil {
		s.cfg.Log.Warn("Calendar cache read failed, reading from storage", "resource_key", resourceKey, "error", cacheErr)
	}
	if ok {
		return days, nil
	}

	first, last := daterange.MonthBounds(year, time.Month(month))
	records, err := s.repo.GetRange(ctx, resourceKey, first, last)
	if err != nil {
		s.cfg.Log.Error("Failed to load calendar", "resource_key", resourceKey, "year", year, "month", month, "error", err)
		return nil, apperrors.Internal("Failed to load calendar", err)
	}

	days = make(map[string]string, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days[daterange.Format(d)] = model.AvailabilityAvailable
	}
	for _, rec := range records {
		days[daterange.Format(rec.Date)] = rec.Status
	}

	if cacheErr != nil {
		return days, nil
	}
	if err := s.cache.Set(ctx, resourceKey, year, month, version, days); err != nil {
		s.cfg.Log.Warn("Calendar cache write failed", "resource_key", resourceKey, "error", err)
	}
	return days, nil
}
