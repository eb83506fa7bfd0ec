package repository

import (
	"context"
	"sort"
	"sync"
	"time"
	availabilityerrors "tourbook/internal/availability/errors"
	"tourbook/pkg/clock"
	"tourbook/pkg/daterange"
	"tourbook/pkg/model"

	"github.com/google/uuid"
)

// memoryAvailabilityRepository keeps every record behind a single mutex, which
// makes each multi-day claim atomic.
type memoryAvailabilityRepository struct {
	mu      sync.Mutex
	records map[string]map[time.Time]*model.AvailabilityRecord
	clock   clock.Clock
}

func NewMemoryAvailabilityRepository(clk clock.Clock) AvailabilityRepository {
	return &memoryAvailabilityRepository{
		records: make(map[string]map[time.Time]*model.AvailabilityRecord),
		clock:   clk,
	}
}

func (r *memoryAvailabilityRepository) GetRange(_ context.Context, resourceKey string, from, to time.Time) ([]*model.AvailabilityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start, end := daterange.Normalize(from), daterange.Normalize(to)
	var out []*model.AvailabilityRecord
	for day, rec := range r.records[resourceKey] {
		if day.Before(start) || day.After(end) {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	sortByDate(out)
	return out, nil
}

func (r *memoryAvailabilityRepository) ReserveRange(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	days := daterange.Unique(dates)
	if len(days) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byDay := r.records[resourceKey]
	var held []time.Time
	for _, d := range days {
		if byDay[d].IsHeld() {
			held = append(held, d)
		}
	}
	if len(held) > 0 {
		return &availabilityerrors.ConflictError{ResourceKey: resourceKey, Dates: held}
	}

	now := r.clock.Now()
	for _, d := range days {
		rec := r.upsert(resourceKey, d, now)
		rec.Status = model.AvailabilityBooked
		rec.ReservationRef = bookingRef
		rec.Capacity = nil
	}
	return nil
}

func (r *memoryAvailabilityRepository) ReleaseRange(ctx context.Context, resourceKey string, dates []time.Time) error {
	return r.release(ctx, resourceKey, dates, false, "")
}

func (r *memoryAvailabilityRepository) ReleaseHeldBy(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error {
	return r.release(ctx, resourceKey, dates, true, bookingRef)
}

func (r *memoryAvailabilityRepository) release(ctx context.Context, resourceKey string, dates []time.Time, guarded bool, bookingRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	for _, d := range daterange.Unique(dates) {
		rec, ok := r.records[resourceKey][d]
		if !ok {
			continue
		}
		if guarded && rec.ReservationRef != bookingRef {
			continue
		}
		rec.Status = model.AvailabilityAvailable
		rec.ReservationRef = ""
		rec.Capacity = nil
		rec.UpdatedAt = now
	}
	return nil
}

func (r *memoryAvailabilityRepository) FindByReservation(_ context.Context, bookingRef string) ([]*model.AvailabilityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.AvailabilityRecord
	for _, byDay := range r.records {
		for _, rec := range byDay {
			if rec.ReservationRef == bookingRef {
				out = append(out, copyRecord(rec))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ResourceKey != out[j].ResourceKey {
			return out[i].ResourceKey < out[j].ResourceKey
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *memoryAvailabilityRepository) SetStatus(ctx context.Context, resourceKey string, date time.Time, status string, capacity *int) (*model.AvailabilityRecord, error) {
	if err := checkStatus(status, capacity); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.upsert(resourceKey, daterange.Normalize(date), r.clock.Now())
	rec.Status = status
	rec.Capacity = nil
	if status != model.AvailabilityBooked {
		rec.ReservationRef = ""
	}
	if status == model.AvailabilityLimited && capacity != nil {
		c := *capacity
		rec.Capacity = &c
	}
	return copyRecord(rec), nil
}

// upsert must be called with mu held.
func (r *memoryAvailabilityRepository) upsert(resourceKey string, day time.Time, now time.Time) *model.AvailabilityRecord {
	byDay, ok := r.records[resourceKey]
	if !ok {
		byDay = make(map[time.Time]*model.AvailabilityRecord)
		r.records[resourceKey] = byDay
	}

	rec, ok := byDay[day]
	if !ok {
		rec = &model.AvailabilityRecord{
			ID:          uuid.NewString(),
			ResourceKey: resourceKey,
			Date:        day,
			Status:      model.AvailabilityAvailable,
			CreatedAt:   now,
		}
		byDay[day] = rec
	}
	rec.UpdatedAt = now
	return rec
}

func copyRecord(rec *model.AvailabilityRecord) *model.AvailabilityRecord {
	c := *rec
	if rec.Capacity != nil {
		capacity := *rec.Capacity
		c.Capacity = &capacity
	}
	return &c
}

func sortByDate(records []*model.AvailabilityRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
}
