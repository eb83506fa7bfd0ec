package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"tourbook/internal/availability/repository"
	"tourbook/internal/availability/validator"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	"tourbook/pkg/daterange"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"
)

// ────────────────────────────────────────────────
// Test fixtures
// ────────────────────────────────────────────────

// fakeCalendarCache keeps the same per-resource versioning as the Redis cache.
type fakeCalendarCache struct {
	mu          sync.Mutex
	entries     map[string]map[string]string
	versions    map[string]int64
	invalidated []string
	getErr      error
	gets        int
}

func newFakeCache() *fakeCalendarCache {
	return &fakeCalendarCache{entries: map[string]map[string]string{}, versions: map[string]int64{}}
}

func (c *fakeCalendarCache) Get(_ context.Context, key string, year, month int) (map[string]string, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	version := c.versions[key]
	days, ok := c.entries[versionedCalendarKey(key, version, year, month)]
	return days, version, ok, nil
}

func (c *fakeCalendarCache) Set(_ context.Context, key string, year, month int, version int64, days map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[versionedCalendarKey(key, version, year, month)] = days
	return nil
}

func (c *fakeCalendarCache) Invalidate(_ context.Context, key string, months [][2]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[key]++
	for _, ym := range months {
		c.invalidated = append(c.invalidated, calendarCacheKey(key, ym[0], ym[1]))
	}
	return nil
}

// interleavingRepository runs afterRead once, between a range read and its
// return, to stand in for a write that lands while a calendar is being built.
type interleavingRepository struct {
	repository.AvailabilityRepository
	afterRead func()
}

func (r *interleavingRepository) GetRange(ctx context.Context, key string, from, to time.Time) ([]*model.AvailabilityRecord, error) {
	records, err := r.AvailabilityRepository.GetRange(ctx, key, from, to)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return records, err
}

func testConfig() *config.Config {
	return &config.Config{
		Log:          logger.Discard(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func day(s string) time.Time {
	t, err := time.Parse(daterange.DayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

var admin = model.Actor{CustomerRef: "admin-1", Role: model.RoleAdmin}

// ────────────────────────────────────────────────
// Coordinator
// ────────────────────────────────────────────────

func TestCoordinator_OverlappingRoomStays(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := repository.NewMemoryAvailabilityRepository(clock.Fixed(day("2024-12-01")))
	coord := NewCoordinator(repo, newFakeCache(), cfg)
	avail := NewAvailabilityService(repo, nil, validator.NewAvailabilityValidator(cfg.Log), cfg)
	key := model.RoomResource("h1", "R")

	claimed, err := coord.Reserve(ctx, key, day("2024-12-20"), day("2024-12-22"), "b1")
	if err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("expected 3 claimed days, got %d", len(claimed))
	}

	_, err = coord.Reserve(ctx, key, day("2024-12-21"), day("2024-12-23"), "b2")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	dates, _ := appErr.Details["unavailable_dates"].([]string)
	if len(dates) != 2 || dates[0] != "2024-12-21" || dates[1] != "2024-12-22" {
		t.Errorf("unavailable_dates = %v", appErr.Details["unavailable_dates"])
	}
	if appErr.Details["resource_key"] != key {
		t.Errorf("resource_key = %v, want %s", appErr.Details["resource_key"], key)
	}

	check, err := avail.CheckRoom(ctx, "h1", "R", day("2024-12-23"), day("2024-12-24"))
	if err != nil {
		t.Fatalf("CheckRoom failed: %v", err)
	}
	if !check.IsAvailable {
		t.Errorf("2024-12-23 must stay free after the rejected claim, got %v", check.UnavailableDates)
	}
}

func TestCoordinator_ReserveInvalidatesTouchedMonths(t *testing.T) {
	cfg := testConfig()
	cache := newFakeCache()
	repo := repository.NewMemoryAvailabilityRepository(clock.System())
	coord := NewCoordinator(repo, cache, cfg)

	_, err := coord.Reserve(context.Background(), "tour:t1", day("2024-12-30"), day("2025-01-02"), "b1")
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	want := []string{"calendar:tour:t1:2024-12", "calendar:tour:t1:2025-01"}
	if len(cache.invalidated) != len(want) {
		t.Fatalf("invalidated = %v, want %v", cache.invalidated, want)
	}
	for i := range want {
		if cache.invalidated[i] != want[i] {
			t.Errorf("invalidated[%d] = %s, want %s", i, cache.invalidated[i], want[i])
		}
	}
}

func TestCoordinator_ReleaseReservation(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := repository.NewMemoryAvailabilityRepository(clock.System())
	coord := NewCoordinator(repo, nil, cfg)

	if _, err := coord.Reserve(ctx, "room:h1:r1", day("2024-12-20"), day("2024-12-21"), "b1"); err != nil {
		t.Fatalf("reserve room failed: %v", err)
	}
	if _, err := coord.Reserve(ctx, "tour:t1", day("2024-12-20"), day("2024-12-20"), "b1"); err != nil {
		t.Fatalf("reserve tour failed: %v", err)
	}
	if _, err := coord.Reserve(ctx, "room:h1:r2", day("2024-12-20"), day("2024-12-20"), "b2"); err != nil {
		t.Fatalf("reserve other booking failed: %v", err)
	}

	released, err := coord.ReleaseReservation(ctx, "b1")
	if err != nil {
		t.Fatalf("ReleaseReservation failed: %v", err)
	}
	if len(released) != 3 {
		t.Errorf("expected 3 released records, got %d", len(released))
	}

	again, err := coord.ReleaseReservation(ctx, "b1")
	if err != nil || len(again) != 0 {
		t.Errorf("second release should be a no-op, got %d records, err %v", len(again), err)
	}

	other, _ := repo.FindByReservation(ctx, "b2")
	if len(other) != 1 {
		t.Errorf("b2 hold must survive, got %d", len(other))
	}
}

func TestCoordinator_RejectsEmptyBookingRef(t *testing.T) {
	coord := NewCoordinator(repository.NewMemoryAvailabilityRepository(clock.System()), nil, testConfig())

	if _, err := coord.Reserve(context.Background(), "tour:t1", day("2024-12-20"), day("2024-12-20"), ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if err := coord.Release(context.Background(), "tour:t1", []time.Time{day("2024-12-20")}, ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Calendar
// ────────────────────────────────────────────────

func TestGetMonth_FillsMissingDaysAsAvailable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := repository.NewMemoryAvailabilityRepository(clock.System())
	slots := 2
	if _, err := repo.SetStatus(ctx, "tour:t1", day("2024-02-10"), model.AvailabilityLimited, &slots); err != nil {
		t.Fatal(err)
	}
	if err := repo.ReserveRange(ctx, "tour:t1", []time.Time{day("2024-02-29")}, "b1"); err != nil {
		t.Fatal(err)
	}

	cal := NewCalendarService(repo, nil, validator.NewAvailabilityValidator(cfg.Log), cfg)
	days, err := cal.GetMonth(ctx, "tour:t1", 2024, 2)
	if err != nil {
		t.Fatalf("GetMonth failed: %v", err)
	}

	if len(days) != 29 {
		t.Fatalf("expected 29 days in February 2024, got %d", len(days))
	}
	if days["2024-02-01"] != model.AvailabilityAvailable {
		t.Errorf("2024-02-01 = %s, want available", days["2024-02-01"])
	}
	if days["2024-02-10"] != model.AvailabilityLimited {
		t.Errorf("2024-02-10 = %s, want limited", days["2024-02-10"])
	}
	if days["2024-02-29"] != model.AvailabilityBooked {
		t.Errorf("2024-02-29 = %s, want booked", days["2024-02-29"])
	}
}

func TestGetMonth_InvalidMonth(t *testing.T) {
	cfg := testConfig()
	cal := NewCalendarService(repository.NewMemoryAvailabilityRepository(clock.System()), nil, validator.NewAvailabilityValidator(cfg.Log), cfg)

	for _, month := range []int{0, 13} {
		_, err := cal.GetMonth(context.Background(), "tour:t1", 2024, month)
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("month %d: expected VALIDATION_ERROR, got %v", month, err)
		}
	}
}

func TestGetMonth_CacheAside(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cache := newFakeCache()
	repo := repository.NewMemoryAvailabilityRepository(clock.System())
	cal := NewCalendarService(repo, cache, validator.NewAvailabilityValidator(cfg.Log), cfg)
	coord := NewCoordinator(repo, cache, cfg)

	if _, err := cal.GetMonth(ctx, "tour:t1", 2024, 12); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.entries[versionedCalendarKey("tour:t1", 0, 2024, 12)]; !ok {
		t.Fatal("expected month to be cached after first read")
	}

	if _, err := coord.Reserve(ctx, "tour:t1", day("2024-12-24"), day("2024-12-24"), "b1"); err != nil {
		t.Fatal(err)
	}

	days, err := cal.GetMonth(ctx, "tour:t1", 2024, 12)
	if err != nil {
		t.Fatal(err)
	}
	if days["2024-12-24"] != model.AvailabilityBooked {
		t.Errorf("stale calendar after reserve: 2024-12-24 = %s", days["2024-12-24"])
	}
}

func TestGetMonth_WriteDuringFillIsNotMasked(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cache := newFakeCache()
	store := repository.NewMemoryAvailabilityRepository(clock.System())
	coord := NewCoordinator(store, cache, cfg)
	repo := &interleavingRepository{AvailabilityRepository: store}
	repo.afterRead = func() {
		if _, err := coord.Reserve(ctx, "tour:t1", day("2024-12-24"), day("2024-12-24"), "b1"); err != nil {
			t.Errorf("reserve during fill failed: %v", err)
		}
	}
	cal := NewCalendarService(repo, cache, validator.NewAvailabilityValidator(cfg.Log), cfg)

	racing, err := cal.GetMonth(ctx, "tour:t1", 2024, 12)
	if err != nil {
		t.Fatal(err)
	}
	if racing["2024-12-24"] != model.AvailabilityAvailable {
		t.Fatalf("the racing read was built before the reserve, got %s", racing["2024-12-24"])
	}

	days, err := cal.GetMonth(ctx, "tour:t1", 2024, 12)
	if err != nil {
		t.Fatal(err)
	}
	if days["2024-12-24"] != model.AvailabilityBooked {
		t.Errorf("stale fill survived the invalidation: 2024-12-24 = %s", days["2024-12-24"])
	}
}

func TestGetMonth_CacheErrorFallsBackToStorage(t *testing.T) {
	cfg := testConfig()
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	cal := NewCalendarService(repository.NewMemoryAvailabilityRepository(clock.System()), cache, validator.NewAvailabilityValidator(cfg.Log), cfg)

	days, err := cal.GetMonth(context.Background(), "tour:t1", 2024, 11)
	if err != nil {
		t.Fatalf("cache failure must not fail the read: %v", err)
	}
	if len(days) != 30 {
		t.Errorf("expected 30 days, got %d", len(days))
	}
}

// ────────────────────────────────────────────────
// Availability service
// ────────────────────────────────────────────────

func TestSetStatus_Authorization(t *testing.T) {
	cfg := testConfig()
	svc := NewAvailabilityService(repository.NewMemoryAvailabilityRepository(clock.System()), nil, validator.NewAvailabilityValidator(cfg.Log), cfg)
	req := &model.SetAvailabilityRequest{TourID: "t1", Date: "2024-12-20", Status: model.AvailabilityBooked}

	tests := []struct {
		name     string
		actor    model.Actor
		wantCode string
	}{
		{name: "anonymous", actor: model.Actor{}, wantCode: apperrors.CodeUnauthorized},
		{name: "customer", actor: model.Actor{CustomerRef: "c1"}, wantCode: apperrors.CodeForbidden},
		{name: "admin", actor: admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := svc.SetStatus(context.Background(), tt.actor, req)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.ResourceKey != "tour:t1" || rec.Status != model.AvailabilityBooked {
				t.Errorf("unexpected record %+v", rec)
			}
		})
	}
}

func TestSetStatus_InvalidatesCalendar(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cache := newFakeCache()
	repo := repository.NewMemoryAvailabilityRepository(clock.System())
	v := validator.NewAvailabilityValidator(cfg.Log)
	svc := NewAvailabilityService(repo, cache, v, cfg)
	cal := NewCalendarService(repo, cache, v, cfg)

	if _, err := cal.GetMonth(ctx, "tour:t1", 2024, 12); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetStatus(ctx, admin, &model.SetAvailabilityRequest{TourID: "t1", Date: "2024-12-05", Status: model.AvailabilityBooked}); err != nil {
		t.Fatal(err)
	}

	days, _ := cal.GetMonth(ctx, "tour:t1", 2024, 12)
	if days["2024-12-05"] != model.AvailabilityBooked {
		t.Errorf("2024-12-05 = %s, want booked", days["2024-12-05"])
	}
}

func TestCheckRoom_InvertedStay(t *testing.T) {
	cfg := testConfig()
	svc := NewAvailabilityService(repository.NewMemoryAvailabilityRepository(clock.System()), nil, validator.NewAvailabilityValidator(cfg.Log), cfg)

	_, err := svc.CheckRoom(context.Background(), "h1", "r1", day("2024-12-22"), day("2024-12-20"))
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestReleaseRoom_AdminFreesAnyHold(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := repository.NewMemoryAvailabilityRepository(clock.System())
	svc := NewAvailabilityService(repo, nil, validator.NewAvailabilityValidator(cfg.Log), cfg)
	coord := NewCoordinator(repo, nil, cfg)

	if _, err := coord.Reserve(ctx, "room:h1:r1", day("2024-12-20"), day("2024-12-22"), "b1"); err != nil {
		t.Fatal(err)
	}

	if err := svc.ReleaseRoom(ctx, model.Actor{CustomerRef: "c1"}, "h1", "r1", day("2024-12-20"), day("2024-12-22")); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for customer, got %v", err)
	}
	if err := svc.ReleaseRoom(ctx, admin, "h1", "r1", day("2024-12-20"), day("2024-12-22")); err != nil {
		t.Fatalf("admin release failed: %v", err)
	}

	check, err := svc.CheckRoom(ctx, "h1", "r1", day("2024-12-20"), day("2024-12-22"))
	if err != nil {
		t.Fatal(err)
	}
	if !check.IsAvailable {
		t.Errorf("expected room to be free, unavailable: %v", check.UnavailableDates)
	}
}
