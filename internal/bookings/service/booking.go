package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"tourbook/internal/availability/release"
	availabilityservice "tourbook/internal/availability/service"
	"tourbook/internal/bookings/catalog"
	bookingserrors "tourbook/internal/bookings/errors"
	"tourbook/internal/bookings/repository"
	"tourbook/internal/bookings/validator"
	"tourbook/internal/notifications"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	"tourbook/pkg/daterange"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"
	"tourbook/pkg/sanitizer"
)

// maxCASAttempts bounds how often a write re-reads after losing a compare-and-set.
const maxCASAttempts = 3

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	ListMine(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	ListAll(ctx context.Context, actor model.Actor, status string, limit int, offset int64) ([]*model.Booking, int64, error)
	UpdateStatus(ctx context.Context, actor model.Actor, id, status string) (*model.Booking, error)
	MarkPaid(ctx context.Context, id, paymentRef, method string) (*model.Booking, error)
	Cancel(ctx context.Context, actor model.Actor, id, reason string) (*model.Booking, error)
}

type bookingService struct {
	repo        repository.BookingRepository
	tours       catalog.TourCatalog
	coordinator availabilityservice.Coordinator
	releases    release.Queue
	notifier    notifications.Notifier
	validator   *validator.BookingValidator
	clock       clock.Clock
	cfg         *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	tours catalog.TourCatalog,
	coordinator availabilityservice.Coordinator,
	releases release.Queue,
	notifier notifications.Notifier,
	validator *validator.BookingValidator,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	if notifier == nil {
		notifier = notifications.NewLogNotifier(cfg.Log)
	}
	if clk == nil {
		clk = clock.System()
	}
	return &bookingService{
		repo:        repo,
		tours:       tours,
		coordinator: coordinator,
		releases:    releases,
		notifier:    notifier,
		validator:   validator,
		clock:       clk,
		cfg:         cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.Booking, error) {
	if actor.IsAnonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	s.sanitize(req)
	now := s.clock.Now().UTC()
	if err := s.validator.ValidateCreate(req, now); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "customer_ref", actor.CustomerRef, "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"errors": err})
	}

	tour, err := s.tours.FindActive(ctx, req.TourID)
	if err != nil {
		return nil, s.tourError(req.TourID, err)
	}

	booking := &model.Booking{
		ID:              repository.NewBookingID(),
		CustomerRef:     actor.CustomerRef,
		TourRef:         req.TourID,
		BookingDate:     req.BookingDate.Time(),
		Party:           req.NumberOfPeople,
		SpecialRequests: req.SpecialRequests,
		Status:          s.cfg.DefaultBookingStatus,
		PaymentStatus:   model.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var claimed []time.Time
	if h := req.HotelBooking; h != nil {
		key := model.RoomResource(h.HotelID, h.RoomID)
		claimed, err = s.coordinator.Reserve(ctx, key, h.CheckIn.Time(), h.CheckOut.Time(), booking.ID)
		if err != nil {
			// Only a conflict proves nothing was written. Any other failure may
			// have committed, so free whatever this booking id might hold.
			if !apperrors.HasCode(err, apperrors.CodeConflict) {
				s.compensate(ctx, key, daterange.Expand(h.CheckIn.Time(), h.CheckOut.Time()), booking.ID)
			}
			return nil, err
		}
		booking.Hotel = &model.HotelSelection{
			HotelID:      h.HotelID,
			RoomID:       h.RoomID,
			ResourceKey:  key,
			CheckIn:      h.CheckIn.Time(),
			CheckOut:     h.CheckOut.Time(),
			NightlyPrice: h.NightlyPrice,
			Nights:       daterange.Nights(h.CheckIn.Time(), h.CheckOut.Time()),
		}
	}

	booking.TotalAmount = ComputeTotal(tour.Price, booking.Party, booking.Hotel)

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "id", booking.ID, "customer_ref", actor.CustomerRef, "error", err)
		if booking.Hotel != nil {
			s.compensate(ctx, booking.Hotel.ResourceKey, claimed, booking.ID)
		}
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"customer_ref", booking.CustomerRef,
		"tour_ref", booking.TourRef,
		"booking_date", daterange.Format(booking.BookingDate),
		"status", booking.Status,
		"total_amount", booking.TotalAmount,
	)

	if booking.Status == model.BookingConfirmed {
		s.notifier.BookingConfirmed(ctx, booking)
	}
	return booking, nil
}

// compensate undoes a reservation whose booking was never stored. When the
// release itself fails the work is queued for the sweeper.
func (s *bookingService) compensate(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.coordinator.Release(ctx, resourceKey, dates, bookingRef); err != nil {
		s.enqueueRelease(ctx, resourceKey, dates, bookingRef, err)
		return
	}
	s.cfg.Log.Info("Compensating release completed", "resource_key", resourceKey, "booking_ref", bookingRef)
}

func (s *bookingService) enqueueRelease(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string, cause error) {
	task := &model.ReleaseTask{
		ResourceKey: resourceKey,
		Dates:       dates,
		BookingRef:  bookingRef,
		LastError:   cause.Error(),
	}
	if err := s.releases.Enqueue(ctx, task); err != nil {
		s.cfg.Log.Error("Failed to queue release, dates remain held",
			"resource_key", resourceKey,
			"booking_ref", bookingRef,
			"dates", daterange.FormatAll(dates),
			"release_error", cause,
			"error", err,
		)
		return
	}
	s.cfg.Log.Warn("Release queued for retry",
		"task_id", task.ID,
		"resource_key", resourceKey,
		"booking_ref", bookingRef,
		"error", cause,
	)
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	if actor.IsAnonymous() {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	return s.list(ctx,
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByCustomer(ctx, actor.CustomerRef)
		},
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByCustomer(ctx, actor.CustomerRef, limit, offset)
		},
	)
}

func (s *bookingService) ListAll(ctx context.Context, actor model.Actor, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if status != "" {
		if err := s.validator.ValidateStatusUpdate(&model.StatusUpdateRequest{Status: status}); err != nil {
			return nil, 0, apperrors.Validation("Invalid status filter", map[string]any{"errors": err})
		}
	}

	return s.list(ctx,
		func(ctx context.Context) (int64, error) {
			return s.repo.Count(ctx, status)
		},
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindAll(ctx, status, limit, offset)
		},
	)
}

// list runs the count and the page query concurrently.
func (s *bookingService) list(
	ctx context.Context,
	countFn func(context.Context) (int64, error),
	findFn func(context.Context) ([]*model.Booking, error),
) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = countFn(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = findFn(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return bookings, count, nil
}

var allowedTransitions = map[string]string{
	model.BookingPending:   model.BookingConfirmed,
	model.BookingConfirmed: model.BookingCompleted,
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor model.Actor, id, status string) (*model.Booking, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateStatusUpdate(&model.StatusUpdateRequest{Status: status}); err != nil {
		return nil, apperrors.Validation("Invalid status update", map[string]any{"errors": err})
	}
	if status == model.BookingCancelled {
		return nil, apperrors.InvalidState("Bookings are cancelled through the cancel operation")
	}

	for range maxCASAttempts {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == status {
			return current, nil
		}
		if allowedTransitions[current.Status] != status {
			return nil, apperrors.InvalidState(fmt.Sprintf("Cannot change booking status from %s to %s", current.Status, status))
		}

		updated, err := s.repo.TransitionStatus(ctx, id, current.Status, status)
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			s.cfg.Log.Debug("Booking status changed concurrently, retrying", "id", id)
			continue
		}
		if err != nil {
			s.cfg.Log.Error("Failed to update booking status", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to update booking status", err)
		}

		s.cfg.Log.Info("Booking status updated", "id", id, "from", current.Status, "to", status)
		if status == model.BookingConfirmed {
			s.notifier.BookingConfirmed(ctx, updated)
		}
		return updated, nil
	}

	return nil, apperrors.Conflict("Booking was modified concurrently, please retry")
}

func (s *bookingService) MarkPaid(ctx context.Context, id, paymentRef, method string) (*model.Booking, error) {
	req := &model.MarkPaidRequest{
		PaymentRef:    sanitizer.SanitizeIdentifier(paymentRef),
		PaymentMethod: sanitizer.SanitizeLabel(method),
	}
	if err := s.validator.ValidateMarkPaid(req); err != nil {
		return nil, apperrors.Validation("Invalid payment confirmation", map[string]any{"errors": err})
	}

	for range maxCASAttempts {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == model.BookingCancelled {
			return nil, apperrors.InvalidState("Cannot record a payment for a cancelled booking")
		}
		if current.PaymentStatus == model.PaymentCompleted {
			if current.Payment != nil && current.Payment.PaymentRef == req.PaymentRef {
				return current, nil
			}
			return nil, apperrors.Conflict("Booking is already paid with a different payment reference")
		}

		paid, err := s.repo.MarkPaid(ctx, id, model.PaymentDetails{
			PaymentRef:    req.PaymentRef,
			PaymentMethod: req.PaymentMethod,
			PaidAt:        s.clock.Now().UTC(),
		})
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			continue
		}
		if err != nil {
			s.cfg.Log.Error("Failed to mark booking paid", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to record payment", err)
		}

		s.cfg.Log.Info("Booking marked paid", "id", id, "payment_ref", req.PaymentRef)
		return paid, nil
	}

	return nil, apperrors.Conflict("Booking was modified concurrently, please retry")
}

// --- Helpers ---

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) sanitize(req *model.CreateBookingRequest) {
	req.TourID = sanitizer.SanitizeIdentifier(req.TourID)
	req.SpecialRequests = sanitizer.SanitizeFreeText(req.SpecialRequests)
	if h := req.HotelBooking; h != nil {
		h.HotelID = sanitizer.SanitizeIdentifier(h.HotelID)
		h.RoomID = sanitizer.SanitizeIdentifier(h.RoomID)
	}
}

func (s *bookingService) tourError(tourID string, err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrTourNotFound):
		return apperrors.NotFoundWithID("Tour", tourID)
	case errors.Is(err, bookingserrors.ErrTourUnavailable):
		s.cfg.Log.Error("Tour catalog unavailable", "tour_id", tourID, "error", err)
		return apperrors.Unavailable("tour catalog")
	default:
		s.cfg.Log.Error("Failed to load tour", "tour_id", tourID, "error", err)
		return apperrors.Internal("Failed to load tour", err)
	}
}

// RequireAdmin rejects anonymous callers with 401 and everyone else but admins with 403.
func RequireAdmin(actor model.Actor) error {
	if actor.IsAnonymous() {
		return apperrors.Unauthorized("Authentication required")
	}
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Admin role required")
	}
	return nil
}

func authorize(actor model.Actor, booking *model.Booking) error {
	if actor.CanAccess(booking.CustomerRef) {
		return nil
	}
	if actor.IsAnonymous() {
		return apperrors.Unauthorized("Authentication required")
	}
	return apperrors.Forbidden("You do not have access to this booking")
}
