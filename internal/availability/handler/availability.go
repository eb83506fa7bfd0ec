package handler

import (
	"net/http"
	"time"
	"tourbook/internal/availability/service"
	apperrors "tourbook/pkg/errors"
	httputil "tourbook/pkg/http"
	"tourbook/pkg/logger"
	"tourbook/pkg/middleware"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	availability service.AvailabilityService
	calendar     service.CalendarService
	log          *logger.Logger
}

func NewAvailabilityHandler(availability service.AvailabilityService, calendar service.CalendarService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		calendar:     calendar,
		log:          log,
	}
}

func (h *AvailabilityHandler) CheckRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RoomRangeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "CheckRoom", err)
		return
	}

	check, err := h.availability.CheckRoom(r.Context(), req.HotelID, req.RoomID, req.CheckIn.Time(), req.CheckOut.Time())
	if err != nil {
		h.writeError(w, r, "CheckRoom", err)
		return
	}

	if err := httputil.WriteSuccess(w, check); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckRoom", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) ReleaseRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RoomRangeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "ReleaseRoom", err)
		return
	}

	actor := middleware.ActorFrom(r.Context())
	if err := h.availability.ReleaseRoom(r.Context(), actor, req.HotelID, req.RoomID, req.CheckIn.Time(), req.CheckOut.Time()); err != nil {
		h.writeError(w, r, "ReleaseRoom", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) SetStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SetAvailabilityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "SetStatus", err)
		return
	}

	record, err := h.availability.SetStatus(r.Context(), middleware.ActorFrom(r.Context()), &req)
	if err != nil {
		h.writeError(w, r, "SetStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, record); err != nil {
		h.log.Error("failed to write success response", "handler", "SetStatus", "operation", "WriteSuccess", "error", err)
	}
}

// Calendar serves GET /api/v1/availability/calendar?resource_key=&year=&month=.
// tour_id is accepted in place of resource_key; year and month default to the
// current month.
func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	resourceKey := query.Get("resource_key")
	if resourceKey == "" && query.Get("tour_id") != "" {
		resourceKey = model.TourResource(query.Get("tour_id"))
	}
	if resourceKey == "" {
		h.writeError(w, r, "Calendar", apperrors.InvalidInput("resource_key or tour_id query parameter is required"))
		return
	}

	now := time.Now().UTC()
	year, err := httputil.ExtractInt(r, "year", now.Year())
	if err != nil {
		h.writeError(w, r, "Calendar", err)
		return
	}
	month, err := httputil.ExtractInt(r, "month", int(now.Month()))
	if err != nil {
		h.writeError(w, r, "Calendar", err)
		return
	}

	days, err := h.calendar.GetMonth(r.Context(), resourceKey, year, month)
	if err != nil {
		h.writeError(w, r, "Calendar", err)
		return
	}

	view := model.CalendarView{
		ResourceKey: resourceKey,
		Year:        year,
		Month:       month,
		Days:        days,
	}
	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Calendar", "operation", "WriteSuccess", "error", err)
	}
}

// writeError renders err. Server-side failures are logged with their cause,
// which the response never shows.
func (h *AvailabilityHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	log := logger.FromContext(r.Context(), h.log)
	if appErr := apperrors.AsAppError(err); appErr.StatusCode() >= http.StatusInternalServerError {
		log.Error("Request failed", "handler", handler, "code", appErr.Code, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/availability/rooms/check", h.CheckRoom)
	router.POST("/api/v1/availability/rooms/release", h.ReleaseRoom)
	router.PUT("/api/v1/availability", h.SetStatus)
	router.GET("/api/v1/availability/calendar", h.Calendar)
}
