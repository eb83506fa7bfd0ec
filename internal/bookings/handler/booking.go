package handler

import (
	"net/http"
	"tourbook/internal/bookings/service"
	apperrors "tourbook/pkg/errors"
	httputil "tourbook/pkg/http"
	"tourbook/pkg/logger"
	"tourbook/pkg/middleware"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), middleware.ActorFrom(r.Context()), &req)
	if err != nil {
		h.writeError(w, r, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), middleware.ActorFrom(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, r, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, r, "ListMine", err)
		return
	}

	bookings, total, err := h.service.ListMine(r.Context(), middleware.ActorFrom(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, r, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

// ListAll serves the admin listing, optionally filtered by ?status=.
func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, r, "ListAll", err)
		return
	}

	status := r.URL.Query().Get("status")
	bookings, total, err := h.service.ListAll(r.Context(), middleware.ActorFrom(r.Context()), status, limit, offset)
	if err != nil {
		h.writeError(w, r, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.StatusUpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "UpdateStatus", err)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), middleware.ActorFrom(r.Context()), ps.ByName("id"), req.Status)
	if err != nil {
		h.writeError(w, r, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

// Cancel accepts an optional {"reason": "..."} body.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CancelRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, r, "Cancel", err)
			return
		}
	}

	booking, err := h.service.Cancel(r.Context(), middleware.ActorFrom(r.Context()), ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, r, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

// MarkPaid is the manual back-office path; the payment gateway normally
// reports through the payments topic.
func (h *BookingHandler) MarkPaid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := service.RequireAdmin(middleware.ActorFrom(r.Context())); err != nil {
		h.writeError(w, r, "MarkPaid", err)
		return
	}

	var req model.MarkPaidRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "MarkPaid", err)
		return
	}

	booking, err := h.service.MarkPaid(r.Context(), ps.ByName("id"), req.PaymentRef, req.PaymentMethod)
	if err != nil {
		h.writeError(w, r, "MarkPaid", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkPaid", "operation", "WriteSuccess", "error", err)
	}
}

// writeError renders err. Server-side failures are logged with their cause,
// which the response never shows.
func (h *BookingHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	log := logger.FromContext(r.Context(), h.log)
	if appErr := apperrors.AsAppError(err); appErr.StatusCode() >= http.StatusInternalServerError {
		log.Error("Request failed", "handler", handler, "code", appErr.Code, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.ListAll)
	router.GET("/api/v1/bookings/me", h.ListMine)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/id/:id/status", h.UpdateStatus)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/payment", h.MarkPaid)
}
