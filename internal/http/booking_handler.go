package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/campus-bookings/internal/application"
)

type bookingService interface {
	RequestBooking(ctx context.Context, params application.RequestBookingParams) (application.Booking, error)
	ConfirmHold(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID string) error
	Reschedule(ctx context.Context, params application.RescheduleParams) (application.Booking, error)
	WaitlistPosition(ctx context.Context, principal application.Principal, bookingID string) (int, error)
	ListUserBookings(ctx context.Context, principal application.Principal) ([]application.BookingWithEvent, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) principal(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
	}
	return principal, ok
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	booking, err := h.service.RequestBooking(r.Context(), application.RequestBookingParams{
		Principal: principal,
		EventID:   req.EventID,
		WantsHold: req.WantsHold,
	})
	if err != nil {
		h.log(r.Context(), "Create", "event_id", req.EventID).ErrorContext(r.Context(), "failed to create booking", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "booking_id", booking.ID).InfoContext(r.Context(), "booking created", "status", booking.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBookingDTO(booking))
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListUserBookings(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "ListMine").ErrorContext(r.Context(), "failed to list bookings", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]bookingWithEventDTO, len(bookings))
	for i, entry := range bookings {
		payload[i] = bookingWithEventDTO{
			Booking: toBookingDTO(entry.Booking),
			Event:   toEventDTO(application.EventWithStats{Event: entry.Event}),
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	booking, err := h.service.ConfirmHold(r.Context(), principal, bookingID)
	if err != nil {
		h.log(r.Context(), "Confirm", "booking_id", bookingID).ErrorContext(r.Context(), "failed to confirm hold", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Confirm", "booking_id", bookingID).InfoContext(r.Context(), "hold confirmed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Reschedule", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reschedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	booking, err := h.service.Reschedule(r.Context(), application.RescheduleParams{
		Principal:  principal,
		BookingID:  bookingID,
		NewEventID: req.EventID,
	})
	if err != nil {
		h.log(r.Context(), "Reschedule", "booking_id", bookingID, "new_event_id", req.EventID).ErrorContext(r.Context(), "failed to reschedule booking", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Reschedule", "booking_id", bookingID).InfoContext(r.Context(), "booking rescheduled", "status", booking.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Position(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	position, err := h.service.WaitlistPosition(r.Context(), principal, bookingID)
	if err != nil {
		h.log(r.Context(), "Position", "booking_id", bookingID).ErrorContext(r.Context(), "failed to fetch waitlist position", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, positionResponse{Position: position})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.service.CancelBooking(r.Context(), principal, bookingID); err != nil {
		h.log(r.Context(), "Delete", "booking_id", bookingID).ErrorContext(r.Context(), "failed to cancel booking", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "booking_id", bookingID).InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type createBookingRequest struct {
	EventID   string `json:"event_id"`
	WantsHold bool   `json:"wants_hold"`
}

type rescheduleRequest struct {
	EventID string `json:"event_id"`
}

type positionResponse struct {
	Position int `json:"position"`
}

type bookingDTO struct {
	ID               string `json:"id"`
	EventID          string `json:"event_id"`
	UserID           string `json:"user_id"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	HoldExpiresAt    string `json:"hold_expires_at,omitempty"`
	WaitlistPosition *int   `json:"waitlist_position,omitempty"`
}

type bookingWithEventDTO struct {
	Booking bookingDTO `json:"booking"`
	Event   eventDTO   `json:"event"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	dto := bookingDTO{
		ID:               booking.ID,
		EventID:          booking.EventID,
		UserID:           booking.UserID,
		Status:           string(booking.Status),
		CreatedAt:        booking.CreatedAt.UTC().Format(time.RFC3339Nano),
		WaitlistPosition: booking.WaitlistPosition,
	}
	if booking.HoldExpiresAt != nil {
		dto.HoldExpiresAt = booking.HoldExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
