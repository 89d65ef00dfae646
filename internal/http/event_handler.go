package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/persistence"
)

type eventService interface {
	CreateEvent(ctx context.Context, principal application.Principal, input application.EventInput) (application.Event, error)
	UpdateEvent(ctx context.Context, principal application.Principal, eventID string, input application.EventInput) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	GetEvent(ctx context.Context, eventID string) (application.EventWithStats, error)
	ListEvents(ctx context.Context, filter persistence.EventFilter) ([]application.EventWithStats, error)
	ListOwnEvents(ctx context.Context, principal application.Principal) ([]application.EventWithStats, error)
	Attendees(ctx context.Context, principal application.Principal, eventID string) ([]application.AttendeeRecord, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filter := persistence.EventFilter{
		Type:       r.URL.Query().Get("type"),
		Department: r.URL.Query().Get("department"),
	}

	events, err := h.service.ListEvents(r.Context(), filter)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list events", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]eventDTO, len(events))
	for i, event := range events {
		payload[i] = toEventDTO(event)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// ListOwn returns the events taught by the authenticated staff member.
func (h *EventHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	events, err := h.service.ListOwnEvents(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "ListOwn").ErrorContext(r.Context(), "failed to list own events", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := make([]eventDTO, len(events))
	for i, event := range events {
		payload[i] = toEventDTO(event)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	eventID, ok := EventIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).ErrorContext(r.Context(), "failed to fetch event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.CreateEvent(r.Context(), principal, req.toInput())
	if err != nil {
		h.log(r.Context(), "Create").ErrorContext(r.Context(), "failed to create event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(application.EventWithStats{Event: event}))
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	eventID, ok := EventIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.UpdateEvent(r.Context(), principal, eventID, req.toInput())
	if err != nil {
		h.log(r.Context(), "Update", "event_id", eventID).ErrorContext(r.Context(), "failed to update event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(application.EventWithStats{Event: event}))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	eventID, ok := EventIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.log(r.Context(), "Delete", "event_id", eventID).ErrorContext(r.Context(), "failed to delete event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "event_id", eventID).InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Export streams the attendee list of an owned event as CSV.
func (h *EventHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	eventID, ok := EventIDFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	records, err := h.service.Attendees(r.Context(), principal, eventID)
	if err != nil {
		h.log(r.Context(), "Export", "event_id", eventID).ErrorContext(r.Context(), "failed to export attendees", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "attendees-"+eventID+".csv"))
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	rows := [][]string{{"full_name", "username", "department", "status", "booked_at"}}
	for _, record := range records {
		rows = append(rows, []string{
			record.FullName,
			record.Username,
			record.Department,
			record.Status,
			record.BookedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		h.log(r.Context(), "Export", "event_id", eventID).ErrorContext(r.Context(), "failed to write csv", "error", err)
	}
}

type eventRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Type             string `json:"type"`
	Department       string `json:"department"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Location         string `json:"location"`
	Capacity         int    `json:"capacity"`
	AllowOverbooking bool   `json:"allow_overbooking"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Title:            r.Title,
		Description:      r.Description,
		Type:             r.Type,
		Department:       r.Department,
		Date:             r.Date,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		Location:         r.Location,
		Capacity:         r.Capacity,
		AllowOverbooking: r.AllowOverbooking,
	}
}

type eventDTO struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	Type             string        `json:"type"`
	Department       string        `json:"department"`
	Date             string        `json:"date"`
	StartTime        string        `json:"start_time"`
	EndTime          string        `json:"end_time"`
	Location         string        `json:"location"`
	Capacity         int           `json:"capacity"`
	AllowOverbooking bool          `json:"allow_overbooking"`
	Instructor       string        `json:"instructor"`
	InstructorID     string        `json:"instructor_id"`
	CreatedAt        string        `json:"created_at"`
	Stats            eventStatsDTO `json:"stats"`
}

type eventStatsDTO struct {
	ConfirmedCount    int `json:"confirmed_count"`
	HoldCount         int `json:"hold_count"`
	WaitlistedCount   int `json:"waitlisted_count"`
	EffectiveCapacity int `json:"effective_capacity"`
	RemainingSlots    int `json:"remaining_slots"`
}

func toEventDTO(event application.EventWithStats) eventDTO {
	return eventDTO{
		ID:               event.ID,
		Title:            event.Title,
		Description:      event.Description,
		Type:             event.Type,
		Department:       event.Department,
		Date:             event.Date,
		StartTime:        event.StartTime,
		EndTime:          event.EndTime,
		Location:         event.Location,
		Capacity:         event.Capacity,
		AllowOverbooking: event.AllowOverbooking,
		Instructor:       event.Instructor,
		InstructorID:     event.InstructorID,
		CreatedAt:        event.CreatedAt.UTC().Format(time.RFC3339Nano),
		Stats: eventStatsDTO{
			ConfirmedCount:    event.Stats.ConfirmedCount,
			HoldCount:         event.Stats.HoldCount,
			WaitlistedCount:   event.Stats.WaitlistedCount,
			EffectiveCapacity: event.Stats.EffectiveCapacity,
			RemainingSlots:    event.Stats.RemainingSlots,
		},
	}
}
