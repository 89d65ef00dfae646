package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

// EventCatalogStore captures the event storage interactions the catalog
// service needs.
type EventCatalogStore interface {
	CreateEvent(ctx context.Context, event persistence.Event) error
	UpdateEvent(ctx context.Context, event persistence.Event) error
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
	ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventBookingReader exposes the booking reads used for stats and exports.
type EventBookingReader interface {
	ListBookingsForEvent(ctx context.Context, eventID string) ([]persistence.Booking, error)
}

// AttendeeUserReader resolves attendee identities for the export.
type AttendeeUserReader interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
}

// Event types accepted by the catalog.
var eventTypes = map[string]struct{}{
	"lecture":      {},
	"lab":          {},
	"office_hours": {},
}

// EventService manages the event catalog: staff create, update and delete
// their own events, everyone reads them with live occupancy stats.
type EventService struct {
	events      EventCatalogStore
	bookings    EventBookingReader
	users       AttendeeUserReader
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for the catalog service.
func NewEventService(events EventCatalogStore, bookings EventBookingReader, users AttendeeUserReader, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		bookings:    bookings,
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent adds a catalog entry owned by the calling staff member.
func (s *EventService) CreateEvent(ctx context.Context, principal Principal, input EventInput) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if !principal.IsStaff() {
		return Event{}, ErrUnauthorized
	}
	if err := validateEventInput(input); err != nil {
		return Event{}, err
	}

	event := persistence.Event{
		ID:               s.idGenerator(),
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Type:             input.Type,
		Department:       input.Department,
		Date:             input.Date,
		StartTime:        input.StartTime,
		EndTime:          input.EndTime,
		Location:         input.Location,
		Capacity:         input.Capacity,
		AllowOverbooking: input.AllowOverbooking,
		Instructor:       principal.FullName,
		InstructorID:     principal.UserID,
		CreatedAt:        s.now(),
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return Event{}, err
	}

	s.loggerWith(ctx, "CreateEvent", "event_id", event.ID).InfoContext(ctx, "event created", "title", event.Title, "capacity", event.Capacity)
	return toEvent(event), nil
}

// UpdateEvent replaces the mutable fields of an event the caller owns.
// Ownership, creation time and identity survive the update. A capacity
// increase does not seat waitlisted bookings by itself; the next
// seat-freeing operation or sweep on the event promotes into the new room.
func (s *EventService) UpdateEvent(ctx context.Context, principal Principal, eventID string, input EventInput) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	current, err := s.ownedEvent(ctx, principal, eventID)
	if err != nil {
		return Event{}, err
	}
	if err := validateEventInput(input); err != nil {
		return Event{}, err
	}

	current.Title = strings.TrimSpace(input.Title)
	current.Description = input.Description
	current.Type = input.Type
	current.Department = input.Department
	current.Date = input.Date
	current.StartTime = input.StartTime
	current.EndTime = input.EndTime
	current.Location = input.Location
	current.Capacity = input.Capacity
	current.AllowOverbooking = input.AllowOverbooking

	if err := s.events.UpdateEvent(ctx, current); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}

	s.loggerWith(ctx, "UpdateEvent", "event_id", eventID).InfoContext(ctx, "event updated")
	return toEvent(current), nil
}

// DeleteEvent removes an event the caller owns together with all of its
// bookings. There is nothing to promote afterwards; the queue disappears
// with the event.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if _, err := s.ownedEvent(ctx, principal, eventID); err != nil {
		return err
	}
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	s.loggerWith(ctx, "DeleteEvent", "event_id", eventID).InfoContext(ctx, "event deleted")
	return nil
}

// GetEvent returns one catalog entry with its occupancy stats.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (EventWithStats, error) {
	if s == nil {
		return EventWithStats{}, fmt.Errorf("EventService is nil")
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return EventWithStats{}, ErrEventNotFound
		}
		return EventWithStats{}, err
	}
	return s.withStats(ctx, event)
}

// ListEvents returns the catalog, optionally narrowed by type, department or
// instructor, each entry carrying its occupancy stats.
func (s *EventService) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]EventWithStats, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]EventWithStats, 0, len(events))
	for _, event := range events {
		entry, err := s.withStats(ctx, event)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// ListOwnEvents returns the catalog entries the calling staff member
// teaches, each with occupancy stats. Students have no events of their own.
func (s *EventService) ListOwnEvents(ctx context.Context, principal Principal) ([]EventWithStats, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if !principal.IsStaff() {
		return nil, ErrUnauthorized
	}
	return s.ListEvents(ctx, persistence.EventFilter{InstructorID: principal.UserID})
}

// Attendees returns the export rows for an event the caller owns: confirmed
// seats first, then live holds, then the waitlist in queue order.
func (s *EventService) Attendees(ctx context.Context, principal Principal, eventID string) ([]AttendeeRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	event, err := s.ownedEvent(ctx, principal, eventID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListBookingsForEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sort.SliceStable(bookings, func(i, j int) bool {
		ri, rj := exportRank(bookings[i], now), exportRank(bookings[j], now)
		if ri != rj {
			return ri < rj
		}
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].Sequence < bookings[j].Sequence
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})

	records := make([]AttendeeRecord, 0, len(bookings))
	for _, bk := range bookings {
		user, err := s.users.GetUser(ctx, bk.UserID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, err
		}
		records = append(records, AttendeeRecord{
			FullName:   user.FullName,
			Username:   user.Username,
			Department: user.Department,
			Status:     bk.Status,
			BookedAt:   bk.CreatedAt,
		})
	}
	return records, nil
}

// exportRank orders export rows: confirmed, live holds, expired holds, then
// the waitlist.
func exportRank(bk persistence.Booking, now time.Time) int {
	switch bk.Status {
	case string(booking.StatusConfirmed):
		return 0
	case string(booking.StatusHold):
		if bk.HoldExpiresAt != nil && !now.Before(*bk.HoldExpiresAt) {
			return 2
		}
		return 1
	default:
		return 3
	}
}

func (s *EventService) withStats(ctx context.Context, event persistence.Event) (EventWithStats, error) {
	bookings, err := s.bookings.ListBookingsForEvent(ctx, event.ID)
	if err != nil {
		return EventWithStats{}, err
	}

	now := s.now()
	stats := EventStats{EffectiveCapacity: booking.EffectiveCapacity(event.Capacity, event.AllowOverbooking)}
	for _, bk := range bookings {
		domain := booking.Booking{Status: booking.Status(bk.Status), HoldExpiresAt: bk.HoldExpiresAt}
		switch {
		case bk.Status == string(booking.StatusConfirmed):
			stats.ConfirmedCount++
		case bk.Status == string(booking.StatusHold) && domain.OccupiesSeat(now):
			stats.HoldCount++
		case bk.Status == string(booking.StatusWaitlisted):
			stats.WaitlistedCount++
		}
	}
	stats.RemainingSlots = booking.RemainingSlots(stats.EffectiveCapacity, stats.ConfirmedCount+stats.HoldCount)

	return EventWithStats{Event: toEvent(event), Stats: stats}, nil
}

// ownedEvent fetches an event and verifies the calling staff member owns it.
func (s *EventService) ownedEvent(ctx context.Context, principal Principal, eventID string) (persistence.Event, error) {
	if !principal.IsStaff() {
		return persistence.Event{}, ErrUnauthorized
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Event{}, ErrEventNotFound
		}
		return persistence.Event{}, err
	}
	if event.InstructorID != principal.UserID {
		return persistence.Event{}, ErrNotOwner
	}
	return event, nil
}

func validateEventInput(input EventInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if _, ok := eventTypes[input.Type]; !ok {
		vErr.add("type", "type must be one of lecture, lab, office_hours")
	}
	if strings.TrimSpace(input.Department) == "" {
		vErr.add("department", "department is required")
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		vErr.add("date", "date must use the YYYY-MM-DD format")
	}
	start, startErr := time.Parse("15:04", input.StartTime)
	if startErr != nil {
		vErr.add("start_time", "start time must use the HH:MM format")
	}
	end, endErr := time.Parse("15:04", input.EndTime)
	if endErr != nil {
		vErr.add("end_time", "end time must use the HH:MM format")
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		vErr.add("end_time", "end time must be after the start time")
	}
	if strings.TrimSpace(input.Location) == "" {
		vErr.add("location", "location is required")
	}
	if input.Capacity < 1 {
		vErr.add("capacity", "capacity must be at least 1")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
