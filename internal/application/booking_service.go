package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

// BookingLedger captures the booking storage interactions the engine needs.
type BookingLedger interface {
	CreateBooking(ctx context.Context, bk persistence.Booking) (persistence.Booking, error)
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	UpdateBooking(ctx context.Context, bk persistence.Booking) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookingsForEvent(ctx context.Context, eventID string) ([]persistence.Booking, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error)
	ListExpiredHolds(ctx context.Context, reference time.Time) ([]persistence.Booking, error)
}

// EventCatalog exposes the read-only event lookups the engine consumes.
type EventCatalog interface {
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
}

// BookingService is the booking and capacity allocation engine. It decides
// for every intent whether a seat is granted, held or queued, and keeps seat
// counts, waitlist order and hold deadlines consistent under concurrency.
//
// Every sequence that reads occupancy and then writes runs under the event's
// lock, so two concurrent requests for the last seat serialize and the
// second one lands on the waitlist. Waitlist promotion runs before the
// operation that freed the seat returns.
type BookingService struct {
	ledger      BookingLedger
	catalog     EventCatalog
	locks       *eventLocks
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for the allocation engine.
func NewBookingService(ledger BookingLedger, catalog EventCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		ledger:      ledger,
		catalog:     catalog,
		locks:       newEventLocks(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// RequestBooking applies a booking intent: the seat is confirmed or held
// while occupancy is below the event's effective capacity and waitlisted
// otherwise. Only students may book, and only events of their department.
func (s *BookingService) RequestBooking(ctx context.Context, params RequestBookingParams) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	principal := params.Principal
	logger := s.loggerWith(ctx, "RequestBooking", "event_id", params.EventID, "user_id", principal.UserID, "wants_hold", params.WantsHold)

	if !principal.IsStudent() {
		return Booking{}, ErrUnauthorized
	}

	event, err := s.getEvent(ctx, params.EventID)
	if err != nil {
		return Booking{}, err
	}
	if event.Department != principal.Department {
		return Booking{}, ErrDepartmentMismatch
	}

	unlock := s.locks.Lock(event.ID)
	defer unlock()

	bookings, err := s.ledger.ListBookingsForEvent(ctx, event.ID)
	if err != nil {
		return Booking{}, err
	}
	for _, existing := range bookings {
		if existing.UserID == principal.UserID {
			return Booking{}, ErrAlreadyBooked
		}
	}

	now := s.now()
	occupancy := booking.ActiveOccupancy(toDomainBookings(bookings), now)
	capacity := booking.EffectiveCapacity(event.Capacity, event.AllowOverbooking)
	status := booking.Decide(occupancy, capacity, params.WantsHold)

	record := persistence.Booking{
		ID:        s.idGenerator(),
		EventID:   event.ID,
		UserID:    principal.UserID,
		Status:    string(status),
		CreatedAt: now,
	}
	if status == booking.StatusHold {
		expires := now.Add(booking.HoldTTL)
		record.HoldExpiresAt = &expires
	}

	created, err := s.ledger.CreateBooking(ctx, record)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return Booking{}, ErrAlreadyBooked
		}
		return Booking{}, err
	}

	if status == booking.StatusWaitlisted {
		if err := s.renumberLocked(ctx, event.ID); err != nil {
			return Booking{}, err
		}
		// Re-read so the caller sees the assigned position.
		created, err = s.ledger.GetBooking(ctx, created.ID)
		if err != nil {
			return Booking{}, err
		}
	}

	logger.InfoContext(ctx, "booking created", "booking_id", created.ID, "status", created.Status, "occupancy", occupancy, "capacity", capacity)
	return toBooking(created), nil
}

// ConfirmHold turns a live hold into a confirmed seat. Confirming an expired
// hold reclaims it, promotes the waitlist and reports ErrHoldExpired.
func (s *BookingService) ConfirmHold(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	logger := s.loggerWith(ctx, "ConfirmHold", "booking_id", bookingID, "user_id", principal.UserID)

	stored, err := s.getOwnedBooking(ctx, principal, bookingID)
	if err != nil {
		return Booking{}, err
	}

	unlock := s.locks.Lock(stored.EventID)
	defer unlock()

	// Re-read under the lock; a sweep or cancel may have raced ahead.
	stored, err = s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}

	if stored.Status != string(booking.StatusHold) {
		return Booking{}, ErrNotAHold
	}

	now := s.now()
	if toDomainBooking(stored).HoldExpired(now) {
		// Lazy expiry: reclaim the seat before reporting the failure.
		if err := s.ledger.DeleteBooking(ctx, stored.ID); err != nil {
			return Booking{}, err
		}
		if err := s.promoteLocked(ctx, stored.EventID); err != nil {
			return Booking{}, err
		}
		logger.InfoContext(ctx, "expired hold reclaimed on confirm", "event_id", stored.EventID)
		return Booking{}, ErrHoldExpired
	}

	if err := transition(&stored, booking.StatusConfirmed); err != nil {
		return Booking{}, err
	}
	stored.HoldExpiresAt = nil
	if err := s.ledger.UpdateBooking(ctx, stored); err != nil {
		return Booking{}, err
	}

	logger.InfoContext(ctx, "hold confirmed", "event_id", stored.EventID)
	return toBooking(stored), nil
}

// CancelBooking removes the caller's booking. Cancelling a seated booking
// promotes the waitlist before returning; cancelling a waitlisted booking
// renumbers the remaining queue.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID string) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	logger := s.loggerWith(ctx, "CancelBooking", "booking_id", bookingID, "user_id", principal.UserID)

	stored, err := s.getOwnedBooking(ctx, principal, bookingID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(stored.EventID)
	defer unlock()

	stored, err = s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	wasWaitlisted := stored.Status == string(booking.StatusWaitlisted)
	if err := s.ledger.DeleteBooking(ctx, stored.ID); err != nil {
		return err
	}

	if wasWaitlisted {
		err = s.renumberLocked(ctx, stored.EventID)
	} else {
		err = s.promoteLocked(ctx, stored.EventID)
	}
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "booking cancelled", "event_id", stored.EventID, "was_waitlisted", wasWaitlisted)
	return nil
}

// WaitlistPosition reports the caller's 1-based rank on an event's waitlist.
func (s *BookingService) WaitlistPosition(ctx context.Context, principal Principal, bookingID string) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("BookingService is nil")
	}

	stored, err := s.getOwnedBooking(ctx, principal, bookingID)
	if err != nil {
		return 0, err
	}
	if stored.Status != string(booking.StatusWaitlisted) || stored.WaitlistPosition == nil {
		return 0, ErrNotWaitlisted
	}
	return *stored.WaitlistPosition, nil
}

// Reschedule moves a confirmed or waitlisted booking to another event as one
// atomic step: no observer sees the user without a booking in both events.
// Holds must be confirmed or cancelled first.
func (s *BookingService) Reschedule(ctx context.Context, params RescheduleParams) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	principal := params.Principal
	logger := s.loggerWith(ctx, "Reschedule", "booking_id", params.BookingID, "user_id", principal.UserID, "new_event_id", params.NewEventID)

	stored, err := s.getOwnedBooking(ctx, principal, params.BookingID)
	if err != nil {
		return Booking{}, err
	}
	if stored.Status != string(booking.StatusConfirmed) && stored.Status != string(booking.StatusWaitlisted) {
		return Booking{}, ErrInvalidTransition
	}
	if stored.EventID == params.NewEventID {
		return Booking{}, ErrAlreadyBooked
	}

	target, err := s.getEvent(ctx, params.NewEventID)
	if err != nil {
		return Booking{}, err
	}
	if principal.IsStudent() && target.Department != principal.Department {
		return Booking{}, ErrDepartmentMismatch
	}

	unlock := s.locks.LockPair(stored.EventID, target.ID)
	defer unlock()

	// Re-read under both locks; the booking may have moved or been swept.
	current, err := s.ledger.GetBooking(ctx, params.BookingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	if current.EventID != stored.EventID || current.Status != stored.Status {
		return Booking{}, ErrConcurrencyConflict
	}

	targetBookings, err := s.ledger.ListBookingsForEvent(ctx, target.ID)
	if err != nil {
		return Booking{}, err
	}
	for _, existing := range targetBookings {
		if existing.UserID == principal.UserID {
			return Booking{}, ErrAlreadyBooked
		}
	}

	wasWaitlisted := current.Status == string(booking.StatusWaitlisted)
	sourceEventID := current.EventID

	if err := s.ledger.DeleteBooking(ctx, current.ID); err != nil {
		return Booking{}, err
	}

	now := s.now()
	occupancy := booking.ActiveOccupancy(toDomainBookings(targetBookings), now)
	capacity := booking.EffectiveCapacity(target.Capacity, target.AllowOverbooking)
	status := booking.Decide(occupancy, capacity, false)

	moved, err := s.ledger.CreateBooking(ctx, persistence.Booking{
		ID:        current.ID,
		EventID:   target.ID,
		UserID:    principal.UserID,
		Status:    string(status),
		CreatedAt: now,
	})
	if err != nil {
		return Booking{}, err
	}

	if status == booking.StatusWaitlisted {
		if err := s.renumberLocked(ctx, target.ID); err != nil {
			return Booking{}, err
		}
		moved, err = s.ledger.GetBooking(ctx, moved.ID)
		if err != nil {
			return Booking{}, err
		}
	}

	if wasWaitlisted {
		err = s.renumberLocked(ctx, sourceEventID)
	} else {
		err = s.promoteLocked(ctx, sourceEventID)
	}
	if err != nil {
		return Booking{}, err
	}

	logger.InfoContext(ctx, "booking rescheduled", "from_event_id", sourceEventID, "status", moved.Status)
	return toBooking(moved), nil
}

// SweepExpiredHolds reclaims every hold past its deadline and promotes each
// affected event's waitlist once, after all of that event's expirations.
func (s *BookingService) SweepExpiredHolds(ctx context.Context) (SweepResult, error) {
	if s == nil {
		return SweepResult{}, fmt.Errorf("BookingService is nil")
	}
	logger := s.loggerWith(ctx, "SweepExpiredHolds")

	now := s.now()
	expired, err := s.ledger.ListExpiredHolds(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}
	if len(expired) == 0 {
		return SweepResult{}, nil
	}

	eventIDs := make([]string, 0, len(expired))
	seen := make(map[string]struct{}, len(expired))
	for _, hold := range expired {
		if _, ok := seen[hold.EventID]; ok {
			continue
		}
		seen[hold.EventID] = struct{}{}
		eventIDs = append(eventIDs, hold.EventID)
	}
	sort.Strings(eventIDs)

	result := SweepResult{}
	for _, eventID := range eventIDs {
		count, err := s.sweepEvent(ctx, eventID, now)
		if err != nil {
			return result, err
		}
		if count > 0 {
			result.ExpiredCount += count
			result.AffectedEvents++
		}
	}

	logger.InfoContext(ctx, "expired holds swept", "expired", result.ExpiredCount, "events", result.AffectedEvents)
	return result, nil
}

func (s *BookingService) sweepEvent(ctx context.Context, eventID string, now time.Time) (int, error) {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	// Re-read under the lock; a confirm may have saved a hold meanwhile.
	bookings, err := s.ledger.ListBookingsForEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, bk := range bookings {
		if toDomainBooking(bk).HoldExpired(now) {
			if err := s.ledger.DeleteBooking(ctx, bk.ID); err != nil {
				return count, err
			}
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.promoteLocked(ctx, eventID)
}

// ListUserBookings returns the caller's bookings paired with their events.
func (s *BookingService) ListUserBookings(ctx context.Context, principal Principal) ([]BookingWithEvent, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}

	bookings, err := s.ledger.ListBookingsForUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]BookingWithEvent, 0, len(bookings))
	for _, bk := range bookings {
		event, err := s.catalog.GetEvent(ctx, bk.EventID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, BookingWithEvent{Booking: toBooking(bk), Event: toEvent(event)})
	}
	return out, nil
}

// promoteLocked seats waitlisted bookings while capacity remains, then
// renumbers. The caller must hold the event's lock. Promotion loops so a
// bulk expiry that freed several seats fills them all in one pass.
func (s *BookingService) promoteLocked(ctx context.Context, eventID string) error {
	event, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			// The event was deleted; its bookings cascaded with it.
			return nil
		}
		return err
	}
	capacity := booking.EffectiveCapacity(event.Capacity, event.AllowOverbooking)

	for {
		bookings, err := s.ledger.ListBookingsForEvent(ctx, eventID)
		if err != nil {
			return err
		}
		now := s.now()
		domain := toDomainBookings(bookings)
		if booking.ActiveOccupancy(domain, now) >= capacity {
			break
		}
		next, ok := booking.NextInLine(domain)
		if !ok {
			break
		}

		promoted := findBooking(bookings, next.ID)
		if err := transition(&promoted, booking.StatusConfirmed); err != nil {
			return err
		}
		promoted.WaitlistPosition = nil
		if err := s.ledger.UpdateBooking(ctx, promoted); err != nil {
			return err
		}
	}

	return s.renumberLocked(ctx, eventID)
}

// renumberLocked reassigns contiguous 1..N waitlist positions. The caller
// must hold the event's lock.
func (s *BookingService) renumberLocked(ctx context.Context, eventID string) error {
	bookings, err := s.ledger.ListBookingsForEvent(ctx, eventID)
	if err != nil {
		return err
	}

	queue := booking.Positions(toDomainBookings(bookings))
	for _, entry := range queue {
		stored := findBooking(bookings, entry.ID)
		if stored.WaitlistPosition != nil && *stored.WaitlistPosition == *entry.WaitlistPosition {
			continue
		}
		stored.WaitlistPosition = entry.WaitlistPosition
		if err := s.ledger.UpdateBooking(ctx, stored); err != nil {
			return err
		}
	}
	return nil
}

// getOwnedBooking fetches a booking and verifies the caller owns it.
func (s *BookingService) getOwnedBooking(ctx context.Context, principal Principal, bookingID string) (persistence.Booking, error) {
	stored, err := s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Booking{}, ErrNotFound
		}
		return persistence.Booking{}, err
	}
	if stored.UserID != principal.UserID {
		return persistence.Booking{}, ErrNotOwner
	}
	return stored, nil
}

func (s *BookingService) getEvent(ctx context.Context, id string) (persistence.Event, error) {
	event, err := s.catalog.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Event{}, ErrEventNotFound
		}
		return persistence.Event{}, err
	}
	return event, nil
}

// transition applies a status change to a stored record after the state
// machine has validated it, refusing moves the lifecycle does not permit.
func transition(stored *persistence.Booking, to booking.Status) error {
	if !booking.CanTransition(booking.Status(stored.Status), to) {
		return ErrInvalidTransition
	}
	stored.Status = string(to)
	return nil
}

func findBooking(bookings []persistence.Booking, id string) persistence.Booking {
	for _, bk := range bookings {
		if bk.ID == id {
			return bk
		}
	}
	return persistence.Booking{}
}

func toDomainBooking(bk persistence.Booking) booking.Booking {
	return booking.Booking{
		ID:               bk.ID,
		EventID:          bk.EventID,
		UserID:           bk.UserID,
		Status:           booking.Status(bk.Status),
		CreatedAt:        bk.CreatedAt,
		Sequence:         bk.Sequence,
		HoldExpiresAt:    bk.HoldExpiresAt,
		WaitlistPosition: bk.WaitlistPosition,
	}
}

func toDomainBookings(bookings []persistence.Booking) []booking.Booking {
	out := make([]booking.Booking, len(bookings))
	for i, bk := range bookings {
		out[i] = toDomainBooking(bk)
	}
	return out
}

func toBooking(bk persistence.Booking) Booking {
	return Booking{
		ID:               bk.ID,
		EventID:          bk.EventID,
		UserID:           bk.UserID,
		Status:           booking.Status(bk.Status),
		CreatedAt:        bk.CreatedAt,
		HoldExpiresAt:    bk.HoldExpiresAt,
		WaitlistPosition: bk.WaitlistPosition,
	}
}

func toEvent(event persistence.Event) Event {
	return Event{
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
		CreatedAt:        event.CreatedAt,
	}
}
