package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account storage operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// EventFilter narrows event catalog queries.
type EventFilter struct {
	Type         string
	Department   string
	InstructorID string
}

// EventRepository exposes catalog storage operations. DeleteEvent cascades to
// the event's bookings in the same atomic step.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// BookingRepository exposes ledger storage operations. Each method is atomic
// on its own; the read-decide-write sequences the engine performs across
// several calls are serialized by the engine's per-event locks, not here.
type BookingRepository interface {
	// CreateBooking assigns the store sequence and inserts the record,
	// returning ErrDuplicate when the user already has a booking for the
	// event. Every stored booking is active; cancellations delete the row.
	CreateBooking(ctx context.Context, bk Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, bk Booking) error
	// DeleteBooking is an idempotent removal; deleting an absent id is a
	// no-op so retried cancellations do not fail.
	DeleteBooking(ctx context.Context, id string) error
	ListBookingsForEvent(ctx context.Context, eventID string) ([]Booking, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]Booking, error)
	// ListExpiredHolds returns every hold whose deadline is at or before
	// the reference instant, across all events.
	ListExpiredHolds(ctx context.Context, reference time.Time) ([]Booking, error)
}

// SessionRepository exposes authentication session storage.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Store aggregates the repositories a fully wired service needs.
type Store interface {
	UserRepository
	EventRepository
	BookingRepository
	SessionRepository
}
