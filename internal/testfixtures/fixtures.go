package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

var (
	userCounter    uint64
	eventCounter   uint64
	bookingCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic student account with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	user := persistence.User{
		ID:           fmt.Sprintf("user-%03d", idx),
		Username:     fmt.Sprintf("student%03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         "student",
		Department:   "Computer Science",
		FullName:     fmt.Sprintf("Student %03d", idx),
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(u *persistence.User) { u.Username = username }
}

// WithRole overrides the generated role.
func WithRole(role string) UserOption {
	return func(u *persistence.User) { u.Role = role }
}

// WithUserDepartment overrides the generated department.
func WithUserDepartment(department string) UserOption {
	return func(u *persistence.User) { u.Department = department }
}

// EventOption configures a generated event fixture.
type EventOption func(*persistence.Event)

// NewEventFixture returns a deterministic event with optional overrides.
func NewEventFixture(opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	event := persistence.Event{
		ID:           fmt.Sprintf("event-%03d", idx),
		Title:        fmt.Sprintf("Event %03d", idx),
		Type:         "lecture",
		Department:   "Computer Science",
		Date:         "2026-03-20",
		StartTime:    "10:00",
		EndTime:      "12:00",
		Location:     fmt.Sprintf("Room %03d", idx),
		Capacity:     10,
		Instructor:   "Dr. Vance",
		InstructorID: "staff-001",
		CreatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(e *persistence.Event) { e.ID = id }
}

// WithCapacity overrides the generated capacity.
func WithCapacity(capacity int) EventOption {
	return func(e *persistence.Event) { e.Capacity = capacity }
}

// WithOverbooking enables the overbooking allowance.
func WithOverbooking() EventOption {
	return func(e *persistence.Event) { e.AllowOverbooking = true }
}

// WithEventDepartment overrides the generated department.
func WithEventDepartment(department string) EventOption {
	return func(e *persistence.Event) { e.Department = department }
}

// WithInstructor overrides the generated instructor identity.
func WithInstructor(id, name string) EventOption {
	return func(e *persistence.Event) {
		e.InstructorID = id
		e.Instructor = name
	}
}

// BookingOption configures a generated booking fixture.
type BookingOption func(*persistence.Booking)

// NewBookingFixture returns a deterministic confirmed booking with optional
// overrides. The store assigns Sequence on insert, so fixtures leave it zero.
func NewBookingFixture(opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	bk := persistence.Booking{
		ID:        fmt.Sprintf("booking-%03d", idx),
		EventID:   "event-001",
		UserID:    fmt.Sprintf("user-%03d", idx),
		Status:    string(booking.StatusConfirmed),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&bk)
	}
	return bk
}

// WithBookingEvent overrides the booking's event.
func WithBookingEvent(eventID string) BookingOption {
	return func(b *persistence.Booking) { b.EventID = eventID }
}

// WithBookingUser overrides the booking's user.
func WithBookingUser(userID string) BookingOption {
	return func(b *persistence.Booking) { b.UserID = userID }
}

// AsHold marks the booking as a hold expiring at the given instant.
func AsHold(expiresAt time.Time) BookingOption {
	return func(b *persistence.Booking) {
		b.Status = string(booking.StatusHold)
		b.HoldExpiresAt = &expiresAt
	}
}

// AsWaitlisted marks the booking as waitlisted at the given position.
func AsWaitlisted(position int) BookingOption {
	return func(b *persistence.Booking) {
		b.Status = string(booking.StatusWaitlisted)
		b.WaitlistPosition = &position
	}
}

// SessionOption configures a generated session fixture.
type SessionOption func(*persistence.Session)

// NewSessionFixture returns a deterministic live session with optional overrides.
func NewSessionFixture(opts ...SessionOption) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	session := persistence.Session{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    fmt.Sprintf("user-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		CreatedAt: referenceTime,
		ExpiresAt: referenceTime.Add(12 * time.Hour),
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionUser overrides the session's user.
func WithSessionUser(userID string) SessionOption {
	return func(s *persistence.Session) { s.UserID = userID }
}

// WithSessionToken overrides the session token.
func WithSessionToken(token string) SessionOption {
	return func(s *persistence.Session) { s.Token = token }
}

// ExpiredAt marks the session as expired at the given instant.
func ExpiredAt(expiresAt time.Time) SessionOption {
	return func(s *persistence.Session) { s.ExpiresAt = expiresAt }
}
