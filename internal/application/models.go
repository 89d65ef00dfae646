package application

import (
	"time"

	"github.com/example/campus-bookings/internal/booking"
)

// Role names accepted by the service.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID     string
	Role       string
	Department string
	FullName   string
}

// IsStaff reports whether the principal holds the staff role.
func (p Principal) IsStaff() bool { return p.Role == RoleStaff }

// IsStudent reports whether the principal holds the student role.
func (p Principal) IsStudent() bool { return p.Role == RoleStudent }

// User represents an account exposed by the application services. The
// password hash never leaves the persistence layer through this type.
type User struct {
	ID         string
	Username   string
	Role       string
	Department string
	FullName   string
}

// Booking represents a seat reservation exposed to callers.
type Booking struct {
	ID               string
	EventID          string
	UserID           string
	Status           booking.Status
	CreatedAt        time.Time
	HoldExpiresAt    *time.Time
	WaitlistPosition *int
}

// Event represents a catalog entry exposed to callers.
type Event struct {
	ID               string
	Title            string
	Description      string
	Type             string
	Department       string
	Date             string
	StartTime        string
	EndTime          string
	Location         string
	Capacity         int
	AllowOverbooking bool
	Instructor       string
	InstructorID     string
	CreatedAt        time.Time
}

// EventStats carries the occupancy summary computed for one event.
type EventStats struct {
	ConfirmedCount    int
	HoldCount         int
	WaitlistedCount   int
	EffectiveCapacity int
	RemainingSlots    int
}

// EventWithStats pairs a catalog entry with its current occupancy summary.
type EventWithStats struct {
	Event
	Stats EventStats
}

// BookingWithEvent pairs a booking with its event for listings.
type BookingWithEvent struct {
	Booking
	Event Event
}

// AttendeeRecord is one row of the staff attendee export.
type AttendeeRecord struct {
	FullName   string
	Username   string
	Department string
	Status     string
	BookedAt   time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title            string
	Description      string
	Type             string
	Department       string
	Date             string
	StartTime        string
	EndTime          string
	Location         string
	Capacity         int
	AllowOverbooking bool
}

// RequestBookingParams wraps the data required to request a seat.
type RequestBookingParams struct {
	Principal Principal
	EventID   string
	WantsHold bool
}

// RescheduleParams wraps the data required to move a booking between events.
type RescheduleParams struct {
	Principal  Principal
	BookingID  string
	NewEventID string
}

// SweepResult summarizes one expiry sweeper pass.
type SweepResult struct {
	ExpiredCount   int
	AffectedEvents int
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Username string
	Password string
}

// LoginResult captures the outcome of a successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}
