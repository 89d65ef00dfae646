package persistence

import "time"

// User represents a campus account able to authenticate against the service.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	Department   string
	FullName     string
}

// Event represents a bookable scheduled event in the catalog.
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

// Booking represents a stored seat reservation. Sequence is assigned by the
// store on insert and is strictly increasing, providing the FIFO tiebreak for
// bookings created at the same instant. HoldExpiresAt is set exactly when the
// status is hold; WaitlistPosition exactly when the status is waitlisted.
type Booking struct {
	ID               string
	EventID          string
	UserID           string
	Status           string
	CreatedAt        time.Time
	Sequence         int64
	HoldExpiresAt    *time.Time
	WaitlistPosition *int
}

// Session represents an issued authentication token.
type Session struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}
