package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation, such as a staff member trying to book a seat.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrEventNotFound is returned when a booking intent references an
	// unknown event.
	ErrEventNotFound = errors.New("application: event not found")
	// ErrNotOwner is returned when a caller operates on a booking that
	// belongs to someone else.
	ErrNotOwner = errors.New("application: not the booking owner")
	// ErrAlreadyBooked is returned when the user already has an active
	// booking for the event, before any capacity check is made.
	ErrAlreadyBooked = errors.New("application: already booked")
	// ErrDepartmentMismatch is returned when a student requests a seat in
	// an event that belongs to a different department.
	ErrDepartmentMismatch = errors.New("application: event restricted to its department")
	// ErrNotAHold is returned when confirm is called on a booking that is
	// not a provisional hold.
	ErrNotAHold = errors.New("application: booking is not a hold")
	// ErrHoldExpired is returned when a hold is confirmed after its
	// deadline; the expired hold is reclaimed as a side effect.
	ErrHoldExpired = errors.New("application: hold expired")
	// ErrNotWaitlisted is returned when a waitlist position is requested
	// for a booking that is not waitlisted.
	ErrNotWaitlisted = errors.New("application: booking is not waitlisted")
	// ErrInvalidTransition is returned when an operation would move a
	// booking through a state change the lifecycle does not permit.
	ErrInvalidTransition = errors.New("application: invalid booking transition")
	// ErrConcurrencyConflict is returned when a booking changed under a
	// concurrent operation and the intent no longer applies.
	ErrConcurrencyConflict = errors.New("application: concurrent modification")
	// ErrInvalidCredentials is returned when authentication fails; it does
	// not reveal whether the account exists.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token is past its
	// expiry or has been revoked.
	ErrSessionExpired = errors.New("application: session expired")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
