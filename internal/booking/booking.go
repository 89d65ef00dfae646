// Package booking holds the pure decision logic of the seat allocation
// engine: effective capacity, the booking state machine, occupancy counting
// and waitlist ordering. Everything here is deterministic and free of I/O;
// the application layer supplies persistence and per-event serialization.
package booking

import "time"

// Status enumerates the lifecycle states of a booking.
type Status string

const (
	// StatusHold is a time-boxed provisional reservation that occupies a
	// seat until it is confirmed or expires.
	StatusHold Status = "hold"
	// StatusConfirmed is a durable seat reservation.
	StatusConfirmed Status = "confirmed"
	// StatusWaitlisted is a queued request awaiting a freed seat.
	StatusWaitlisted Status = "waitlisted"
	// StatusCancelled is terminal. Cancelled bookings are removed from the
	// ledger, so the status never appears on a stored record; it exists so
	// transitions into it can be validated.
	StatusCancelled Status = "cancelled"
)

// HoldTTL is the fixed lifetime of a provisional reservation.
const HoldTTL = 15 * time.Minute

// Booking carries the fields the engine needs to make allocation decisions.
type Booking struct {
	ID       string
	EventID  string
	UserID   string
	Status   Status
	// CreatedAt orders the waitlist. Sequence breaks ties between bookings
	// created at the same instant, following insertion order.
	CreatedAt        time.Time
	Sequence         int64
	HoldExpiresAt    *time.Time
	WaitlistPosition *int
}

// OccupiesSeat reports whether the booking counts against capacity at the
// given instant. Confirmed bookings always occupy a seat; holds occupy one
// only until they expire, even before the sweeper removes them.
func (b Booking) OccupiesSeat(now time.Time) bool {
	switch b.Status {
	case StatusConfirmed:
		return true
	case StatusHold:
		return b.HoldExpiresAt == nil || now.Before(*b.HoldExpiresAt)
	default:
		return false
	}
}

// HoldExpired reports whether the booking is a hold whose deadline has passed.
func (b Booking) HoldExpired(now time.Time) bool {
	return b.Status == StatusHold && b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt)
}

// CanTransition reports whether the state machine permits moving a booking
// from one status to another. Creation transitions (into hold, confirmed or
// waitlisted from nothing) are decided by Decide and are not covered here.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusHold:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	case StatusWaitlisted:
		return to == StatusConfirmed || to == StatusCancelled
	default:
		return false
	}
}

// ActiveOccupancy counts the bookings that occupy a seat at the given
// instant. Expired holds are excluded even if they have not been swept yet.
func ActiveOccupancy(bookings []Booking, now time.Time) int {
	count := 0
	for _, b := range bookings {
		if b.OccupiesSeat(now) {
			count++
		}
	}
	return count
}

// Decide determines the status of a brand-new booking request given the
// current occupancy and the event's effective capacity. A request is seated
// (as a hold or a confirmation, per wantsHold) while occupancy is below
// capacity and waitlisted otherwise, regardless of the hold flag.
func Decide(occupancy, effectiveCapacity int, wantsHold bool) Status {
	if occupancy >= effectiveCapacity {
		return StatusWaitlisted
	}
	if wantsHold {
		return StatusHold
	}
	return StatusConfirmed
}
