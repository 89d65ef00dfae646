package booking

import "sort"

// Waitlisted filters the event's bookings down to the waitlisted ones in FIFO
// order: CreatedAt ascending, ties broken by the store-assigned sequence so
// simultaneous requests keep their insertion order.
func Waitlisted(bookings []Booking) []Booking {
	queue := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == StatusWaitlisted {
			queue = append(queue, b)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].CreatedAt.Equal(queue[j].CreatedAt) {
			return queue[i].Sequence < queue[j].Sequence
		}
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})
	return queue
}

// NextInLine returns the earliest waitlisted booking, or false when the
// waitlist is empty.
func NextInLine(bookings []Booking) (Booking, bool) {
	queue := Waitlisted(bookings)
	if len(queue) == 0 {
		return Booking{}, false
	}
	return queue[0], true
}

// Positions assigns contiguous 1..N waitlist positions in FIFO order and
// returns the renumbered queue. Callers persist any booking whose position
// changed.
func Positions(bookings []Booking) []Booking {
	queue := Waitlisted(bookings)
	for i := range queue {
		position := i + 1
		queue[i].WaitlistPosition = &position
	}
	return queue
}
