package booking

import (
	"testing"
	"time"
)

func waitlistedAt(id string, created time.Time, seq int64) Booking {
	return Booking{ID: id, Status: StatusWaitlisted, CreatedAt: created, Sequence: seq}
}

func TestWaitlisted(t *testing.T) {
	now := testBase

	t.Run("orders by creation time ascending", func(t *testing.T) {
		bookings := []Booking{
			waitlistedAt("late", now.Add(2*time.Hour), 3),
			{ID: "seated", Status: StatusConfirmed, CreatedAt: now, Sequence: 1},
			waitlistedAt("early", now.Add(time.Hour), 2),
		}

		queue := Waitlisted(bookings)
		if len(queue) != 2 {
			t.Fatalf("expected 2 waitlisted bookings, got %d", len(queue))
		}
		if queue[0].ID != "early" || queue[1].ID != "late" {
			t.Fatalf("unexpected order: %s, %s", queue[0].ID, queue[1].ID)
		}
	})

	t.Run("breaks creation-time ties by sequence", func(t *testing.T) {
		bookings := []Booking{
			waitlistedAt("second", now, 8),
			waitlistedAt("first", now, 7),
		}

		queue := Waitlisted(bookings)
		if queue[0].ID != "first" || queue[1].ID != "second" {
			t.Fatalf("unexpected order: %s, %s", queue[0].ID, queue[1].ID)
		}
	})
}

func TestNextInLine(t *testing.T) {
	now := testBase

	t.Run("selects the earliest waitlisted booking", func(t *testing.T) {
		bookings := []Booking{
			waitlistedAt("b", now.Add(time.Minute), 2),
			waitlistedAt("a", now, 1),
		}
		next, ok := NextInLine(bookings)
		if !ok {
			t.Fatal("expected a next booking")
		}
		if next.ID != "a" {
			t.Fatalf("NextInLine = %s, want a", next.ID)
		}
	})

	t.Run("reports empty waitlist", func(t *testing.T) {
		bookings := []Booking{{ID: "x", Status: StatusConfirmed}}
		if _, ok := NextInLine(bookings); ok {
			t.Fatal("expected no next booking")
		}
	})
}

func TestPositions(t *testing.T) {
	now := testBase
	bookings := []Booking{
		waitlistedAt("third", now.Add(2*time.Second), 3),
		waitlistedAt("first", now, 1),
		{ID: "seated", Status: StatusConfirmed, CreatedAt: now, Sequence: 0},
		waitlistedAt("second", now.Add(time.Second), 2),
	}

	queue := Positions(bookings)
	if len(queue) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(queue))
	}
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if queue[i].ID != want {
			t.Fatalf("position %d assigned to %s, want %s", i+1, queue[i].ID, want)
		}
		if queue[i].WaitlistPosition == nil || *queue[i].WaitlistPosition != i+1 {
			t.Fatalf("booking %s has position %v, want %d", queue[i].ID, queue[i].WaitlistPosition, i+1)
		}
	}
}
