package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

var testBase = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func seedEvent(t *testing.T, store *Store, id string) persistence.Event {
	t.Helper()
	event := persistence.Event{
		ID:           id,
		Title:        "Introduction to Algorithms",
		Type:         "lecture",
		Department:   "Computer Science",
		Date:         "2025-06-10",
		StartTime:    "09:00",
		EndTime:      "11:00",
		Location:     "Room 301",
		Capacity:     2,
		Instructor:   "Dr. Sarah Smith",
		InstructorID: "staff-1",
		CreatedAt:    testBase,
	}
	if err := store.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return event
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	user := persistence.User{ID: "u1", Username: "alice", Role: "student", Department: "Computer Science", FullName: "Alice Johnson"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	t.Run("rejects duplicate usernames case-insensitively", func(t *testing.T) {
		dup := persistence.User{ID: "u2", Username: "Alice"}
		if err := store.CreateUser(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("finds users by username", func(t *testing.T) {
		got, err := store.GetUserByUsername(ctx, "ALICE")
		if err != nil {
			t.Fatalf("GetUserByUsername: %v", err)
		}
		if got.ID != "u1" {
			t.Fatalf("got user %s, want u1", got.ID)
		}
	})

	t.Run("reports missing users", func(t *testing.T) {
		if _, err := store.GetUser(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_Bookings(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev1")

	t.Run("assigns increasing sequences", func(t *testing.T) {
		first, err := store.CreateBooking(ctx, persistence.Booking{ID: "b1", EventID: "ev1", UserID: "u1", Status: "confirmed", CreatedAt: testBase})
		if err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		second, err := store.CreateBooking(ctx, persistence.Booking{ID: "b2", EventID: "ev1", UserID: "u2", Status: "confirmed", CreatedAt: testBase})
		if err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		if second.Sequence <= first.Sequence {
			t.Fatalf("sequence %d not after %d", second.Sequence, first.Sequence)
		}
	})

	t.Run("rejects a second booking for the same user and event", func(t *testing.T) {
		_, err := store.CreateBooking(ctx, persistence.Booking{ID: "b3", EventID: "ev1", UserID: "u1", Status: "waitlisted", CreatedAt: testBase})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("rejects bookings for unknown events", func(t *testing.T) {
		_, err := store.CreateBooking(ctx, persistence.Booking{ID: "b4", EventID: "ghost", UserID: "u9", Status: "confirmed", CreatedAt: testBase})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("deleting a booking is idempotent", func(t *testing.T) {
		if err := store.DeleteBooking(ctx, "b1"); err != nil {
			t.Fatalf("DeleteBooking: %v", err)
		}
		if err := store.DeleteBooking(ctx, "b1"); err != nil {
			t.Fatalf("repeat DeleteBooking: %v", err)
		}
		if _, err := store.GetBooking(ctx, "b1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("update preserves the assigned sequence", func(t *testing.T) {
		stored, err := store.GetBooking(ctx, "b2")
		if err != nil {
			t.Fatalf("GetBooking: %v", err)
		}
		modified := stored
		modified.Status = "cancelled-candidate"
		modified.Sequence = 999
		if err := store.UpdateBooking(ctx, modified); err != nil {
			t.Fatalf("UpdateBooking: %v", err)
		}
		again, err := store.GetBooking(ctx, "b2")
		if err != nil {
			t.Fatalf("GetBooking: %v", err)
		}
		if again.Sequence != stored.Sequence {
			t.Fatalf("sequence changed from %d to %d", stored.Sequence, again.Sequence)
		}
	})

	t.Run("returned records are clones", func(t *testing.T) {
		expires := testBase.Add(15 * time.Minute)
		if _, err := store.CreateBooking(ctx, persistence.Booking{ID: "b5", EventID: "ev1", UserID: "u5", Status: "hold", HoldExpiresAt: &expires, CreatedAt: testBase}); err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		got, err := store.GetBooking(ctx, "b5")
		if err != nil {
			t.Fatalf("GetBooking: %v", err)
		}
		*got.HoldExpiresAt = got.HoldExpiresAt.Add(time.Hour)

		again, err := store.GetBooking(ctx, "b5")
		if err != nil {
			t.Fatalf("GetBooking: %v", err)
		}
		if !again.HoldExpiresAt.Equal(expires) {
			t.Fatal("stored hold deadline was mutated through a returned record")
		}
	})
}

func TestStore_ListExpiredHolds(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev1")

	expired := testBase.Add(-time.Minute)
	live := testBase.Add(10 * time.Minute)
	boundary := testBase

	for _, bk := range []persistence.Booking{
		{ID: "h-expired", EventID: "ev1", UserID: "u1", Status: "hold", HoldExpiresAt: &expired, CreatedAt: testBase},
		{ID: "h-live", EventID: "ev1", UserID: "u2", Status: "hold", HoldExpiresAt: &live, CreatedAt: testBase},
		{ID: "h-boundary", EventID: "ev1", UserID: "u3", Status: "hold", HoldExpiresAt: &boundary, CreatedAt: testBase},
		{ID: "c1", EventID: "ev1", UserID: "u4", Status: "confirmed", CreatedAt: testBase},
	} {
		if _, err := store.CreateBooking(ctx, bk); err != nil {
			t.Fatalf("CreateBooking(%s): %v", bk.ID, err)
		}
	}

	holds, err := store.ListExpiredHolds(ctx, testBase)
	if err != nil {
		t.Fatalf("ListExpiredHolds: %v", err)
	}
	if len(holds) != 2 {
		t.Fatalf("expected 2 expired holds, got %d", len(holds))
	}
	ids := map[string]bool{holds[0].ID: true, holds[1].ID: true}
	if !ids["h-expired"] || !ids["h-boundary"] {
		t.Fatalf("unexpected expired holds: %v", ids)
	}
}

func TestStore_DeleteEventCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev1")
	seedEvent(t, store, "ev2")

	if _, err := store.CreateBooking(ctx, persistence.Booking{ID: "b1", EventID: "ev1", UserID: "u1", Status: "confirmed", CreatedAt: testBase}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := store.CreateBooking(ctx, persistence.Booking{ID: "b2", EventID: "ev2", UserID: "u1", Status: "confirmed", CreatedAt: testBase}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if err := store.DeleteEvent(ctx, "ev1"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := store.GetBooking(ctx, "b1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected cascade delete of b1, got %v", err)
	}
	if _, err := store.GetBooking(ctx, "b2"); err != nil {
		t.Fatalf("b2 should survive: %v", err)
	}
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	session := persistence.Session{ID: "s1", UserID: "u1", Token: "tok", CreatedAt: testBase, ExpiresAt: testBase.Add(time.Hour)}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.CreateSession(ctx, session); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if err := store.RevokeSession(ctx, "tok", testBase.Add(time.Minute)); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	got, err := store.GetSessionByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("GetSessionByToken: %v", err)
	}
	if got.RevokedAt == nil {
		t.Fatal("expected revoked session")
	}

	if err := store.DeleteExpiredSessions(ctx, testBase.Add(2*time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if _, err := store.GetSessionByToken(ctx, "tok"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry purge, got %v", err)
	}
}
