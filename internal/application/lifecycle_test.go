package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/testfixtures"
)

// TestBookingLifecycle drives the engine through the seat lifecycle the way a
// running deployment would: fill an event, queue a waitlist, let a hold lapse
// and watch the sweep promote the queue.
func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory(
		testfixtures.WithClock(testfixtures.NewClock(testfixtures.ReferenceTime())),
	)
	engine := factory.BookingService()
	catalog := factory.EventService()

	event := testfixtures.NewEventFixture(testfixtures.WithEventID("ev-lifecycle"), testfixtures.WithCapacity(2))
	if err := factory.SeedEvents(event); err != nil {
		t.Fatalf("SeedEvents: %v", err)
	}

	seat := testfixtures.NewUserFixture(testfixtures.WithUserID("stu-seat"))
	holder := testfixtures.NewUserFixture(testfixtures.WithUserID("stu-holder"))
	queued := testfixtures.NewUserFixture(testfixtures.WithUserID("stu-queued"))
	if err := factory.SeedUsers(seat, holder, queued); err != nil {
		t.Fatalf("SeedUsers: %v", err)
	}
	asPrincipal := func(id, department string) application.Principal {
		return application.Principal{UserID: id, Role: application.RoleStudent, Department: department}
	}

	confirmed, err := engine.RequestBooking(ctx, application.RequestBookingParams{
		Principal: asPrincipal(seat.ID, seat.Department),
		EventID:   event.ID,
	})
	if err != nil {
		t.Fatalf("RequestBooking(seat): %v", err)
	}
	if confirmed.Status != booking.StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", confirmed.Status)
	}

	held, err := engine.RequestBooking(ctx, application.RequestBookingParams{
		Principal: asPrincipal(holder.ID, holder.Department),
		EventID:   event.ID,
		WantsHold: true,
	})
	if err != nil {
		t.Fatalf("RequestBooking(holder): %v", err)
	}
	if held.Status != booking.StatusHold || held.HoldExpiresAt == nil {
		t.Fatalf("expected live hold, got %+v", held)
	}

	waiting, err := engine.RequestBooking(ctx, application.RequestBookingParams{
		Principal: asPrincipal(queued.ID, queued.Department),
		EventID:   event.ID,
	})
	if err != nil {
		t.Fatalf("RequestBooking(queued): %v", err)
	}
	if waiting.Status != booking.StatusWaitlisted || waiting.WaitlistPosition == nil || *waiting.WaitlistPosition != 1 {
		t.Fatalf("expected waitlist position 1, got %+v", waiting)
	}

	stats, err := catalog.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if stats.Stats.ConfirmedCount != 1 || stats.Stats.HoldCount != 1 || stats.Stats.WaitlistedCount != 1 || stats.Stats.RemainingSlots != 0 {
		t.Fatalf("unexpected stats before sweep: %+v", stats.Stats)
	}

	factory.Clock.Advance(booking.HoldTTL + time.Minute)

	result, err := engine.SweepExpiredHolds(ctx)
	if err != nil {
		t.Fatalf("SweepExpiredHolds: %v", err)
	}
	if result.ExpiredCount != 1 || result.AffectedEvents != 1 {
		t.Fatalf("sweep result = %+v, want one expired hold on one event", result)
	}

	if _, err := engine.WaitlistPosition(ctx, asPrincipal(queued.ID, queued.Department), waiting.ID); !errors.Is(err, application.ErrNotWaitlisted) {
		t.Fatalf("expected promotion off the waitlist, got %v", err)
	}
	mine, err := engine.ListUserBookings(ctx, asPrincipal(queued.ID, queued.Department))
	if err != nil {
		t.Fatalf("ListUserBookings: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != booking.StatusConfirmed {
		t.Fatalf("expected promoted confirmed booking, got %+v", mine)
	}
}

// TestBookingLifecycleSQLite runs the cancel-then-promote path against the
// durable store to confirm the engine's decisions survive a real database.
func TestBookingLifecycleSQLite(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	engine := application.NewBookingService(harness.Store, harness.Store,
		testfixtures.NewIDGenerator("bk").NextFunc(), clock.NowFunc(), nil)

	event := testfixtures.NewEventFixture(testfixtures.WithEventID("ev-durable"), testfixtures.WithCapacity(1))
	if err := harness.Store.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	first := testfixtures.NewUserFixture(testfixtures.WithUserID("stu-first"))
	second := testfixtures.NewUserFixture(testfixtures.WithUserID("stu-second"))
	if err := harness.Store.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := harness.Store.CreateUser(ctx, second); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	firstPrincipal := application.Principal{UserID: first.ID, Role: application.RoleStudent, Department: first.Department}
	secondPrincipal := application.Principal{UserID: second.ID, Role: application.RoleStudent, Department: second.Department}

	seat, err := engine.RequestBooking(ctx, application.RequestBookingParams{Principal: firstPrincipal, EventID: event.ID})
	if err != nil {
		t.Fatalf("RequestBooking(first): %v", err)
	}
	queued, err := engine.RequestBooking(ctx, application.RequestBookingParams{Principal: secondPrincipal, EventID: event.ID})
	if err != nil {
		t.Fatalf("RequestBooking(second): %v", err)
	}
	if queued.Status != booking.StatusWaitlisted {
		t.Fatalf("expected waitlisted, got %q", queued.Status)
	}

	if err := engine.CancelBooking(ctx, firstPrincipal, seat.ID); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	stored, err := harness.Store.GetBooking(ctx, queued.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if stored.Status != string(booking.StatusConfirmed) {
		t.Fatalf("promotion not persisted, status = %q", stored.Status)
	}
	if stored.WaitlistPosition != nil {
		t.Fatalf("promoted booking kept waitlist position %d", *stored.WaitlistPosition)
	}
}
