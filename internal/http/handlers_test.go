package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence/memory"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

type testServer struct {
	handler http.Handler
	store   *memory.Store
	users   *application.UserService
	clock   *testClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	clock := newTestClock()

	bookings := application.NewBookingService(store, store, sequentialIDs("booking"), clock.Now, nil)
	events := application.NewEventService(store, store, store, sequentialIDs("event"), clock.Now, nil)
	auth := application.NewAuthService(store, store, sequentialIDs("session"), sequentialIDs("token"), clock.Now, time.Hour, nil)
	users := application.NewUserService(store, sequentialIDs("user"), nil)

	handler := NewRouter(RouterConfig{
		Auth:     NewAuthHandler(auth, nil),
		Events:   NewEventHandler(events, nil),
		Bookings: NewBookingHandler(bookings, nil),
		Sessions: auth,
	})

	return &testServer{handler: handler, store: store, users: users, clock: clock}
}

func (s *testServer) registerUser(t *testing.T, username, role, department string) {
	t.Helper()
	_, err := s.users.RegisterUser(context.Background(), application.RegisterUserParams{
		Username:   username,
		Password:   "pass-" + username,
		Role:       role,
		Department: department,
		FullName:   username + " test",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, "pass-"+username)
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("login %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createEvent(t *testing.T, token string, capacity int, allowOverbooking bool) string {
	t.Helper()
	body := fmt.Sprintf(`{
		"title": "Compilers Lecture",
		"type": "lecture",
		"department": "Computer Science",
		"date": "2026-03-20",
		"start_time": "10:00",
		"end_time": "12:00",
		"location": "Hall 3",
		"capacity": %d,
		"allow_overbooking": %t
	}`, capacity, allowOverbooking)
	rec := s.do(t, http.MethodPost, "/api/events", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode event response: %v", err)
	}
	return resp.ID
}

func (s *testServer) book(t *testing.T, token, eventID string, wantsHold bool) bookingDTO {
	t.Helper()
	body := fmt.Sprintf(`{"event_id":%q,"wants_hold":%t}`, eventID, wantsHold)
	rec := s.do(t, http.MethodPost, "/api/bookings", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var dto bookingDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode booking response: %v", err)
	}
	return dto
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t)
	server.registerUser(t, "ada", application.RoleStudent, "Computer Science")

	t.Run("valid credentials issue a token", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"ada","password":"pass-ada"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Session-Token") == "" {
			t.Fatal("token header not set")
		}
		var resp loginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Token == "" || resp.User.Username != "ada" {
			t.Fatalf("response = %+v", resp)
		}
	})

	t.Run("wrong password is a 401", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"ada","password":"nope"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/api/auth/login", "", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("only POST is allowed", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/api/auth/login", "", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", rec.Code)
		}
	})
}

func TestEventEndpoints(t *testing.T) {
	server := newTestServer(t)
	server.registerUser(t, "vance", application.RoleStaff, "Computer Science")
	server.registerUser(t, "mills", application.RoleStaff, "Computer Science")
	server.registerUser(t, "ada", application.RoleStudent, "Computer Science")
	staffToken := server.login(t, "vance")
	otherStaff := server.login(t, "mills")
	studentToken := server.login(t, "ada")

	t.Run("catalog reads are public", func(t *testing.T) {
		server.createEvent(t, staffToken, 10, false)
		rec := server.do(t, http.MethodGet, "/api/events", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var events []eventDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
			t.Fatalf("decode events: %v", err)
		}
		if len(events) == 0 {
			t.Fatal("no events listed")
		}
		if events[0].Stats.EffectiveCapacity == 0 {
			t.Fatalf("stats missing: %+v", events[0])
		}
	})

	t.Run("mutations require a session", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/api/events", "", `{}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("students may not create events", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/api/events", studentToken, `{"title":"x"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("validation failures are a 422 with field errors", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/api/events", staffToken, `{"title":""}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if _, ok := resp.Errors["title"]; !ok {
			t.Fatalf("field errors = %v, want title entry", resp.Errors)
		}
	})

	t.Run("only the owner updates or deletes", func(t *testing.T) {
		eventID := server.createEvent(t, staffToken, 10, false)

		rec := server.do(t, http.MethodDelete, "/api/events/"+eventID, otherStaff, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("foreign delete status = %d, want 403", rec.Code)
		}

		rec = server.do(t, http.MethodDelete, "/api/events/"+eventID, staffToken, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("owner delete status = %d, body = %s", rec.Code, rec.Body.String())
		}

		rec = server.do(t, http.MethodGet, "/api/events/"+eventID, "", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("deleted event status = %d, want 404", rec.Code)
		}
	})

	t.Run("export returns CSV for the owner", func(t *testing.T) {
		eventID := server.createEvent(t, staffToken, 10, false)
		server.book(t, studentToken, eventID, false)

		rec := server.do(t, http.MethodGet, "/api/events/"+eventID+"/export", staffToken, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
			t.Fatalf("content type = %s", got)
		}

		rows, err := csv.NewReader(rec.Body).ReadAll()
		if err != nil {
			t.Fatalf("parse csv: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want header plus one attendee", len(rows))
		}
		if rows[0][0] != "full_name" || rows[1][1] != "ada" {
			t.Fatalf("rows = %v", rows)
		}

		rec = server.do(t, http.MethodGet, "/api/events/"+eventID+"/export", studentToken, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("student export status = %d, want 403", rec.Code)
		}
	})
}

func TestStaffEventsEndpoint(t *testing.T) {
	server := newTestServer(t)
	server.registerUser(t, "vance", application.RoleStaff, "Computer Science")
	server.registerUser(t, "mills", application.RoleStaff, "Computer Science")
	server.registerUser(t, "ada", application.RoleStudent, "Computer Science")
	vanceToken := server.login(t, "vance")
	millsToken := server.login(t, "mills")
	studentToken := server.login(t, "ada")

	first := server.createEvent(t, vanceToken, 10, false)
	second := server.createEvent(t, vanceToken, 5, false)
	server.createEvent(t, millsToken, 8, false)

	t.Run("staff see only the events they teach", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/api/events/staff", vanceToken, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var events []eventDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
			t.Fatalf("decode events: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		ids := map[string]bool{events[0].ID: true, events[1].ID: true}
		if !ids[first] || !ids[second] {
			t.Fatalf("unexpected events: %v", ids)
		}
	})

	t.Run("students are refused", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/api/events/staff", studentToken, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("requires a session", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/api/events/staff", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status field = %q, want ok", resp.Status)
	}

	rec = server.do(t, http.MethodPost, "/api/health", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}

func TestBookingEndpoints(t *testing.T) {
	server := newTestServer(t)
	server.registerUser(t, "vance", application.RoleStaff, "Computer Science")
	server.registerUser(t, "ada", application.RoleStudent, "Computer Science")
	server.registerUser(t, "alan", application.RoleStudent, "Computer Science")
	server.registerUser(t, "grace", application.RoleStudent, "Computer Science")
	staffToken := server.login(t, "vance")
	ada := server.login(t, "ada")
	alan := server.login(t, "alan")
	grace := server.login(t, "grace")

	t.Run("booking lifecycle over the API", func(t *testing.T) {
		eventID := server.createEvent(t, staffToken, 1, false)

		held := server.book(t, ada, eventID, true)
		if held.Status != string(booking.StatusHold) || held.HoldExpiresAt == "" {
			t.Fatalf("held = %+v", held)
		}

		queued := server.book(t, alan, eventID, false)
		if queued.Status != string(booking.StatusWaitlisted) {
			t.Fatalf("queued = %+v", queued)
		}
		if queued.WaitlistPosition == nil || *queued.WaitlistPosition != 1 {
			t.Fatalf("position = %v, want 1", queued.WaitlistPosition)
		}

		rec := server.do(t, http.MethodGet, "/api/bookings/"+queued.ID+"/position", alan, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("position status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var pos positionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &pos); err != nil {
			t.Fatalf("decode position: %v", err)
		}
		if pos.Position != 1 {
			t.Fatalf("position = %d, want 1", pos.Position)
		}

		rec = server.do(t, http.MethodPost, "/api/bookings/"+held.ID+"/confirm", ada, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("confirm status = %d, body = %s", rec.Code, rec.Body.String())
		}

		rec = server.do(t, http.MethodDelete, "/api/bookings/"+held.ID, ada, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("cancel status = %d, body = %s", rec.Code, rec.Body.String())
		}

		// The cancellation promoted the waitlisted booking before returning.
		rec = server.do(t, http.MethodGet, "/api/bookings/user", alan, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var mine []bookingWithEventDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
			t.Fatalf("decode bookings: %v", err)
		}
		if len(mine) != 1 || mine[0].Booking.Status != string(booking.StatusConfirmed) {
			t.Fatalf("bookings = %+v, want one confirmed", mine)
		}
	})

	t.Run("duplicate booking is a 409", func(t *testing.T) {
		eventID := server.createEvent(t, staffToken, 5, false)
		server.book(t, grace, eventID, false)

		body := fmt.Sprintf(`{"event_id":%q}`, eventID)
		rec := server.do(t, http.MethodPost, "/api/bookings", grace, body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if resp.ErrorCode != "ALREADY_BOOKED" {
			t.Fatalf("error code = %s", resp.ErrorCode)
		}
	})

	t.Run("confirming an expired hold is a 410", func(t *testing.T) {
		eventID := server.createEvent(t, staffToken, 5, false)
		held := server.book(t, ada, eventID, true)

		server.clock.Advance(booking.HoldTTL + time.Second)

		rec := server.do(t, http.MethodPost, "/api/bookings/"+held.ID+"/confirm", ada, "")
		if rec.Code != http.StatusGone {
			t.Fatalf("status = %d, want 410, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("reschedule moves the booking", func(t *testing.T) {
		source := server.createEvent(t, staffToken, 5, false)
		target := server.createEvent(t, staffToken, 5, false)
		seat := server.book(t, alan, source, false)

		body := fmt.Sprintf(`{"event_id":%q}`, target)
		rec := server.do(t, http.MethodPost, "/api/bookings/"+seat.ID+"/reschedule", alan, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var moved bookingDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &moved); err != nil {
			t.Fatalf("decode booking: %v", err)
		}
		if moved.EventID != target || moved.ID != seat.ID {
			t.Fatalf("moved = %+v", moved)
		}
	})

	t.Run("foreign bookings are off limits", func(t *testing.T) {
		eventID := server.createEvent(t, staffToken, 5, false)
		seat := server.book(t, grace, eventID, false)

		rec := server.do(t, http.MethodDelete, "/api/bookings/"+seat.ID, ada, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("booking requires a session", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/api/bookings", "", `{"event_id":"x"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
