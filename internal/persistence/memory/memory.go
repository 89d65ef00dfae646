// Package memory provides the in-memory persistence.Store used by tests and
// local development. It mirrors the behavior of the durable sqlite store:
// every method is atomic under one mutex and returned records are clones so
// callers can never mutate stored state through aliasing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

// Store keeps all records in id-indexed maps guarded by a single RWMutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]persistence.User
	events   map[string]persistence.Event
	bookings map[string]persistence.Booking
	sessions map[string]persistence.Session
	sequence int64
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]persistence.User),
		events:   make(map[string]persistence.Event),
		bookings: make(map[string]persistence.Booking),
		sessions: make(map[string]persistence.Session),
	}
}

// --- UserRepository ---

// CreateUser stores a new user, enforcing username uniqueness.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	lower := strings.ToLower(user.Username)
	for _, existing := range s.users {
		if strings.ToLower(existing.Username) == lower {
			return persistence.ErrDuplicate
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username, case-insensitively.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(username)
	for _, user := range s.users {
		if strings.ToLower(user.Username) == lower {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// --- EventRepository ---

// CreateEvent stores a new catalog entry.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}
	if event.Capacity < 1 {
		return persistence.ErrConstraintViolation
	}
	s.events[event.ID] = event
	return nil
}

// UpdateEvent replaces an existing catalog entry.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return persistence.ErrNotFound
	}
	if event.Capacity < 1 {
		return persistence.ErrConstraintViolation
	}
	s.events[event.ID] = event
	return nil
}

// GetEvent retrieves a catalog entry by id.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

// ListEvents returns catalog entries matching the filter, ordered by date
// then creation time.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.Event, 0, len(s.events))
	for _, event := range s.events {
		if filter.Type != "" && event.Type != filter.Type {
			continue
		}
		if filter.Department != "" && event.Department != filter.Department {
			continue
		}
		if filter.InstructorID != "" && event.InstructorID != filter.InstructorID {
			continue
		}
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date == events[j].Date {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].Date < events[j].Date
	})
	return events, nil
}

// DeleteEvent removes a catalog entry along with all of its bookings.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	for bookingID, bk := range s.bookings {
		if bk.EventID == id {
			delete(s.bookings, bookingID)
		}
	}
	delete(s.events, id)
	return nil
}

// --- BookingRepository ---

// CreateBooking assigns the next sequence number and inserts the record.
// A second booking for the same user and event yields ErrDuplicate.
func (s *Store) CreateBooking(ctx context.Context, bk persistence.Booking) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[bk.ID]; ok {
		return persistence.Booking{}, persistence.ErrDuplicate
	}
	for _, existing := range s.bookings {
		if existing.EventID == bk.EventID && existing.UserID == bk.UserID {
			return persistence.Booking{}, persistence.ErrDuplicate
		}
	}
	if _, ok := s.events[bk.EventID]; !ok {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}

	s.sequence++
	bk.Sequence = s.sequence
	s.bookings[bk.ID] = cloneBooking(bk)
	return bk, nil
}

// GetBooking retrieves a booking by id.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bk, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return cloneBooking(bk), nil
}

// UpdateBooking replaces a stored booking, preserving its sequence.
func (s *Store) UpdateBooking(ctx context.Context, bk persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bookings[bk.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	bk.Sequence = existing.Sequence
	s.bookings[bk.ID] = cloneBooking(bk)
	return nil
}

// DeleteBooking removes a booking if present. Absent ids are a no-op.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bookings, id)
	return nil
}

// ListBookingsForEvent returns the event's bookings ordered by sequence.
func (s *Store) ListBookingsForEvent(ctx context.Context, eventID string) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(bk persistence.Booking) bool { return bk.EventID == eventID }), nil
}

// ListBookingsForUser returns the user's bookings ordered by sequence.
func (s *Store) ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(bk persistence.Booking) bool { return bk.UserID == userID }), nil
}

// ListExpiredHolds returns holds whose deadline is at or before reference.
func (s *Store) ListExpiredHolds(ctx context.Context, reference time.Time) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(bk persistence.Booking) bool {
		return bk.Status == "hold" && bk.HoldExpiresAt != nil && !reference.Before(*bk.HoldExpiresAt)
	}), nil
}

func (s *Store) collectLocked(match func(persistence.Booking) bool) []persistence.Booking {
	bookings := make([]persistence.Booking, 0)
	for _, bk := range s.bookings {
		if match(bk) {
			bookings = append(bookings, cloneBooking(bk))
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].Sequence < bookings[j].Sequence })
	return bookings
}

// --- SessionRepository ---

// CreateSession stores an issued session, enforcing token uniqueness.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; ok {
		return persistence.ErrDuplicate
	}
	s.sessions[session.Token] = cloneSession(session)
	return nil
}

// GetSessionByToken retrieves a session by its opaque token.
func (s *Store) GetSessionByToken(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// RevokeSession marks a session revoked at the given instant.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return nil
}

// DeleteExpiredSessions drops sessions whose expiry is at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !reference.Before(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func cloneBooking(bk persistence.Booking) persistence.Booking {
	out := bk
	if bk.HoldExpiresAt != nil {
		expires := *bk.HoldExpiresAt
		out.HoldExpiresAt = &expires
	}
	if bk.WaitlistPosition != nil {
		position := *bk.WaitlistPosition
		out.WaitlistPosition = &position
	}
	return out
}

func cloneSession(session persistence.Session) persistence.Session {
	out := session
	if session.RevokedAt != nil {
		revoked := *session.RevokedAt
		out.RevokedAt = &revoked
	}
	return out
}
