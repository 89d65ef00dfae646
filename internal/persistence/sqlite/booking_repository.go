package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

const bookingColumns = `id, event_id, user_id, status, created_at, seq, hold_expires_at, waitlist_position`

// CreateBooking inserts the record and returns it with the store-assigned
// sequence. The (event_id, user_id) uniqueness constraint reports duplicates.
func (s *Store) CreateBooking(ctx context.Context, bk persistence.Booking) (persistence.Booking, error) {
	if bk.ID == "" || bk.EventID == "" || bk.UserID == "" {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}
	var position sql.NullInt64
	if bk.WaitlistPosition != nil {
		position = sql.NullInt64{Int64: int64(*bk.WaitlistPosition), Valid: true}
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, event_id, user_id, status, created_at, hold_expires_at, waitlist_position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bk.ID, bk.EventID, bk.UserID, bk.Status, formatTime(bk.CreatedAt),
		nullableTime(bk.HoldExpiresAt), position,
	)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return persistence.Booking{}, err
	}
	bk.Sequence = seq
	return bk, nil
}

// GetBooking retrieves a booking by id.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	return s.scanBooking(s.db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// UpdateBooking rewrites a booking's mutable fields. The sequence column is
// the primary key assigned on insert and is never changed.
func (s *Store) UpdateBooking(ctx context.Context, bk persistence.Booking) error {
	var position sql.NullInt64
	if bk.WaitlistPosition != nil {
		position = sql.NullInt64{Int64: int64(*bk.WaitlistPosition), Valid: true}
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, hold_expires_at = ?, waitlist_position = ?
		WHERE id = ?`,
		bk.Status, nullableTime(bk.HoldExpiresAt), position, bk.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteBooking removes a booking row. Absent ids are a no-op.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return mapError(err)
}

// ListBookingsForEvent returns the event's bookings in sequence order.
func (s *Store) ListBookingsForEvent(ctx context.Context, eventID string) ([]persistence.Booking, error) {
	return s.listBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE event_id = ? ORDER BY seq`, eventID)
}

// ListBookingsForUser returns the user's bookings in sequence order.
func (s *Store) ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	return s.listBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY seq`, userID)
}

// ListExpiredHolds returns holds whose deadline is at or before reference.
func (s *Store) ListExpiredHolds(ctx context.Context, reference time.Time) ([]persistence.Booking, error) {
	return s.listBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = 'hold' AND hold_expires_at <= ?
		ORDER BY seq`, formatTime(reference))
}

func (s *Store) listBookings(ctx context.Context, query string, args ...any) ([]persistence.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	bookings := make([]persistence.Booking, 0)
	for rows.Next() {
		bk, err := s.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, bk)
	}
	return bookings, mapError(rows.Err())
}

func (s *Store) scanBooking(row rowScanner) (persistence.Booking, error) {
	var bk persistence.Booking
	var createdAt string
	var holdExpires sql.NullString
	var position sql.NullInt64
	err := row.Scan(&bk.ID, &bk.EventID, &bk.UserID, &bk.Status, &createdAt, &bk.Sequence, &holdExpires, &position)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	bk.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return persistence.Booking{}, err
	}
	bk.HoldExpiresAt, err = timeFromNullable(holdExpires)
	if err != nil {
		return persistence.Booking{}, err
	}
	if position.Valid {
		value := int(position.Int64)
		bk.WaitlistPosition = &value
	}
	return bk, nil
}
