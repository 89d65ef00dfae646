package sqlite

import (
	"context"

	"github.com/example/campus-bookings/internal/persistence"
)

const eventColumns = `id, title, description, type, department, date, start_time, end_time,
	location, capacity, allow_overbooking, instructor, instructor_id, created_at`

// CreateEvent inserts a new catalog row.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Title, event.Description, event.Type, event.Department,
		event.Date, event.StartTime, event.EndTime, event.Location,
		event.Capacity, event.AllowOverbooking, event.Instructor, event.InstructorID,
		formatTime(event.CreatedAt),
	)
	return mapError(err)
}

// UpdateEvent replaces an existing catalog row.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, type = ?, department = ?, date = ?,
			start_time = ?, end_time = ?, location = ?, capacity = ?,
			allow_overbooking = ?, instructor = ?, instructor_id = ?
		WHERE id = ?`,
		event.Title, event.Description, event.Type, event.Department, event.Date,
		event.StartTime, event.EndTime, event.Location, event.Capacity,
		event.AllowOverbooking, event.Instructor, event.InstructorID,
		event.ID,
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

// GetEvent retrieves a catalog row by id.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	return s.scanEvent(s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

// ListEvents returns catalog rows matching the filter, ordered by date then
// creation time.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := make([]any, 0, 3)
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Department != "" {
		query += ` AND department = ?`
		args = append(args, filter.Department)
	}
	if filter.InstructorID != "" {
		query += ` AND instructor_id = ?`
		args = append(args, filter.InstructorID)
	}
	query += ` ORDER BY date, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	for rows.Next() {
		event, err := s.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, mapError(rows.Err())
}

// DeleteEvent removes a catalog row; the bookings foreign key cascades.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
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

func (s *Store) scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var createdAt string
	err := row.Scan(
		&event.ID, &event.Title, &event.Description, &event.Type, &event.Department,
		&event.Date, &event.StartTime, &event.EndTime, &event.Location,
		&event.Capacity, &event.AllowOverbooking, &event.Instructor, &event.InstructorID,
		&createdAt,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}
	event.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
