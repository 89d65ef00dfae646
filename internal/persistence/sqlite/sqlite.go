// Package sqlite provides the durable persistence.Store backed by SQLite via
// the pure-Go modernc.org/sqlite driver. Uniqueness and integrity rules are
// expressed as table constraints so the store reports the same sentinel
// errors as the in-memory implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/persistence"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL COLLATE NOCASE UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	department    TEXT NOT NULL,
	full_name     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL,
	type              TEXT NOT NULL,
	department        TEXT NOT NULL,
	date              TEXT NOT NULL,
	start_time        TEXT NOT NULL,
	end_time          TEXT NOT NULL,
	location          TEXT NOT NULL,
	capacity          INTEGER NOT NULL CHECK (capacity >= 1),
	allow_overbooking INTEGER NOT NULL DEFAULT 0,
	instructor        TEXT NOT NULL,
	instructor_id     TEXT NOT NULL,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	seq               INTEGER PRIMARY KEY AUTOINCREMENT,
	id                TEXT NOT NULL UNIQUE,
	event_id          TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id           TEXT NOT NULL,
	status            TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	hold_expires_at   TEXT,
	waitlist_position INTEGER,
	UNIQUE (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	token      TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	revoked_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_bookings_event ON bookings(event_id);
CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id);
CREATE INDEX IF NOT EXISTS idx_bookings_hold_expiry ON bookings(hold_expires_at) WHERE status = 'hold';
`

// Store implements persistence.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open connects to the database at the given DSN and bootstraps the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The driver serializes writes; a single connection avoids
	// SQLITE_BUSY between the pool's connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapError translates driver errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return persistence.ErrConstraintViolation
	}
	return err
}

// timeLayout is fixed-width so stored UTC timestamps compare correctly as
// strings; RFC3339Nano trims trailing fractional zeros and would break the
// lexicographic <= in the expired-holds query.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timeFromNullable(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
