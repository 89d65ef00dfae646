package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

// CreateSession stores an issued session token.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, created_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Token,
		formatTime(session.CreatedAt), formatTime(session.ExpiresAt), nullableTime(session.RevokedAt),
	)
	return mapError(err)
}

// GetSessionByToken retrieves a session by its opaque token.
func (s *Store) GetSessionByToken(ctx context.Context, token string) (persistence.Session, error) {
	var session persistence.Session
	var createdAt, expiresAt string
	var revokedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, created_at, expires_at, revoked_at
		FROM sessions WHERE token = ?`, token,
	).Scan(&session.ID, &session.UserID, &session.Token, &createdAt, &expiresAt, &revokedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.RevokedAt, err = timeFromNullable(revokedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

// RevokeSession marks a session revoked at the given instant.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE token = ?`,
		formatTime(revokedAt), token,
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

// DeleteExpiredSessions drops sessions whose expiry is at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return mapError(err)
}
