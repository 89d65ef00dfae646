package sqlite

import (
	"context"

	"github.com/example/campus-bookings/internal/persistence"
)

// CreateUser inserts a new account row.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.Username == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, department, full_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.Role, user.Department, user.FullName,
	)
	return mapError(err)
}

// GetUser retrieves an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, department, full_name
		FROM users WHERE id = ?`, id))
}

// GetUserByUsername retrieves an account by username. The username column is
// declared COLLATE NOCASE, so the lookup is case-insensitive.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, department, full_name
		FROM users WHERE username = ?`, username))
}

// ListUsers returns all accounts ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, department, full_name
		FROM users ORDER BY username`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		var user persistence.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Department, &user.FullName); err != nil {
			return nil, mapError(err)
		}
		users = append(users, user)
	}
	return users, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Department, &user.FullName)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}
