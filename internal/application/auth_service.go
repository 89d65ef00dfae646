package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

// DefaultSessionTTL is used when the service is constructed without an
// explicit session lifetime.
const DefaultSessionTTL = 12 * time.Hour

// AuthUserReader resolves accounts during login and session validation.
type AuthUserReader interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByUsername(ctx context.Context, username string) (persistence.User, error)
}

// SessionStore exposes the session storage the auth service needs.
type SessionStore interface {
	CreateSession(ctx context.Context, session persistence.Session) error
	GetSessionByToken(ctx context.Context, token string) (persistence.Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AuthService authenticates users and issues opaque session tokens.
type AuthService struct {
	users          AuthUserReader
	sessions       SessionStore
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService wires dependencies for authentication. A zero sessionTTL
// falls back to DefaultSessionTTL.
func NewAuthService(users AuthUserReader, sessions SessionStore, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies credentials and issues a session token. The same
// ErrInvalidCredentials covers unknown usernames and wrong passwords so the
// response does not reveal which accounts exist. Expired sessions are pruned
// opportunistically on each successful login.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	if s == nil {
		return LoginResult{}, fmt.Errorf("AuthService is nil")
	}
	logger := s.loggerWith(ctx, "Login", "username", params.Username)

	user, err := s.users.GetUserByUsername(ctx, params.Username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := VerifyPassword(user.PasswordHash, params.Password); err != nil {
		if errors.Is(err, ErrInvalidPasswordHash) {
			return LoginResult{}, err
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now()
	session := persistence.Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return LoginResult{}, err
	}
	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		logger.WarnContext(ctx, "expired session cleanup failed", "error", err)
	}

	logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return LoginResult{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      toUser(user),
	}, nil
}

// ValidateSession resolves a bearer token to the acting principal. Unknown
// tokens report ErrUnauthorized; known but expired or revoked tokens report
// ErrSessionExpired.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	now := s.now()
	if session.RevokedAt != nil || !now.Before(session.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	return Principal{
		UserID:     user.ID,
		Role:       user.Role,
		Department: user.Department,
		FullName:   user.FullName,
	}, nil
}

// Logout revokes the session behind a token. Revoking an unknown token is a
// no-op so repeated logouts succeed.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if token == "" {
		return nil
	}
	if err := s.sessions.RevokeSession(ctx, token, s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		return err
	}
	s.loggerWith(ctx, "Logout").InfoContext(ctx, "session revoked")
	return nil
}

func toUser(user persistence.User) User {
	return User{
		ID:         user.ID,
		Username:   user.Username,
		Role:       user.Role,
		Department: user.Department,
		FullName:   user.FullName,
	}
}
