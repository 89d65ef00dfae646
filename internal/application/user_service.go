package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/campus-bookings/internal/persistence"
)

// UserStore exposes the account storage the user service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user persistence.User) error
	GetUser(ctx context.Context, id string) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
}

// RegisterUserParams captures the data required to create an account.
type RegisterUserParams struct {
	Username   string
	Password   string
	Role       string
	Department string
	FullName   string
}

// UserService manages accounts. Registration is used by seeding and
// administrative tooling; the service itself has no self-signup surface.
type UserService struct {
	users       UserStore
	idGenerator func() string
	logger      *slog.Logger
}

// NewUserService wires dependencies for account management.
func NewUserService(users UserStore, idGenerator func() string, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &UserService{
		users:       users,
		idGenerator: idGenerator,
		logger:      defaultLogger(logger),
	}
}

// RegisterUser validates and stores a new account with a hashed password.
func (s *UserService) RegisterUser(ctx context.Context, params RegisterUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Username) == "" {
		vErr.add("username", "username is required")
	}
	if len(params.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if params.Role != RoleStudent && params.Role != RoleStaff {
		vErr.add("role", "role must be student or staff")
	}
	if strings.TrimSpace(params.Department) == "" {
		vErr.add("department", "department is required")
	}
	if strings.TrimSpace(params.FullName) == "" {
		vErr.add("full_name", "full name is required")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return User{}, err
	}

	user := persistence.User{
		ID:           s.idGenerator(),
		Username:     strings.TrimSpace(params.Username),
		PasswordHash: hash,
		Role:         params.Role,
		Department:   params.Department,
		FullName:     params.FullName,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			dupErr := &ValidationError{}
			dupErr.add("username", "username is already taken")
			return User{}, dupErr
		}
		return User{}, err
	}

	serviceLogger(ctx, s.logger, "UserService", "RegisterUser").InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return toUser(user), nil
}

// GetUser returns one account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return toUser(user), nil
}

// ListUsers returns every account, staff only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsStaff() {
		return nil, ErrUnauthorized
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, len(users))
	for i, user := range users {
		out[i] = toUser(user)
	}
	return out, nil
}
