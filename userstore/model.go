package userstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailConflict is returned when an insert violates email uniqueness.
	ErrEmailConflict = errors.New("email already registered")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("user store unavailable")
	// ErrInvalidInput is returned when required fields are missing.
	ErrInvalidInput = errors.New("invalid user input")
)

// User is a persisted account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// CreateUserInput carries the fields accepted at registration. Email must
// already be normalised.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Now          time.Time
}

// Store is the persistence contract used by the Engine.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, email string, at time.Time) error
}

// NormalizeEmail trims and lower-cases an address so uniqueness does not
// depend on letter case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OptionalString returns nil for blank input and a trimmed copy otherwise.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Validate checks the fields every backend requires.
func (in CreateUserInput) Validate() error {
	if in.Email == "" || in.PasswordHash == "" {
		return ErrInvalidInput
	}
	return nil
}
