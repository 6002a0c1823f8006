// Package postgres implements userstore.Store over PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillx/sessiongate/userstore"
)

const userColumns = `id, email, password_hash, first_name, last_name,
	is_active, is_verified, created_at, updated_at, last_login`

// Store persists users in PostgreSQL. The pool is owned by the caller; the
// store never closes it.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("postgres: nil pool")
	}
	return &Store{pool: pool}, nil
}

// Migrate applies Schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: migrate: %v", userstore.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, in userstore.CreateUserInput) (userstore.User, error) {
	if err := in.Validate(); err != nil {
		return userstore.User{}, err
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING `+userColumns,
		in.Email, in.PasswordHash, in.FirstName, in.LastName, now,
	)
	u, err := scanUser(row)
	if err != nil {
		if isEmailConflict(err) {
			return userstore.User{}, userstore.ErrEmailConflict
		}
		return userstore.User{}, fmt.Errorf("%w: create user: %v", userstore.ErrUnavailable, err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (userstore.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return lookup(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (userstore.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return lookup(row)
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: email exists: %v", userstore.ErrUnavailable, err)
	}
	return exists, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, email string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE email = $1`,
		email, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: update last login: %v", userstore.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return userstore.ErrNotFound
	}
	return nil
}

func lookup(row pgx.Row) (userstore.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userstore.User{}, userstore.ErrNotFound
		}
		return userstore.User{}, fmt.Errorf("%w: %v", userstore.ErrUnavailable, err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (userstore.User, error) {
	var u userstore.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsActive,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLogin,
	)
	return u, err
}

// isEmailConflict matches unique_violation on the email index. Other
// unique violations are not expected on this table but are treated the same
// when the constraint name mentions email.
func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" { // unique_violation
		return false
	}
	c := strings.ToLower(pgErr.ConstraintName)
	return c == "uq_users_email" || strings.Contains(c, "email")
}
