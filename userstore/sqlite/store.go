// Package sqlite implements userstore.Store over an embedded SQLite database
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/skillx/sessiongate/userstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT    NOT NULL,
	password_hash TEXT    NOT NULL,
	first_name    TEXT,
	last_name     TEXT,
	is_active     INTEGER NOT NULL DEFAULT 1,
	is_verified   INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL,
	last_login    INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (email);
`

const userColumns = `id, email, password_hash, first_name, last_name,
	is_active, is_verified, created_at, updated_at, last_login`

// Store persists users in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the database at path and applies the
// schema. The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps :memory: databases shared and serialises
	// writers, which SQLite requires anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) CreateUser(ctx context.Context, in userstore.CreateUserInput) (userstore.User, error) {
	if err := in.Validate(); err != nil {
		return userstore.User{}, err
	}
	now := in.Now.UTC()
	if in.Now.IsZero() {
		now = time.Now().UTC()
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.Email, in.PasswordHash, nullString(in.FirstName), nullString(in.LastName), toMillis(now), toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return userstore.User{}, userstore.ErrEmailConflict
		}
		return userstore.User{}, fmt.Errorf("%w: create user: %v", userstore.ErrUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return userstore.User{}, fmt.Errorf("%w: last insert id: %v", userstore.ErrUnavailable, err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (userstore.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (userstore.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: email exists: %v", userstore.ErrUnavailable, err)
	}
	return n > 0, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, email string, at time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = ? WHERE email = ?`,
		toMillis(at), toMillis(at), email,
	)
	if err != nil {
		return fmt.Errorf("%w: update last login: %v", userstore.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update last login: %v", userstore.ErrUnavailable, err)
	}
	if n == 0 {
		return userstore.ErrNotFound
	}
	return nil
}

// Count returns the number of stored users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", userstore.ErrUnavailable, err)
	}
	return n, nil
}

func scanUser(row *sql.Row) (userstore.User, error) {
	var (
		u                    userstore.User
		first, last          sql.NullString
		active, verified     bool
		createdAt, updatedAt int64
		lastLogin            sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &first, &last,
		&active, &verified, &createdAt, &updatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return userstore.User{}, userstore.ErrNotFound
		}
		return userstore.User{}, fmt.Errorf("%w: %v", userstore.ErrUnavailable, err)
	}
	if first.Valid {
		u.FirstName = &first.String
	}
	if last.Valid {
		u.LastName = &last.String
	}
	u.IsActive = active
	u.IsVerified = verified
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	if lastLogin.Valid {
		ts := fromMillis(lastLogin.Int64)
		u.LastLogin = &ts
	}
	return u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "users.email")
}
