package postgres

// Schema creates the users table. The unique index on email is what makes
// registration race-free: the second of two concurrent inserts fails with
// SQLSTATE 23505 on uq_users_email.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT        NOT NULL,
	password_hash TEXT        NOT NULL,
	first_name    TEXT,
	last_name     TEXT,
	is_active     BOOLEAN     NOT NULL DEFAULT TRUE,
	is_verified   BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_login    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (email);
`
