package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists the full user collection. Save replaces whatever was stored
// before; callers serialize Load/Save pairs themselves.
type Store interface {
	Load(ctx context.Context) ([]User, error)
	Save(ctx context.Context, users []User) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pgUniqueViolation = "23505"

const pgSchema = `CREATE TABLE IF NOT EXISTS users (
    seq           BIGSERIAL   PRIMARY KEY,
    id            TEXT        NOT NULL UNIQUE,
    username      TEXT        NOT NULL,
    email         TEXT        NOT NULL,
    username_key  TEXT        UNIQUE,
    email_key     TEXT        UNIQUE,
    password_hash TEXT        NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL
)`

// PostgresStore implements Store using PostgreSQL. Unique columns on the
// folded username and email back the in-process uniqueness checks.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed store and ensures its table exists.
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Load returns every user in insertion order.
func (s *PostgresStore) Load(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `SELECT id, username, email, password_hash, created_at FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: query users: %v", ErrStorage, err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var (
			u         User
			createdAt time.Time
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", ErrStorage, err)
		}
		u.CreatedAt = createdAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read users: %v", ErrStorage, err)
	}
	return users, nil
}

// Save makes the table match users: new ids are inserted, ids no longer
// present are deleted. Records are immutable, so existing rows are kept as is.
func (s *PostgresStore) Save(ctx context.Context, users []User) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id <> ALL($1)`, ids); err != nil {
		return fmt.Errorf("%w: prune users: %v", ErrStorage, err)
	}

	for _, u := range users {
		_, err := tx.Exec(ctx, `INSERT INTO users (id, username, email, username_key, email_key, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO NOTHING`,
			u.ID, u.Username, u.Email, identityKey(u.Username), identityKey(u.Email), u.PasswordHash, u.CreatedAt.UTC())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
			}
			return fmt.Errorf("%w: insert user: %v", ErrStorage, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// identityKey returns the folded value stored in the unique key columns, or
// nil for empty identities so they never collide.
func identityKey(s string) *string {
	k := fold(s)
	if k == "" {
		return nil
	}
	return &k
}
