package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS users (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    id            TEXT    NOT NULL UNIQUE,
    username      TEXT    NOT NULL,
    email         TEXT    NOT NULL,
    username_key  TEXT    UNIQUE,
    email_key     TEXT    UNIQUE,
    password_hash TEXT    NOT NULL DEFAULT '',
    created_at    TEXT    NOT NULL
)`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	writeLock sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps db and creates the users table if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns every user in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, email, password_hash, created_at FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: query users: %v", ErrStorage, err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var (
			u         User
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", ErrStorage, err)
		}
		if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("%w: parse created_at for %s: %v", ErrStorage, u.ID, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read users: %v", ErrStorage, err)
	}
	return users, nil
}

// Save makes the table match users, inserting new ids and deleting ids no
// longer present.
func (s *SQLiteStore) Save(ctx context.Context, users []User) (err error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := storedIDs(ctx, tx)
	if err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(users))
	for _, u := range users {
		keep[u.ID] = struct{}{}
	}
	for _, id := range existing {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return fmt.Errorf("%w: delete user %s: %v", ErrStorage, id, err)
		}
	}

	for _, u := range users {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id, username, email, username_key, email_key, password_hash, created_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (id) DO NOTHING`,
			u.ID, u.Username, u.Email, nullKey(u.Username), nullKey(u.Email), u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			var liteErr *sqlite.Error
			if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
				return errors.Join(ErrConflict, err)
			}
			return fmt.Errorf("%w: insert user: %v", ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func storedIDs(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("%w: query ids: %v", ErrStorage, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan id: %v", ErrStorage, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read ids: %v", ErrStorage, err)
	}
	return ids, nil
}

func nullKey(s string) sql.NullString {
	if k := identityKey(s); k != nil {
		return sql.NullString{String: *k, Valid: true}
	}
	return sql.NullString{}
}
