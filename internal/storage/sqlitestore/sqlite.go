package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nanopaste/internal/storage"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := initialize(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS pastes (
    id TEXT PRIMARY KEY,
    content BLOB NOT NULL,
    created_at DATETIME NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Exists reports whether id is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT 1 FROM pastes WHERE id = ?;`
	var one int
	err := s.db.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query paste: %w", err)
	}
	return true, nil
}

// Get fetches a paste's content by id.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	const q = `SELECT content FROM pastes WHERE id = ?;`
	var content []byte
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query paste: %w", err)
	}
	return content, nil
}

// Put inserts a paste, refusing to overwrite an existing id.
func (s *Store) Put(ctx context.Context, id string, content []byte) error {
	const q = `INSERT INTO pastes (id, content, created_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING;`
	res, err := s.db.ExecContext(ctx, q, id, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save paste: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return storage.ErrExists
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
