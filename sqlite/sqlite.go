// Package sqlite implements architex.StateStore on an embedded SQLite
// database, one row per canvas holding its JSON payload.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meikuraledutech/architex"
	_ "modernc.org/sqlite"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at path.
// It enables WAL mode for concurrency and durability.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS canvas_states (
		key        TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_canvas_states_updated ON canvas_states(updated_at);
	`)
	return err
}

func (s *Store) Save(ctx context.Context, key string, st *architex.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("sqlite: encode state %s: %w", key, err)
	}
	updatedAt := st.UpdatedAt
	if updatedAt == 0 {
		updatedAt = time.Now().UnixMilli()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO canvas_states (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(data), updatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: save state %s: %w", key, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, key string) (*architex.State, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM canvas_states WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, architex.ErrStateNotFound
		}
		return nil, fmt.Errorf("sqlite: get state %s: %w", key, err)
	}
	var st architex.State
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, fmt.Errorf("sqlite: decode state %s: %w", key, err)
	}
	return &st, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM canvas_states WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete state %s: %w", key, err)
	}
	return nil
}

// Keys lists stored canvases, most recently updated first.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM canvas_states ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
