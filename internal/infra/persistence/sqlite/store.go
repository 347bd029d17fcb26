// Package sqlite persists run snapshots to a single SQLite database using
// the pure-Go driver. Each run is one row: summary columns for listing plus
// the full snapshot as a JSON payload.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"mentormatch/pkg/domain"
)

var _ domain.ResultStore = (*Store)(nil)

// Store wraps one SQLite database holding the runs table.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	students INTEGER NOT NULL,
	allocated INTEGER NOT NULL,
	payload BLOB NOT NULL
)`

// NewStore opens (or creates) the database at path and ensures the schema.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "mentormatch.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// SaveRun inserts the snapshot. The primary key enforces run-id immutability;
// a duplicate insert surfaces as an error rather than an upsert.
func (s *Store) SaveRun(ctx context.Context, snapshot domain.RunSnapshot) error {
	if snapshot.RunID == "" {
		return fmt.Errorf("run id required")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", snapshot.RunID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, created_at, students, allocated, payload) VALUES(?,?,?,?,?)`,
		snapshot.RunID,
		snapshot.CreatedAt.UTC().Format(timeLayout),
		len(snapshot.Decisions),
		len(snapshot.Allocations),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", snapshot.RunID, err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }
