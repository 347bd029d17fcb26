// Package postgres persists run snapshots to Postgres through the pgx
// database/sql driver. Schema mirrors the SQLite store: one row per run with
// summary columns plus the full snapshot as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"mentormatch/pkg/domain"
)

var _ domain.ResultStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/mentormatch?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store wraps one Postgres connection pool holding the runs table.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed run store using the provided DSN (falls
// back to defaultDSN) and ensures the runs table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		students INTEGER NOT NULL,
		allocated INTEGER NOT NULL,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure runs table: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun inserts the snapshot; the primary key rejects duplicate run ids.
func (s *Store) SaveRun(ctx context.Context, snapshot domain.RunSnapshot) error {
	if snapshot.RunID == "" {
		return fmt.Errorf("run id required")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", snapshot.RunID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, created_at, students, allocated, payload) VALUES($1,$2,$3,$4,$5)`,
		snapshot.RunID,
		snapshot.CreatedAt,
		len(snapshot.Decisions),
		len(snapshot.Allocations),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", snapshot.RunID, err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (domain.RunSnapshot, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = $1`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunSnapshot{}, false, nil
	}
	if err != nil {
		return domain.RunSnapshot{}, false, fmt.Errorf("select run %s: %w", runID, err)
	}
	var snapshot domain.RunSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return domain.RunSnapshot{}, false, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return snapshot, true, nil
}

// ListRuns reads summaries from the indexed columns, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, students, allocated FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.RunSummary
	for rows.Next() {
		var summary domain.RunSummary
		if err := rows.Scan(&summary.RunID, &summary.CreatedAt, &summary.Students, &summary.Allocated); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
