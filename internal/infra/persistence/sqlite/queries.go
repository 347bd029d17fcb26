package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mentormatch/pkg/domain"
)

const timeLayout = time.RFC3339Nano

func (s *Store) GetRun(ctx context.Context, runID string) (domain.RunSnapshot, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
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

// ListRuns reads summaries from the indexed columns without decoding
// payloads, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, students, allocated FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.RunSummary
	for rows.Next() {
		var (
			summary domain.RunSummary
			created string
		)
		if err := rows.Scan(&summary.RunID, &created, &summary.Students, &summary.Allocated); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ts, err := time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", summary.RunID, err)
		}
		summary.CreatedAt = ts
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
