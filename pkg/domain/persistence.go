package domain

import (
	"context"
	"time"
)

// RunSnapshot captures the complete output of one matching run for the
// result cache: the built matrix, the post-run pool, and every decision and
// trace record. Snapshots are immutable once saved.
type RunSnapshot struct {
	RunID       string               `json:"run_id"`
	CreatedAt   time.Time            `json:"created_at"`
	Matrix      []MatrixRow          `json:"matrix"`
	Pool        Pool                 `json:"pool"`
	Allocations []AllocationDecision `json:"allocations"`
	Decisions   []Decision           `json:"decisions"`
	Trace       []TraceRecord        `json:"trace"`
	Gate        GateReport           `json:"gate"`
	Metrics     CoverageMetrics      `json:"metrics"`
	Violations  []Violation          `json:"violations,omitempty"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Students  int       `json:"students"`
	Allocated int       `json:"allocated"`
}

// ResultStore caches run snapshots. Implementations must be safe for
// concurrent use; SaveRun must reject an already-stored run id.
type ResultStore interface {
	SaveRun(ctx context.Context, snapshot RunSnapshot) error
	GetRun(ctx context.Context, runID string) (RunSnapshot, bool, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
	Close() error
}
