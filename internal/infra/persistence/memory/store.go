// Package memory provides the in-process run cache used for tests and
// ephemeral environments. Snapshots are deep-copied through JSON on the way
// in and out so callers can never mutate stored state.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"mentormatch/pkg/domain"
)

var _ domain.ResultStore = (*Store)(nil)

// Store keeps run snapshots keyed by run id.
type Store struct {
	mu   sync.RWMutex
	runs map[string]domain.RunSnapshot
}

// NewStore returns an empty in-memory run cache.
func NewStore() *Store {
	return &Store{runs: make(map[string]domain.RunSnapshot)}
}

// SaveRun stores a snapshot. Run ids are immutable once written.
func (s *Store) SaveRun(_ context.Context, snapshot domain.RunSnapshot) error {
	if snapshot.RunID == "" {
		return fmt.Errorf("run id required")
	}
	cloned, err := cloneSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[snapshot.RunID]; exists {
		return fmt.Errorf("run %s already stored", snapshot.RunID)
	}
	s.runs[snapshot.RunID] = cloned
	return nil
}

func (s *Store) GetRun(_ context.Context, runID string) (domain.RunSnapshot, bool, error) {
	s.mu.RLock()
	snapshot, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return domain.RunSnapshot{}, false, nil
	}
	cloned, err := cloneSnapshot(snapshot)
	if err != nil {
		return domain.RunSnapshot{}, false, err
	}
	return cloned, true, nil
}

// ListRuns returns summaries sorted by creation time, oldest first, with the
// run id as tie-break.
func (s *Store) ListRuns(_ context.Context) ([]domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RunSummary, 0, len(s.runs))
	for _, snapshot := range s.runs {
		out = append(out, summarize(snapshot))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

func (s *Store) Close() error { return nil }

func summarize(snapshot domain.RunSnapshot) domain.RunSummary {
	return domain.RunSummary{
		RunID:     snapshot.RunID,
		CreatedAt: snapshot.CreatedAt,
		Students:  len(snapshot.Decisions),
		Allocated: len(snapshot.Allocations),
	}
}

func cloneSnapshot(snapshot domain.RunSnapshot) (domain.RunSnapshot, error) {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return domain.RunSnapshot{}, fmt.Errorf("encode run %s: %w", snapshot.RunID, err)
	}
	var out domain.RunSnapshot
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.RunSnapshot{}, fmt.Errorf("decode run %s: %w", snapshot.RunID, err)
	}
	return out, nil
}
