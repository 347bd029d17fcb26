package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"mentormatch/internal/blob"
	"mentormatch/pkg/domain"
)

// Artifact names under runs/<run_id>/.
const (
	artifactAllocations = "allocations.csv"
	artifactTrace       = "trace.csv"
	artifactGate        = "gate.json"
	artifactCoverage    = "coverage.json"
	artifactViolations  = "violations.json"
)

// exportRunArtifacts renders the run's reports and writes them to the
// artifact store. Keys include the run id, so re-export of an existing run
// fails on the store's create-only contract.
func exportRunArtifacts(ctx context.Context, store blob.Store, snapshot domain.RunSnapshot) ([]blob.Info, error) {
	artifacts := []struct {
		name        string
		contentType string
		render      func() ([]byte, error)
	}{
		{artifactAllocations, "text/csv", func() ([]byte, error) { return renderAllocationsCSV(snapshot.Allocations) }},
		{artifactTrace, "text/csv", func() ([]byte, error) { return renderTraceCSV(snapshot.Trace) }},
		{artifactGate, "application/json", func() ([]byte, error) { return marshalJSON(snapshot.Gate) }},
		{artifactCoverage, "application/json", func() ([]byte, error) { return marshalJSON(snapshot.Metrics) }},
		{artifactViolations, "application/json", func() ([]byte, error) { return marshalJSON(snapshot.Violations) }},
	}

	infos := make([]blob.Info, 0, len(artifacts))
	for _, a := range artifacts {
		data, err := a.render()
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", a.name, err)
		}
		info, err := store.Put(ctx, blob.RunKey(snapshot.RunID, a.name), bytes.NewReader(data), blob.PutOptions{
			ContentType: a.contentType,
			Metadata:    map[string]string{"run_id": snapshot.RunID},
		})
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", a.name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func marshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func renderAllocationsCSV(allocations []domain.AllocationDecision) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"counter", "student_id", "mentor_id", "reason", "occupancy_ratio", "allocations_new", "remaining_capacity"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, a := range allocations {
		record := []string{
			strconv.Itoa(a.Counter),
			a.StudentID,
			a.MentorID,
			string(a.Reason),
			strconv.FormatFloat(a.OccupancyRatio, 'f', 4, 64),
			strconv.Itoa(a.AllocationsNew),
			strconv.Itoa(a.RemainingCapacity),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderTraceCSV(trace []domain.TraceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"student_id", "stage", "column", "before", "after", "matched", "row_school", "student_school"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, rec := range trace {
		record := []string{
			rec.StudentID,
			rec.Stage,
			rec.Column,
			strconv.Itoa(rec.Before),
			strconv.Itoa(rec.After),
			strconv.FormatBool(rec.Matched),
			rec.Extras["row_school"],
			rec.Extras["student_school"],
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
