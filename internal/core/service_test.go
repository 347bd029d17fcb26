package core

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"mentormatch/internal/crosswalk"
	blobmem "mentormatch/internal/infra/blob/memory"
	"mentormatch/internal/infra/persistence/memory"
	"mentormatch/pkg/domain"
)

type recordingMetrics struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingMetrics) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	if !success {
		status = "err"
	}
	r.ops = append(r.ops, operation+":"+status)
}

func testRunInput() RunInput {
	return RunInput{
		Groups: []crosswalk.Entry{{Name: "math", Code: 27}},
		Mentors: []domain.MentorRecord{{
			RowID:      1,
			EmployeeID: "EMP-1",
			Name:       "mentor one",
			GroupTokens: []string{
				"math",
			},
			Gender:     domain.GenderMale,
			PostalCode: "1234",
			Limit:      2,
			Eligible:   true,
		}},
		Students: []domain.StudentRow{{
			StudentID: "S-1",
			Key: domain.JoinKey{
				Subject: 27,
				Gender:  domain.GenderMale,
				Status:  domain.StatusStudent,
			},
		}},
		Policy: domain.DefaultPolicy(),
	}
}

func TestExecuteRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	artifacts := blobmem.New()
	metrics := &recordingMetrics{}
	tracer := NewJSONTracer(&bytes.Buffer{})
	svc := NewService(store,
		WithArtifactStore(artifacts),
		WithMetrics(metrics),
		WithTracer(tracer),
		WithRunIDGenerator(func() string { return "run-1" }),
	)

	out, err := svc.ExecuteRun(ctx, testRunInput())
	if err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}
	if out.Snapshot.RunID != "run-1" {
		t.Fatalf("run id = %s", out.Snapshot.RunID)
	}
	if len(out.Snapshot.Allocations) != 1 || out.Snapshot.Allocations[0].MentorID != "EMP-1" {
		t.Fatalf("allocations = %+v", out.Snapshot.Allocations)
	}

	stored, ok, err := svc.Run(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("Run: ok=%v err=%v", ok, err)
	}
	if len(stored.Matrix) != len(out.Snapshot.Matrix) {
		t.Fatalf("stored matrix rows = %d, want %d", len(stored.Matrix), len(out.Snapshot.Matrix))
	}

	summaries, err := svc.Runs(ctx)
	if err != nil || len(summaries) != 1 {
		t.Fatalf("Runs = %v err=%v", summaries, err)
	}
	if summaries[0].Students != 1 || summaries[0].Allocated != 1 {
		t.Fatalf("summary = %+v", summaries[0])
	}

	if len(out.Artifacts) != 5 {
		t.Fatalf("artifacts = %d, want 5", len(out.Artifacts))
	}
	for _, info := range out.Artifacts {
		if !strings.HasPrefix(info.Key, "runs/run-1/") {
			t.Fatalf("artifact key = %s", info.Key)
		}
	}

	for _, want := range []string{"build_matrix:ok", "allocate:ok", "persist_run:ok", "export_artifacts:ok"} {
		found := false
		for _, got := range metrics.ops {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("metrics missing %s, got %v", want, metrics.ops)
		}
	}
	if len(tracer.Entries()) != 4 {
		t.Fatalf("trace spans = %d, want 4", len(tracer.Entries()))
	}
}

func TestExecuteRunRejectsDuplicateRunID(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), WithRunIDGenerator(func() string { return "run-1" }))

	if _, err := svc.ExecuteRun(ctx, testRunInput()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := svc.ExecuteRun(ctx, testRunInput()); err == nil {
		t.Fatal("second run with same id must fail")
	}
}

func TestExplainReplaysStoredPool(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), WithRunIDGenerator(func() string { return "run-1" }))
	if _, err := svc.ExecuteRun(ctx, testRunInput()); err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}

	stranger := domain.StudentRow{
		StudentID: "S-9",
		Key: domain.JoinKey{
			Subject: 99,
			Gender:  domain.GenderMale,
			Status:  domain.StatusStudent,
		},
	}
	reason, trace, err := svc.Explain(ctx, "run-1", stranger, domain.DefaultPolicy())
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if reason != domain.ReasonGroupMismatch {
		t.Fatalf("reason = %v, want GROUP_MISMATCH", reason)
	}
	if len(trace) != 2 {
		t.Fatalf("trace stages = %d, want 2", len(trace))
	}

	if _, _, err := svc.Explain(ctx, "missing", stranger, domain.DefaultPolicy()); err == nil {
		t.Fatal("unknown run must error")
	}
}

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, "allocate", true, 20*time.Millisecond)
	rec.Observe(ctx, "allocate", false, 5*time.Millisecond)

	stats := rec.Snapshot()["allocate"]
	if stats.TotalMS != 25 {
		t.Fatalf("total ms = %v", stats.TotalMS)
	}
	if stats.Success != 1 || stats.Error != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestJSONTracerEmitsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "persist_run")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Operation != "persist_run" || entries[0].Status != "success" {
		t.Fatalf("entries = %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"persist_run"`) {
		t.Fatalf("encoded output = %s", buf.String())
	}
}
