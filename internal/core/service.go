// Package core orchestrates a full matching run: crosswalk resolution,
// matrix expansion, allocation, run-cache persistence, and artifact export.
// Every phase is metered and traced through the configured recorder and
// tracer.
package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"mentormatch/internal/allocation"
	"mentormatch/internal/blob"
	"mentormatch/internal/crosswalk"
	"mentormatch/internal/matrix"
	"mentormatch/pkg/domain"
)

// Service runs matching batches end to end.
type Service struct {
	store     domain.ResultStore
	artifacts blob.Store
	metrics   MetricsRecorder
	tracer    Tracer
	nowFn     func() time.Time
	idFn      func() string
}

// Option customizes service construction.
type Option func(*Service)

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithArtifactStore enables report export to the given store.
func WithArtifactStore(b blob.Store) Option {
	return func(s *Service) { s.artifacts = b }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithRunIDGenerator overrides run-id generation, for tests.
func WithRunIDGenerator(id func() string) Option {
	return func(s *Service) {
		if id != nil {
			s.idFn = id
		}
	}
}

// NewService constructs a run service over the given run store.
func NewService(store domain.ResultStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		metrics: NopMetricsRecorder{},
		tracer:  NopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		idFn:    newRunID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRunID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// RunInput is everything one batch consumes, already boundary-mapped.
type RunInput struct {
	RunID    string // generated when empty
	Groups   []crosswalk.Entry
	Synonyms map[string]string
	Schools  []domain.SchoolRef
	Mentors  []domain.MentorRecord
	Students []domain.StudentRow
	Policy   domain.Policy
}

// RunOutput carries the stored snapshot plus the build diagnostics and any
// exported artifacts.
type RunOutput struct {
	Snapshot  domain.RunSnapshot
	Result    domain.Result
	Build     matrix.BuildOutput
	Artifacts []blob.Info
}

// ExecuteRun performs one full matching run. The snapshot is persisted
// before artifacts export; an export failure therefore never loses the run.
func (s *Service) ExecuteRun(ctx context.Context, in RunInput) (RunOutput, error) {
	runID := in.RunID
	if runID == "" {
		runID = s.idFn()
	}
	var out RunOutput

	resolver := crosswalk.New(in.Groups, in.Synonyms)

	build, result, err := s.buildMatrix(ctx, in, resolver)
	if err != nil {
		return out, fmt.Errorf("run %s: build matrix: %w", runID, err)
	}
	out.Build = build
	out.Result = result

	alloc := s.allocate(ctx, in, build)

	snapshot := domain.RunSnapshot{
		RunID:       runID,
		CreatedAt:   s.nowFn(),
		Matrix:      build.Rows,
		Pool:        alloc.Pool,
		Allocations: alloc.Allocations,
		Decisions:   alloc.Decisions,
		Trace:       alloc.Trace,
		Gate:        build.Gate,
		Metrics:     build.Metrics,
		Violations:  result.Violations,
	}
	if err := s.persistRun(ctx, snapshot); err != nil {
		return out, fmt.Errorf("run %s: persist: %w", runID, err)
	}
	out.Snapshot = snapshot

	if s.artifacts != nil {
		infos, err := s.exportArtifacts(ctx, snapshot)
		if err != nil {
			return out, fmt.Errorf("run %s: export artifacts: %w", runID, err)
		}
		out.Artifacts = infos
	}
	return out, nil
}

// Run retrieves a stored snapshot.
func (s *Service) Run(ctx context.Context, runID string) (domain.RunSnapshot, bool, error) {
	return s.store.GetRun(ctx, runID)
}

// Runs lists stored run summaries.
func (s *Service) Runs(ctx context.Context) ([]domain.RunSummary, error) {
	return s.store.ListRuns(ctx)
}

// Explain replays one student against a stored run's pool and returns the
// terminal reason with the stage funnel.
func (s *Service) Explain(ctx context.Context, runID string, student domain.StudentRow, policy domain.Policy) (domain.ReasonCode, []domain.TraceRecord, error) {
	snapshot, ok, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("run %s not found", runID)
	}
	reason, trace := allocation.Replay(student, snapshot.Pool, policy)
	return reason, trace, nil
}

func (s *Service) buildMatrix(ctx context.Context, in RunInput, resolver *crosswalk.Resolver) (matrix.BuildOutput, domain.Result, error) {
	ctx, span := s.tracer.Start(ctx, "build_matrix")
	started := s.nowFn()
	build, result, err := matrix.Build(matrix.BuildInput{
		Mentors:  in.Mentors,
		Schools:  in.Schools,
		Resolver: resolver,
		Students: in.Students,
		Policy:   in.Policy,
	})
	s.metrics.Observe(ctx, "build_matrix", err == nil, s.nowFn().Sub(started))
	span.End(err)
	return build, result, err
}

func (s *Service) allocate(ctx context.Context, in RunInput, build matrix.BuildOutput) allocation.Output {
	ctx, span := s.tracer.Start(ctx, "allocate")
	started := s.nowFn()
	alloc := allocation.Run(allocation.Input{
		Students: in.Students,
		Pool:     build.Pool,
		Policy:   in.Policy,
	})
	s.metrics.Observe(ctx, "allocate", true, s.nowFn().Sub(started))
	span.End(nil)
	return alloc
}

func (s *Service) persistRun(ctx context.Context, snapshot domain.RunSnapshot) error {
	ctx, span := s.tracer.Start(ctx, "persist_run")
	started := s.nowFn()
	err := s.store.SaveRun(ctx, snapshot)
	s.metrics.Observe(ctx, "persist_run", err == nil, s.nowFn().Sub(started))
	span.End(err)
	return err
}

func (s *Service) exportArtifacts(ctx context.Context, snapshot domain.RunSnapshot) ([]blob.Info, error) {
	ctx, span := s.tracer.Start(ctx, "export_artifacts")
	started := s.nowFn()
	infos, err := exportRunArtifacts(ctx, s.artifacts, snapshot)
	s.metrics.Observe(ctx, "export_artifacts", err == nil, s.nowFn().Sub(started))
	span.End(err)
	return infos, err
}
