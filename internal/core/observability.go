package core

import (
	"context"
	"time"
)

// MetricsRecorder receives one observation per service operation: the run
// phases (resolve, build, allocate, persist, export) plus the store calls.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan ends one traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer opens spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// NopMetricsRecorder discards observations.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// NopTracer discards spans.
type NopTracer struct{}

func (NopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) End(error) {}
