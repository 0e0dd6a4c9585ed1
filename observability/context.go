package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Status values recorded on spans and metrics.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RunContext holds observability context for one pipeline run.
type RunContext struct {
	Pipeline  string
	RunID     string
	StartTime time.Time
	Metrics   *Metrics
}

// NewRunContext creates a run context.
// If metrics is nil, metric recording is silently skipped.
func NewRunContext(pipeline, runID string, metrics *Metrics) *RunContext {
	return &RunContext{
		Pipeline:  pipeline,
		RunID:     runID,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// TaskSpan is an in-flight task invocation.
type TaskSpan struct {
	trace.Span
	task  string
	start time.Time
}

// StartTask starts the span of one task invocation.
func (rc *RunContext) StartTask(ctx context.Context, task string) (context.Context, *TaskSpan) {
	ctx, span := StartSpan(ctx, TaskSpanName(rc.Pipeline, task))
	span.SetAttributes(
		attribute.String(AttrPipeline, rc.Pipeline),
		attribute.String(AttrTask, task),
		attribute.String(AttrRunID, rc.RunID),
	)
	return ctx, &TaskSpan{Span: span, task: task, start: time.Now()}
}

// EndTask ends the task span and records task metrics. It returns the elapsed time.
func (rc *RunContext) EndTask(ctx context.Context, ts *TaskSpan, err error) time.Duration {
	duration := time.Since(ts.start)
	status := StatusOK
	if err != nil {
		status = StatusError
		ts.RecordError(err)
		ts.SetStatus(codes.Error, err.Error())
		ts.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	ts.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	ts.End()

	if rc.Metrics != nil {
		rc.Metrics.RecordTask(ctx, rc.Pipeline, ts.task, status, duration)
		if err != nil {
			rc.Metrics.RecordError(ctx, "task", rc.Pipeline)
		}
	}
	return duration
}

// Finish records the outcome of the whole run.
func (rc *RunContext) Finish(ctx context.Context, err error) {
	if rc.Metrics == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	rc.Metrics.RecordRun(ctx, rc.Pipeline, status)
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
