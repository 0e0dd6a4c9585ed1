// Package observability provides OpenTelemetry tracing and metrics for
// pipeline runs and the inference host.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("titanic"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.TaskSpanName("titanic", "train-model"))
//	defer span.End()
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter("titanic"))
//	metrics.RecordTask(ctx, "titanic", "train-model", "ok", duration)
//
// Run context:
//
//	rc := observability.NewRunContext("titanic", runID, metrics)
//	ctx = observability.WithRunContext(ctx, rc)
//	ctx, span := rc.StartTask(ctx, "train-model")
//	rc.EndTask(ctx, span, "train-model", err)
package observability
