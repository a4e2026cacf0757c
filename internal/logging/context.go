package logging

import (
	"context"
	"log/slog"

	"silkstaff/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJob names the batch job (upload, shipment).
	FieldJob = "job"
	// FieldStepIndex is the zero-based index of the batch step being processed.
	FieldStepIndex = "step_index"
	// FieldRunID correlates every line emitted by one process run.
	FieldRunID = "run_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint is an operator-facing next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if job, ok := services.JobFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJob, job))
	}
	if idx, ok := services.StepIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldStepIndex, idx))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
