package services

import "context"

type contextKey string

const (
	jobKey       contextKey = "job"
	stepIndexKey contextKey = "step_index"
	runIDKey     contextKey = "run_id"
)

// WithJob annotates context with the batch job name.
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, job)
}

// JobFromContext returns the batch job name if present.
func JobFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(jobKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithStepIndex annotates context with the zero-based batch step index.
func WithStepIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, stepIndexKey, index)
}

// StepIndexFromContext extracts the batch step index if present.
func StepIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(stepIndexKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithRunID annotates context with a correlation identifier for one process run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
