package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"silkstaff/internal/logging"
	"silkstaff/internal/services"
)

// ErrInvalidPlan is returned when a Plan cannot be executed.
var ErrInvalidPlan = errors.New("invalid batch plan")

// Plan describes one run over the half-open index range [Start, Total).
type Plan struct {
	Total    int
	Start    int
	Interval time.Duration
}

// Validate reports whether the plan can be executed.
func (p Plan) Validate() error {
	switch {
	case p.Total < 0:
		return fmt.Errorf("%w: total %d is negative", ErrInvalidPlan, p.Total)
	case p.Start < 0:
		return fmt.Errorf("%w: start %d is negative", ErrInvalidPlan, p.Start)
	case p.Start > p.Total:
		return fmt.Errorf("%w: start %d exceeds total %d", ErrInvalidPlan, p.Start, p.Total)
	case p.Interval < 0:
		return fmt.Errorf("%w: interval %s is negative", ErrInvalidPlan, p.Interval)
	}
	return nil
}

// Remaining returns the number of steps the plan will execute.
func (p Plan) Remaining() int {
	if p.Start >= p.Total {
		return 0
	}
	return p.Total - p.Start
}

// StepFunc performs the work for one index.
type StepFunc func(ctx context.Context, index int) error

// StepError reports the step that stopped a run.
type StepError struct {
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d failed: %v", e.Index, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSleep replaces the interval wait. Tests use it to record delays.
func WithSleep(sleep SleepFunc) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// Runner executes plans sequentially.
type Runner struct {
	logger *slog.Logger
	sleep  SleepFunc
}

// NewRunner constructs a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger: logging.NewNop(),
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes step for every index in [plan.Start, plan.Total) in ascending
// order. Each step starts only after the previous one returned and, unless it
// was the last index, plan.Interval elapsed. The first failing step ends the
// run with a *StepError. A cancelled context ends it with an error wrapping
// ctx.Err().
func (r *Runner) Run(ctx context.Context, plan Plan, step StepFunc) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if step == nil {
		return fmt.Errorf("%w: nil step function", ErrInvalidPlan)
	}
	logger := logging.WithContext(ctx, r.logger)
	if plan.Remaining() == 0 {
		logger.Info("nothing to process",
			logging.Int("total", plan.Total),
			logging.Int("start", plan.Start),
			logging.String(logging.FieldEventType, "batch_empty"),
		)
		return nil
	}

	logger.Info("batch started",
		logging.Int("total", plan.Total),
		logging.Int("start", plan.Start),
		logging.Int("remaining", plan.Remaining()),
		logging.Duration("interval", plan.Interval),
		logging.String(logging.FieldEventType, "batch_started"),
	)

	started := time.Now()
	for i := plan.Start; i < plan.Total; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch interrupted before step %d: %w", i, err)
		}

		stepCtx := services.WithStepIndex(ctx, i)
		if err := step(stepCtx, i); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return fmt.Errorf("batch interrupted during step %d: %w", i, err)
			}
			logging.ErrorWithContext(logger, "batch step failed", "batch_step_failed",
				logging.Int(logging.FieldStepIndex, i),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
			)
			return &StepError{Index: i, Err: err}
		}
		logger.Debug("batch step completed", logging.Int(logging.FieldStepIndex, i))

		if i == plan.Total-1 || plan.Interval <= 0 {
			continue
		}
		if err := r.sleep(ctx, plan.Interval); err != nil {
			return fmt.Errorf("batch interrupted after step %d: %w", i, err)
		}
	}

	logger.Info("batch completed",
		logging.Int("processed", plan.Remaining()),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "batch_completed"),
	)
	return nil
}

// Sleep waits for d, returning ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
