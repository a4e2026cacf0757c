package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"silkstaff/internal/batch"
	"silkstaff/internal/checkpoint"
	"silkstaff/internal/logging"
	"silkstaff/internal/services"
)

// ErrCheckpointWrite marks a run stopped because progress could not be saved.
var ErrCheckpointWrite = errors.New("checkpoint write failed")

// Resumable runs a batch whose progress survives process restarts.
type Resumable struct {
	Name     string
	Store    *checkpoint.Store
	Identity checkpoint.Identity
	Total    int
	Interval time.Duration
	// Override forces the start index and skips the total check.
	Override *int
	Runner   *batch.Runner
	Logger   *slog.Logger
}

// Prepare loads the checkpoint and resolves the start index. An interrupted
// checkpoint for a batch of a different size is an error unless Override is set.
func (r *Resumable) Prepare() (int, *checkpoint.Checkpoint, error) {
	if r.Store == nil {
		return 0, nil, services.Wrap(services.ErrConfiguration, r.Name, "prepare", "checkpoint store is required", nil)
	}
	cp, err := r.Store.Load()
	if err != nil {
		return 0, nil, services.Wrap(services.ErrValidation, r.Name, "load checkpoint", r.Store.Path(), err)
	}
	if r.Override == nil {
		if err := cp.CheckTotal(r.Total); err != nil {
			return 0, cp, services.Wrap(services.ErrValidation, r.Name, "resume", "rerun with --initial-iteration or clear the checkpoint", err)
		}
	}
	start := checkpoint.ResolveStartIndex(cp, r.Override)
	if err := (batch.Plan{Total: r.Total, Start: start, Interval: r.Interval}).Validate(); err != nil {
		return 0, cp, services.Wrap(services.ErrValidation, r.Name, "resume", "start index out of range", err)
	}
	return start, cp, nil
}

// Run executes step for [start, Total). Each successful step is recorded
// before the next one begins; a failed recording stops the run. The
// checkpoint is cleared only when every step succeeded. A lock already held
// by the caller is left in place; otherwise Run takes it for its duration.
func (r *Resumable) Run(ctx context.Context, start int, step batch.StepFunc) error {
	if !r.Store.Locked() {
		if err := r.Store.Lock(); err != nil {
			return services.Wrap(services.ErrConfiguration, r.Name, "lock checkpoint", "another run is active", err)
		}
		defer func() { _ = r.Store.Unlock() }()
	}

	runner := r.Runner
	if runner == nil {
		runner = batch.NewRunner(batch.WithLogger(r.Logger))
	}
	ctx = services.WithJob(ctx, r.Name)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "jobs"))

	recorded := func(ctx context.Context, index int) error {
		if err := step(ctx, index); err != nil {
			return err
		}
		if err := r.Store.Record(index, r.Total, r.Identity); err != nil {
			return fmt.Errorf("%w: %w", ErrCheckpointWrite, err)
		}
		return nil
	}

	plan := batch.Plan{Total: r.Total, Start: start, Interval: r.Interval}
	if err := runner.Run(ctx, plan, recorded); err != nil {
		return err
	}
	if err := r.Store.Clear(); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointWrite, err)
	}
	logger.Debug("checkpoint cleared", logging.String("path", r.Store.Path()))
	return nil
}
