package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"silkstaff/internal/batch"
	"silkstaff/internal/logging"
	"silkstaff/internal/notifications"
	"silkstaff/internal/tableapi"
	"silkstaff/internal/upload"
)

// TableClient is the part of the table API the jobs use.
type TableClient interface {
	Rows(ctx context.Context, table string, q tableapi.Query) ([]tableapi.Row, error)
	Count(ctx context.Context, table string, filter tableapi.Filter) (int, error)
	Upsert(ctx context.Context, table string, u tableapi.Upsert) (json.RawMessage, error)
	Values(ctx context.Context, table, field string) ([]string, error)
}

// Uploader sends one media file to storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, displayName string) (upload.Result, error)
}

// Option configures a job.
type Option func(*jobDeps)

type jobDeps struct {
	logger   *slog.Logger
	notifier notifications.Service
	report   io.Writer
	sleep    batch.SleepFunc
	now      func() time.Time
}

func newJobDeps(opts []Option) jobDeps {
	d := jobDeps{
		logger: logging.NewNop(),
		sleep:  batch.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithLogger sets the job logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *jobDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithNotifier sets the notification service.
func WithNotifier(svc notifications.Service) Option {
	return func(d *jobDeps) { d.notifier = svc }
}

// WithReport sets where the final report table is written.
func WithReport(w io.Writer) Option {
	return func(d *jobDeps) { d.report = w }
}

// WithSleep replaces every wait the job performs. Tests use it to skip delays.
func WithSleep(sleep batch.SleepFunc) Option {
	return func(d *jobDeps) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(d *jobDeps) {
		if now != nil {
			d.now = now
		}
	}
}

func (d jobDeps) runner() *batch.Runner {
	return batch.NewRunner(batch.WithLogger(d.logger), batch.WithSleep(d.sleep))
}

func (d jobDeps) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			d.logger.Debug("run cancelled, notification not sent", logging.String("event", string(event)))
			return
		}
		d.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// failureIndex extracts the step index from a runner error.
func failureIndex(err error) (int, bool) {
	var stepErr *batch.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Index, true
	}
	return 0, false
}
