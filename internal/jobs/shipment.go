package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"silkstaff/internal/batch"
	"silkstaff/internal/checkpoint"
	"silkstaff/internal/config"
	"silkstaff/internal/fileutil"
	"silkstaff/internal/logging"
	"silkstaff/internal/notifications"
	"silkstaff/internal/services"
	"silkstaff/internal/tableapi"
)

// JobShipment names the shipment job in logs, notifications, and checkpoints.
const JobShipment = "shipment"

const backupTimeLayout = "20060102-150405"

// ShipmentOptions carries command-line overrides.
type ShipmentOptions struct {
	// StartIndex forces the first row to update.
	StartIndex *int
}

// Shipment moves the user's releases from the source to the target status.
type Shipment struct {
	cfg    *config.Config
	tables TableClient
	deps   jobDeps
}

// NewShipment constructs the shipment job.
func NewShipment(cfg *config.Config, tables TableClient, opts ...Option) *Shipment {
	d := newJobDeps(opts)
	d.logger = logging.NewComponentLogger(d.logger, JobShipment)
	return &Shipment{cfg: cfg, tables: tables, deps: d}
}

// Filter selects the rows the job hands over: owned by the configured user
// and still in the source status.
func (j *Shipment) Filter() tableapi.Filter {
	return tableapi.And(
		tableapi.Eq("user", j.cfg.API.UserID),
		tableapi.Eq("data.status", j.cfg.Shipment.SourceStatus),
	)
}

// Execute fetches the matching rows (or reloads them from the backup of an
// interrupted run) and updates them one at a time.
func (j *Shipment) Execute(ctx context.Context, opts ShipmentOptions) (*ShipmentStats, error) {
	ctx = services.WithJob(ctx, JobShipment)
	logger := logging.WithContext(ctx, j.deps.logger)

	if err := j.cfg.ValidateAPI(); err != nil {
		return nil, err
	}

	store := checkpoint.NewStore(j.cfg.Shipment.CheckpointPath)
	if err := store.Lock(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, JobShipment, "lock checkpoint", "another shipment run is active", err)
	}
	defer func() { _ = store.Unlock() }()

	cp, err := store.Load()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, JobShipment, "load checkpoint", store.Path(), err)
	}

	stats := &ShipmentStats{Started: j.deps.now()}
	var rows []tableapi.Row
	if cp != nil && cp.Interrupted {
		if cp.Identity.Source == "" {
			return nil, services.Wrap(services.ErrValidation, JobShipment, "resume", "interrupted checkpoint has no backup path; clear it to start over", nil)
		}
		rows, err = LoadBackup(cp.Identity.Source)
		if err != nil {
			return nil, err
		}
		stats.BackupPath = cp.Identity.Source
		stats.Resumed = true
		logger.Info("resuming shipment from backup",
			logging.String("backup", cp.Identity.Source),
			logging.Int("rows", len(rows)),
			logging.String(logging.FieldEventType, "job_resumed"),
		)
	} else {
		rows, err = j.fetch(ctx)
		if err != nil {
			return nil, err
		}
		stats.BackupPath, err = j.writeBackup(rows)
		if err != nil {
			return nil, err
		}
		logger.Info("backup written",
			logging.String("path", stats.BackupPath),
			logging.Int("rows", len(rows)),
		)
	}
	stats.Matched = len(rows)

	job := &Resumable{
		Name:     JobShipment,
		Store:    store,
		Identity: checkpoint.Identity{Source: stats.BackupPath},
		Total:    len(rows),
		Interval: j.cfg.Shipment.UpdateInterval(),
		Override: opts.StartIndex,
		Runner:   j.deps.runner(),
		Logger:   j.deps.logger,
	}
	start, _, err := job.Prepare()
	if err != nil {
		return nil, err
	}
	stats.StartIndex = start
	stats.Updated = start

	j.deps.publish(ctx, notifications.EventJobStarted, notifications.Payload{"job": JobShipment, "total": len(rows), "start": start})

	runErr := job.Run(ctx, start, func(ctx context.Context, index int) error {
		if err := j.moveRow(ctx, rows[index]); err != nil {
			if ctx.Err() == nil {
				stats.Failed++
			}
			return err
		}
		stats.Updated++
		return nil
	})
	stats.Finished = j.deps.now()

	if runErr != nil {
		payload := notifications.Payload{"job": JobShipment, "error": runErr}
		if idx, ok := failureIndex(runErr); ok {
			payload["index"] = idx
		}
		if !errors.Is(runErr, context.Canceled) {
			j.deps.publish(ctx, notifications.EventJobFailed, payload)
		}
	} else {
		logger.Info("shipment finished",
			logging.Int("moved", stats.Updated),
			logging.Duration("elapsed", stats.Elapsed()),
			logging.String(logging.FieldEventType, "job_completed"),
		)
		j.deps.publish(ctx, notifications.EventJobCompleted, notifications.Payload{
			"job":       JobShipment,
			"processed": stats.Updated,
			"failed":    stats.Failed,
			"duration":  stats.Elapsed(),
		})
	}
	if err := WriteShipmentReport(j.deps.report, *stats); err != nil {
		logger.Debug("report not written", logging.Error(err))
	}
	return stats, runErr
}

// fetch pages through the matching rows with the fetch interval between pages.
func (j *Shipment) fetch(ctx context.Context) ([]tableapi.Row, error) {
	logger := logging.WithContext(ctx, j.deps.logger)
	table := j.cfg.Shipment.Table
	filter := j.Filter()

	count, err := j.tables.Count(ctx, table, filter)
	if err != nil {
		return nil, fmt.Errorf("count %s releases: %w", j.cfg.Shipment.SourceStatus, err)
	}
	limit := j.cfg.Shipment.PageLimit
	pages := (count + limit - 1) / limit
	logger.Info("releases matched",
		logging.Int("count", count),
		logging.Int("pages", pages),
		logging.String("status", j.cfg.Shipment.SourceStatus),
	)

	rows := make([]tableapi.Row, 0, count)
	plan := batch.Plan{Total: pages, Interval: j.cfg.Shipment.FetchInterval()}
	err = j.deps.runner().Run(ctx, plan, func(ctx context.Context, page int) error {
		batchRows, err := j.tables.Rows(ctx, table, tableapi.Query{Page: page, Limit: limit, Filter: filter})
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page, err)
		}
		rows = append(rows, batchRows...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// moveRow sets the flag field, waits, then sets the target status.
func (j *Shipment) moveRow(ctx context.Context, row tableapi.Row) error {
	logger := logging.WithContext(ctx, j.deps.logger)
	user := row.User
	if user == "" {
		user = j.cfg.API.UserID
	}
	table := j.cfg.Shipment.Table

	flag := map[string]any{j.cfg.Shipment.FlagField: true}
	if _, err := j.tables.Upsert(ctx, table, tableapi.Upsert{ID: row.ID, Payload: flag, Notice: j.cfg.Shipment.Notice, User: user}); err != nil {
		return fmt.Errorf("flag release %s: %w", row.ID, err)
	}
	if err := j.deps.sleep(ctx, j.cfg.Shipment.FlagDelay()); err != nil {
		return err
	}
	status := map[string]any{"status": j.cfg.Shipment.TargetStatus}
	if _, err := j.tables.Upsert(ctx, table, tableapi.Upsert{ID: row.ID, Payload: status, Notice: j.cfg.Shipment.Notice, User: user}); err != nil {
		return fmt.Errorf("set status of release %s: %w", row.ID, err)
	}
	logger.Info("release moved",
		logging.String("id", row.ID),
		logging.String("release", row.Name()),
		logging.String("status", j.cfg.Shipment.TargetStatus),
		logging.String(logging.FieldEventType, "release_moved"),
	)
	return nil
}

func (j *Shipment) writeBackup(rows []tableapi.Row) (string, error) {
	name := fmt.Sprintf("shipment-backup-%s.json", j.deps.now().UTC().Format(backupTimeLayout))
	path := filepath.Join(j.cfg.Paths.ResultsDir, name)
	if rows == nil {
		rows = []tableapi.Row{}
	}
	if err := fileutil.WriteJSONAtomic(path, rows); err != nil {
		return "", fmt.Errorf("write shipment backup: %w", err)
	}
	return path, nil
}

// LoadBackup reads rows saved by a previous shipment run.
func LoadBackup(path string) ([]tableapi.Row, error) {
	var rows []tableapi.Row
	if err := fileutil.ReadJSON(path, &rows); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, JobShipment, "load backup", path+" is gone; clear the checkpoint to start over", err)
		}
		return nil, services.Wrap(services.ErrValidation, JobShipment, "load backup", path, err)
	}
	return rows, nil
}
