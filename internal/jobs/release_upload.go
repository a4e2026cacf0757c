package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"silkstaff/internal/checkpoint"
	"silkstaff/internal/config"
	"silkstaff/internal/logging"
	"silkstaff/internal/notifications"
	"silkstaff/internal/release"
	"silkstaff/internal/services"
	"silkstaff/internal/tableapi"
)

// JobUpload names the release upload job in logs, notifications, and checkpoints.
const JobUpload = "upload"

const platformValueField = "value"

// ReleaseUploadOptions carries command-line overrides.
type ReleaseUploadOptions struct {
	ExcelPath string
	MediaDir  string
	// StartIndex forces the first record to process.
	StartIndex *int
	// Interval replaces the configured pause between releases.
	Interval *time.Duration
}

// ReleaseUpload uploads every release of a spreadsheet.
type ReleaseUpload struct {
	cfg      *config.Config
	tables   TableClient
	uploader Uploader
	deps     jobDeps
}

// NewReleaseUpload constructs the release upload job.
func NewReleaseUpload(cfg *config.Config, tables TableClient, uploader Uploader, opts ...Option) *ReleaseUpload {
	d := newJobDeps(opts)
	d.logger = logging.NewComponentLogger(d.logger, JobUpload)
	return &ReleaseUpload{cfg: cfg, tables: tables, uploader: uploader, deps: d}
}

// Execute runs setup and then the upload batch. Setup failures return before
// any release is touched. The returned stats are non-nil once records were
// parsed, including when the batch stops on a failed release.
func (j *ReleaseUpload) Execute(ctx context.Context, opts ReleaseUploadOptions) (*UploadStats, error) {
	ctx = services.WithJob(ctx, JobUpload)
	logger := logging.WithContext(ctx, j.deps.logger)

	if err := j.cfg.ValidateAPI(); err != nil {
		return nil, err
	}
	excelPath, mediaDir, err := resolveInputs(j.cfg, j.deps.logger, JobUpload, opts.ExcelPath, opts.MediaDir)
	if err != nil {
		return nil, err
	}
	logger.Info("release upload starting",
		logging.String("excel", excelPath),
		logging.String("media_dir", mediaDir),
		logging.String(logging.FieldEventType, "job_setup"),
	)

	store := checkpoint.NewStore(j.cfg.ReleaseUpload.CheckpointPath)
	if err := store.Lock(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, JobUpload, "lock checkpoint", "another upload run is active", err)
	}
	defer func() { _ = store.Unlock() }()

	platforms, err := j.tables.Values(ctx, j.cfg.ReleaseUpload.PlatformsTable, platformValueField)
	if err != nil {
		return nil, fmt.Errorf("fetch audio platforms: %w", err)
	}
	if len(platforms) == 0 {
		return nil, services.Wrap(services.ErrValidation, JobUpload, "fetch audio platforms", "table "+j.cfg.ReleaseUpload.PlatformsTable+" returned no platforms", nil)
	}

	records, err := j.parse(ctx, excelPath, platforms)
	if err != nil {
		return nil, err
	}

	stats := &UploadStats{TotalReleases: len(records), Started: j.deps.now()}
	for _, rec := range records {
		stats.TotalTracks += rec.TrackCount()
	}
	stats.MissingFiles = j.checkMedia(ctx, records, mediaDir)

	interval := j.cfg.ReleaseUpload.Interval()
	if opts.Interval != nil {
		interval = *opts.Interval
	}
	job := &Resumable{
		Name:     JobUpload,
		Store:    store,
		Identity: checkpoint.Identity{Source: excelPath, Directory: mediaDir},
		Total:    len(records),
		Interval: interval,
		Override: opts.StartIndex,
		Runner:   j.deps.runner(),
		Logger:   j.deps.logger,
	}
	start, cp, err := job.Prepare()
	if err != nil {
		return nil, err
	}
	if cp != nil && cp.Interrupted && opts.StartIndex == nil {
		if cp.Identity.Source != excelPath || cp.Identity.Directory != mediaDir {
			logging.WarnWithContext(logger, "checkpoint was recorded for different input paths", "checkpoint_identity_mismatch",
				logging.String("checkpoint_excel", cp.Identity.Source),
				logging.String("checkpoint_media_dir", cp.Identity.Directory),
				logging.String(logging.FieldImpact, "resuming by index; records may not line up"),
				logging.String(logging.FieldErrorHint, "clear the checkpoint if the spreadsheet changed"),
			)
		}
	}
	stats.StartIndex = start
	creditCompleted(stats, records[:start])
	if start > 0 {
		logger.Info("resuming release upload",
			logging.Int("start", start+1),
			logging.Int("total", len(records)),
			logging.Int("already_uploaded", stats.SuccessfulReleases),
			logging.String(logging.FieldEventType, "job_resumed"),
		)
	}

	j.deps.publish(ctx, notifications.EventJobStarted, notifications.Payload{"job": JobUpload, "total": len(records), "start": start})

	runErr := job.Run(ctx, start, func(ctx context.Context, index int) error {
		return j.uploadRelease(ctx, records[index], mediaDir, stats)
	})
	stats.Finished = j.deps.now()

	if runErr != nil {
		payload := notifications.Payload{"job": JobUpload, "error": runErr}
		if idx, ok := failureIndex(runErr); ok {
			payload["index"] = idx
		}
		if !errors.Is(runErr, context.Canceled) {
			j.deps.publish(ctx, notifications.EventJobFailed, payload)
		}
	} else {
		logger.Info("release upload finished",
			logging.Int("uploaded", stats.SuccessfulReleases),
			logging.Int("failed_tracks", stats.FailedTracks),
			logging.Duration("elapsed", stats.Elapsed()),
			logging.String(logging.FieldEventType, "job_completed"),
		)
		j.deps.publish(ctx, notifications.EventJobCompleted, notifications.Payload{
			"job":       JobUpload,
			"processed": stats.SuccessfulReleases,
			"failed":    stats.FailedReleases,
			"duration":  stats.Elapsed(),
		})
	}
	if err := WriteUploadReport(j.deps.report, *stats); err != nil {
		logger.Debug("report not written", logging.Error(err))
	}
	return stats, runErr
}

func (j *ReleaseUpload) uploadRelease(ctx context.Context, rec release.Record, mediaDir string, stats *UploadStats) error {
	logger := logging.WithContext(ctx, j.deps.logger)
	logger.Info("uploading release",
		logging.String("release", rec.DisplayName()),
		logging.Int("tracks", rec.TrackCount()),
		logging.String("progress", fmt.Sprintf("%d/%d", stepNumber(ctx), stats.TotalReleases)),
	)

	srcs := make([]string, len(rec.Tracks))
	for i, track := range rec.Tracks {
		uploaded, err := j.uploadFile(ctx, mediaDir, track.Src, track.Name)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats.FailedTracks++
			logging.WarnWithContext(logger, "track upload failed", "track_upload_failed",
				logging.String("release", rec.DisplayName()),
				logging.String("track", track.Name),
				logging.String("file", track.Src),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "track is saved without audio"),
			)
			continue
		}
		stats.SuccessfulTracks++
		srcs[i] = uploaded.URL
	}

	var cover release.Asset
	coverRes, err := j.uploadFile(ctx, mediaDir, rec.CoverFile, rec.Name)
	switch {
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		stats.FailedCovers++
		logging.WarnWithContext(logger, "cover upload failed", "cover_upload_failed",
			logging.String("release", rec.DisplayName()),
			logging.String("file", rec.CoverFile),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "release is saved without a cover"),
		)
	default:
		stats.SuccessfulCovers++
		cover = release.Asset{Name: coverRes.Name, URL: coverRes.URL}
	}

	_, err = j.tables.Upsert(ctx, j.cfg.ReleaseUpload.Table, tableapi.Upsert{
		Payload: rec.Payload(cover, srcs),
		Notice:  j.cfg.ReleaseUpload.Notice,
		User:    j.cfg.API.UserID,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.FailedReleases++
		return fmt.Errorf("save release %q: %w", rec.DisplayName(), err)
	}
	stats.SuccessfulReleases++
	logger.Info("release uploaded",
		logging.String("release", rec.DisplayName()),
		logging.String(logging.FieldEventType, "release_uploaded"),
	)
	return nil
}

type uploadedFile struct {
	Name string
	URL  string
}

func (j *ReleaseUpload) uploadFile(ctx context.Context, mediaDir, file, displayName string) (uploadedFile, error) {
	if strings.TrimSpace(file) == "" {
		return uploadedFile{}, services.Wrap(services.ErrValidation, JobUpload, "upload", "no media file named in the spreadsheet", nil)
	}
	res, err := j.uploader.Upload(ctx, filepath.Join(mediaDir, file), displayName)
	if err != nil {
		return uploadedFile{}, err
	}
	return uploadedFile{Name: res.Name, URL: res.URL}, nil
}

func (j *ReleaseUpload) parse(ctx context.Context, excelPath string, platforms []string) ([]release.Record, error) {
	logger := logging.WithContext(ctx, j.deps.logger)
	rows, err := release.ReadWorkbook(excelPath, j.cfg.ReleaseUpload.Sheet)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, JobUpload, "read spreadsheet", excelPath, err)
	}
	records, issues := release.ParseRows(rows, release.Options{
		Countries:      release.Countries(),
		Platforms:      platforms,
		Today:          j.deps.now(),
		StartDelayDays: j.cfg.ReleaseUpload.StartDelayDays,
	})
	for _, issue := range issues {
		logging.WarnWithContext(logger, "spreadsheet cell ignored", "spreadsheet_issue",
			logging.Int("row", issue.Row),
			logging.String("column", issue.Column),
			logging.String("problem", issue.Message),
			logging.String(logging.FieldImpact, "field is left empty in the release"),
		)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrValidation, JobUpload, "parse spreadsheet", "no releases found in "+excelPath, nil)
	}
	tracks := 0
	for _, rec := range records {
		tracks += rec.TrackCount()
	}
	logger.Info("releases parsed",
		logging.Int("releases", len(records)),
		logging.Int("tracks", tracks),
		logging.Int("rows", len(rows)-1),
	)
	return records, nil
}

// checkMedia warns about referenced files missing from mediaDir and returns
// how many there are. Missing files do not stop the run.
func (j *ReleaseUpload) checkMedia(ctx context.Context, records []release.Record, mediaDir string) int {
	logger := logging.WithContext(ctx, j.deps.logger)
	missing := 0
	check := func(rec release.Record, kind, file string) {
		if strings.TrimSpace(file) == "" {
			return
		}
		path := filepath.Join(mediaDir, file)
		if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
			return
		}
		missing++
		logging.WarnWithContext(logger, "media file missing", "media_missing",
			logging.String("release", rec.DisplayName()),
			logging.String("kind", kind),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "check the media directory"),
			logging.String(logging.FieldImpact, "upload continues with the files that exist"),
		)
	}
	for _, rec := range records {
		for _, track := range rec.Tracks {
			check(rec, "track", track.Src)
		}
		check(rec, "cover", rec.CoverFile)
	}
	if missing == 0 {
		logger.Info("all media files present")
	}
	return missing
}

func creditCompleted(stats *UploadStats, done []release.Record) {
	for _, rec := range done {
		stats.SuccessfulReleases++
		stats.SuccessfulTracks += rec.TrackCount()
		if rec.CoverFile != "" {
			stats.SuccessfulCovers++
		}
	}
}

func stepNumber(ctx context.Context) int {
	if idx, ok := services.StepIndexFromContext(ctx); ok {
		return idx + 1
	}
	return 0
}
