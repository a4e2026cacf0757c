package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"silkstaff/internal/config"
	"silkstaff/internal/logging"
	"silkstaff/internal/release"
	"silkstaff/internal/services"
)

// JobCompare names the media comparison job in logs.
const JobCompare = "compare"

const comparisonTimeLayout = "2006-01-02_15-04-05"

// CompareOptions carries command-line overrides.
type CompareOptions struct {
	ExcelPath string
	MediaDir  string
}

// CompareResult summarises a comparison run.
type CompareResult struct {
	ExcelPath   string
	MediaDir    string
	Rows        int
	Files       int
	Mismatches  []release.Mismatch
	ResultsPath string
}

// MediaComparison checks the file names a spreadsheet refers to against the
// media directory before an upload.
type MediaComparison struct {
	cfg  *config.Config
	deps jobDeps
}

// NewMediaComparison constructs the comparison job.
func NewMediaComparison(cfg *config.Config, opts ...Option) *MediaComparison {
	d := newJobDeps(opts)
	d.logger = logging.NewComponentLogger(d.logger, JobCompare)
	return &MediaComparison{cfg: cfg, deps: d}
}

// Execute compares the spreadsheet with the directory listing and saves every
// mismatch to a timestamped workbook under the results directory. The
// workbook is written even when everything matches.
func (j *MediaComparison) Execute(ctx context.Context, opts CompareOptions) (*CompareResult, error) {
	ctx = services.WithJob(ctx, JobCompare)
	logger := logging.WithContext(ctx, j.deps.logger)

	excelPath, mediaDir, err := resolveInputs(j.cfg, j.deps.logger, JobCompare, opts.ExcelPath, opts.MediaDir)
	if err != nil {
		return nil, err
	}
	rows, err := release.ReadWorkbook(excelPath, j.cfg.ReleaseUpload.Sheet)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, JobCompare, "read spreadsheet", excelPath, err)
	}
	files, err := listFiles(mediaDir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, JobCompare, "list media", mediaDir, err)
	}

	result := &CompareResult{
		ExcelPath:  excelPath,
		MediaDir:   mediaDir,
		Rows:       max(len(rows)-1, 0),
		Files:      len(files),
		Mismatches: release.Compare(rows, files),
	}
	for _, m := range result.Mismatches {
		if m.Severity() == release.SeverityHigh {
			logging.WarnWithContext(logger, "spreadsheet file has no close match", "media_mismatch",
				logging.Int("row", m.Row),
				logging.String("kind", m.Kind),
				logging.String("name", m.Name),
				logging.String("closest", m.Closest),
				logging.String(logging.FieldImpact, "upload of this release will fail"),
				logging.String(logging.FieldErrorHint, "rename the file or fix the spreadsheet cell"),
			)
		}
	}

	if err := os.MkdirAll(j.cfg.Paths.ResultsDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, JobCompare, "write results", j.cfg.Paths.ResultsDir, err)
	}
	name := fmt.Sprintf("file_comparison_results_%s.xlsx", j.deps.now().Format(comparisonTimeLayout))
	result.ResultsPath = filepath.Join(j.cfg.Paths.ResultsDir, name)
	if err := release.WriteComparison(result.ResultsPath, result.Mismatches); err != nil {
		return result, services.Wrap(services.ErrConfiguration, JobCompare, "write results", result.ResultsPath, err)
	}

	logger.Info("media comparison finished",
		logging.Int("rows", result.Rows),
		logging.Int("files", result.Files),
		logging.Int("mismatches", len(result.Mismatches)),
		logging.String("results", result.ResultsPath),
		logging.String(logging.FieldEventType, "job_finished"),
	)
	if err := WriteCompareReport(j.deps.report, *result); err != nil {
		logger.Debug("report not written", logging.Error(err))
	}
	return result, nil
}

// listFiles returns the names of the regular files in dir, sorted.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
