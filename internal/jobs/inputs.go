package jobs

import (
	"log/slog"
	"os"
	"strings"

	"silkstaff/internal/config"
	"silkstaff/internal/logging"
	"silkstaff/internal/services"
)

// resolveInputs picks the spreadsheet and media directory from flags, then
// config, then the paths remembered from the last run. Both must exist; the
// resolved pair is remembered for the next run.
func resolveInputs(cfg *config.Config, logger *slog.Logger, job, excel, media string) (string, string, error) {
	excelPath := firstNonEmpty(excel, cfg.ReleaseUpload.ExcelPath)
	mediaDir := firstNonEmpty(media, cfg.ReleaseUpload.MediaDir)
	if excelPath == "" || mediaDir == "" {
		saved, ok, err := config.ReadSavedPaths(cfg.Paths.DataDir)
		if err != nil {
			return "", "", err
		}
		if ok {
			excelPath = firstNonEmpty(excelPath, saved.ExcelPath)
			mediaDir = firstNonEmpty(mediaDir, saved.DirectoryPath)
		}
	}
	if excelPath == "" {
		return "", "", services.Wrap(services.ErrConfiguration, job, "resolve paths", "no spreadsheet given; pass --excel or set release_upload.excel_path", nil)
	}
	if mediaDir == "" {
		return "", "", services.Wrap(services.ErrConfiguration, job, "resolve paths", "no media directory given; pass --media-dir or set release_upload.media_dir", nil)
	}

	var err error
	if excelPath, err = config.ExpandPath(excelPath); err != nil {
		return "", "", err
	}
	if mediaDir, err = config.ExpandPath(mediaDir); err != nil {
		return "", "", err
	}
	if info, err := os.Stat(excelPath); err != nil || info.IsDir() {
		return "", "", services.Wrap(services.ErrNotFound, job, "resolve paths", "spreadsheet not found: "+excelPath, err)
	}
	if info, err := os.Stat(mediaDir); err != nil || !info.IsDir() {
		return "", "", services.Wrap(services.ErrNotFound, job, "resolve paths", "media directory not found: "+mediaDir, err)
	}

	if err := config.WriteSavedPaths(cfg.Paths.DataDir, config.SavedPaths{ExcelPath: excelPath, DirectoryPath: mediaDir}); err != nil {
		logging.WarnWithContext(logger, "could not remember input paths", "saved_paths_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next run needs the paths again"),
		)
	}
	return excelPath, mediaDir, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
