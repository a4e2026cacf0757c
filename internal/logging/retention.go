package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	logFilePrefix = "silkstaff-"
	logFileSuffix = ".log"
	logFileDate   = "20060102"
)

// LogFileName returns the daily log file name for ts.
func LogFileName(ts time.Time) string {
	return logFilePrefix + ts.Format(logFileDate) + logFileSuffix
}

// logFileDay parses the day encoded in a daily log file name.
func logFileDay(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, logFilePrefix), logFileSuffix)
	day, err := time.ParseInLocation(logFileDate, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// PruneDailyLogs removes daily log files in dir whose day is more than
// retentionDays before now. The file for now itself is never removed and
// other files are left alone. Zero disables pruning. Returns the number of
// files removed; failures are logged and skipped.
func PruneDailyLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	cutoff := today.AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := logFileDay(entry.Name())
		if !ok || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log file could not be removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions on paths.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("old log file removed",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}
