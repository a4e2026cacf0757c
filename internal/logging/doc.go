// Package logging assembles the slog loggers shared by the silkstaff CLI.
//
// Console output is either a compact human format or JSON; a JSON copy of every
// record also lands in a daily file under the log directory. Context helpers
// tag lines with the batch job, step index, and run id so a resumed run can be
// traced back to the step that failed.
package logging
