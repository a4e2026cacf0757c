// Package logs reads the daily JSON log files written by the logging package.
//
// Tail returns the last lines of a file or the lines appended after an
// offset, optionally waiting for new output. ParseEntry and Filter turn those
// lines into records that the CLI can narrow to one job, run, or level.
package logs
