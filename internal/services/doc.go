// Package services defines shared utilities consumed by the batch jobs and the
// remote integrations (table API, upload endpoint, notifications).
//
// Key responsibilities:
//   - Context helpers that stamp job names, step indexes, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (configuration vs validation vs transient) without string matching.
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across jobs.
package services
