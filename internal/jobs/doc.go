// Package jobs holds the batch jobs silkstaff runs on top of the sequential
// runner: the release upload (spreadsheet to tus uploads to table rows) and
// the shipment hand-off (new releases to moderation).
//
// Both jobs share Resumable, which ties a batch.Runner to a checkpoint.Store:
// progress is recorded after every successful step and cleared once the whole
// batch has run, so an interrupted job continues at the first step that did
// not complete.
package jobs
