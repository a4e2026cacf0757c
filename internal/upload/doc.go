// Package upload sends media files to the storage endpoint over the tus 1.0
// resumable upload protocol.
//
// Only the client half of tus is implemented: creation, offset probing, and
// chunked PATCH transfers. Upload URLs are remembered in a small SQLite store
// keyed by a file fingerprint, so a transfer cut short by a crash or a
// network failure continues from the server offset on the next attempt.
package upload
