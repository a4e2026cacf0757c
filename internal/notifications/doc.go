// Package notifications delivers batch job events via ntfy.
//
// The ntfy topic comes from config.toml or NTFY_TOPIC; when it is empty the
// service degrades to a no-op. Jobs publish enumerated events with a small
// payload map so messages stay consistent across the upload and shipment
// commands.
package notifications
