// Package main hosts the silkstaff CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the table API client,
// and the upload client into the batch jobs, and exposes small diagnostics
// around them: checkpoint inspection, table queries, resolved paths, and the
// upload resume store. Keep the commands thin; behaviour belongs in the
// internal packages.
package main
