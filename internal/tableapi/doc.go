// Package tableapi is a client for the remote table storage service that
// holds releases and lookup tables.
//
// Every request targets {api}/{space}/database/{table}/... and carries the
// configured Authorization header. Calls are paced by a token bucket so long
// batches stay under the service rate limit. Non-2xx responses come back as
// *StatusError, which unwraps to the services error marker for the status.
package tableapi
