// Package batch runs an indexed sequence of steps one at a time with a fixed
// pause between them.
//
// The Runner knows nothing about persistence: callers that need resume
// support wrap their step function so each success is recorded before the
// next step begins (see internal/jobs).
package batch
