// Package future adapts the native start/poll/destroy completion protocol
// to a single pollable value.
//
// State machine:
//
//	NotStarted --[first Poll: start]--> InProgress --[Poll: ready]--> Done
//	NotStarted --[Close]--> Done
//	InProgress --[Close: destroy]--> Done
//
// The native completion handle is destroyed exactly once: when the result is
// taken, or when the future is closed while in progress. Poll never blocks;
// a pending native operation reports "not ready". Polling a Done future is a
// programming error and panics with a fatal error.
//
// Await is the external poll-sleep loop for callers that want a blocking
// result. Cancelling its context closes the future.
package future
