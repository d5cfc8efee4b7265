// Package sched provides the single logical thread every vtree runtime
// runs on.
//
// All tree mutation, rendering and component state changes happen inside
// tasks run by a Scheduler. The only deferred work is coalesced async
// rendering and mount deferral, both expressed as After calls. Loop is the
// production scheduler (one goroutine); Manual gives tests deterministic
// control over time.
package sched

import "time"

// Scheduler runs tasks one at a time.
type Scheduler interface {
	// Post queues fn to run after the current task.
	Post(fn func())

	// After queues fn to run once d has elapsed. The returned function
	// cancels it if it has not started.
	After(d time.Duration, fn func()) (cancel func())
}
