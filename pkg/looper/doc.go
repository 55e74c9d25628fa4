// Package looper provides a cooperative scheduler for periodic handlers.
//
// A Scheduler owns a fixed set of slots, each running a Handler which
// returns the delay until its next invocation. All handlers run to
// completion on the goroutine calling Pass, and a handler may enable or
// disable any slot, including its own, while it is running.
package looper
