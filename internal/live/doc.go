// Package live turns read queries into live result sequences.
//
// A subscription declares the tables its query depends on. It emits one
// Result computed from current state, then a fresh Result each time a commit
// touches any of those tables. Rapid commits coalesce into a single
// re-evaluation of the latest state: freshness is at-least-once, not
// one-emission-per-write.
//
// Each subscription runs on its own goroutine and delivers on an unbuffered
// channel. Cancel (or cancelling the parent context) stops the goroutine,
// closes the channel, and unregisters from the store without touching any
// in-flight write.
//
// Subscriptions are cold: every Subscribe call starts with a fresh initial
// evaluation.
package live
