// Package broadcast implements the publish/subscribe primitives behind the
// client's status and data streams.
//
// Every subscriber owns an unbounded queue drained by its own goroutine:
//   - Publish never blocks on a slow handler
//   - every subscriber observes values in publish order
//   - handlers may call back into the publisher without deadlocking
package broadcast
