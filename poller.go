// Package eventloop provides the pluggable poll-style multiplexer.
//
// # Multiplexing
//
// The loop blocks for readiness on the registered PollFDs through a single
// PollFunc call per iteration; once some source is already ready, only the
// PollFDs at or above its priority band are passed. A default implementation is
// provided per platform:
//
//   - poller_unix.go: a direct unix.Poll-backed implementation (Linux,
//     Darwin).
//   - poller_select.go: a select-style fallback restricted to read, write,
//     and exception conditions, for platforms or environments where poll
//     is unavailable.
//   - poller_windows.go: a WSAPoll-backed implementation.
//
// Callers may install their own PollFunc with WithPollFunc or SetPollFunc,
// for example to route polling through an external event-notification
// mechanism.
package eventloop

import "time"

// PollFunc is the pluggable multiplexer contract. Implementations block for
// at most timeout (a negative value means block indefinitely, zero means
// return immediately) waiting for any fd in fds to become ready, writing the
// observed conditions back into each PollFD's Revents field, and returning
// the number of fds with at least one bit set in Revents.
//
// A PollFunc must be safe to call from the single goroutine driving the
// loop's iteration; it is never called concurrently with itself.
type PollFunc func(fds []*PollFD, timeout time.Duration) (n int, err error)
