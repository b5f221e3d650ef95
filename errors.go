package eventloop

import (
	"errors"
	"fmt"
)

// Sentinel errors for loop lifecycle misuse. These are returned, never
// panicked, because they describe conditions a well-behaved caller can
// reasonably check for (a loop already running, a quit without a run).
var (
	// ErrLoopAlreadyRunning is returned by Run when the Loop is already
	// being driven by another goroutine.
	ErrLoopAlreadyRunning = errors.New("mainloop: loop is already running")

	// ErrLoopNotRunning is returned by Quit when called on a Loop that is
	// not currently inside Run (a bare Iterate call does not count as
	// running). Quit is otherwise idempotent.
	ErrLoopNotRunning = errors.New("mainloop: loop is not running")

	// ErrLoopClosed is returned by Run and PollRemove when called on a Loop
	// after Close has completed. Close itself is idempotent and does not
	// return it.
	ErrLoopClosed = errors.New("mainloop: loop is closed")

	// ErrWakeupUnavailable is a fatal error returned by NewLoop when the
	// platform's wake-up channel (eventfd, self-pipe, or loopback TCP
	// connection)
	// could not be created. Without it, a blocked poll could never be
	// interrupted by a concurrent SourceAdd/Quit, so loop construction
	// fails outright rather than degrading silently.
	ErrWakeupUnavailable = errors.New("mainloop: failed to create wake-up channel")

	// ErrLoopTerminated is declared for operations on a Loop after Close
	// has completed. No function in this package returns it: a second
	// Close returns nil, and Run and PollRemove return ErrLoopClosed.
	ErrLoopTerminated = errors.New("mainloop: loop is terminated")

	// ErrInvalidIterate is the value Iterate panics with when called as
	// Iterate(true, false): a blocking readiness probe that never
	// dispatches anything could block forever with no way to make
	// progress, so the combination is rejected at the API boundary rather
	// than accepted and silently mishandled.
	ErrInvalidIterate = errors.New("mainloop: Iterate(block=true, dispatch=false) is invalid")
)

// InvalidPriorityError describes an unusable priority value. No function in
// this package returns it: SourceAdd and the other constructors accept any
// int as a priority.
type InvalidPriorityError struct {
	Priority int
}

func (e *InvalidPriorityError) Error() string {
	return fmt.Sprintf("mainloop: invalid priority %d", e.Priority)
}

// UnknownPollFDError is returned by PollRemove when the given *PollFD was
// never registered, or was already removed.
type UnknownPollFDError struct {
	FD *PollFD
}

func (e *UnknownPollFDError) Error() string {
	return fmt.Sprintf("mainloop: poll fd %p is not registered", e.FD)
}

// DispatchPanicError wraps a value recovered from a panicking source
// Dispatch callback. The iteration driver converts such a panic into a
// destroy of the offending source rather than letting it escape Iterate:
// one misbehaving source should not bring down the whole loop.
type DispatchPanicError struct {
	SourceID uint64
	Value    any
}

func (e *DispatchPanicError) Error() string {
	return fmt.Sprintf("mainloop: source %d panicked in Dispatch: %v", e.SourceID, e.Value)
}

// Unwrap returns the underlying error if the panic value is an error,
// enabling errors.Is/errors.As to see through a recovered panic.
func (e *DispatchPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// PollError wraps a failure from the underlying poll syscall. The Unix poll
// backends retry EINTR internally, so it never surfaces as a PollError; any
// other PollError is logged by Iterate, which then carries on with its check
// and dispatch phases as if the poll had reported nothing new.
type PollError struct {
	Cause error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("mainloop: poll failed: %v", e.Cause)
}

func (e *PollError) Unwrap() error {
	return e.Cause
}
