// Package eventloop provides a GLib-style main loop: a single-threaded
// iteration driver over a priority-ordered set of event sources, the same
// model as glib's GMainLoop/GMainContext, adapted to Go's concurrency
// primitives.
//
// # Architecture
//
// A [Loop] owns a registry of [Source] values, each implementing
// [SourceFuncs] (Prepare, Check, Dispatch, Finalize). [Loop.Iterate] runs one
// pass of the GLib iteration contract:
//
//  1. prepare: ask every source whether it's already ready, and how long the
//     loop may block in poll if not
//  2. poll: block in the configured [PollFunc] for the shortest requested
//     timeout, across every registered [PollFD]
//  3. check: ask every source that wasn't already ready whether the poll
//     results made it ready
//  4. dispatch: of the sources now ready, only those in the single
//     highest-priority band (numerically lowest [Source.Priority]) are
//     dispatched this iteration
//
// [Loop.Run] repeats [Loop.Iterate] until [Loop.Quit] is called. [TimeoutAdd],
// [IdleAdd] and [FDAdd] are convenience constructors for the three built-in
// source kinds; callers needing something else implement [SourceFuncs]
// directly and register it with [Loop.SourceAdd].
//
// # Platform Support
//
// I/O readiness is observed through the portable [PollFunc] abstraction,
// with a default backed by platform-native polling:
//   - Linux and Darwin: poll(2) via golang.org/x/sys/unix; a select(2)-based
//     [SelectPollFunc] is available as an opt-in replacement and is never
//     switched to automatically
//   - Windows: WSAPoll via golang.org/x/sys/windows
//
// Waking a blocked poll from another goroutine (via [Loop.SourceAdd],
// [Loop.PollAdd], or [Loop.Quit]) uses a self-pipe on Darwin, an eventfd on
// Linux, and a loopback TCP connection on Windows (WSAPoll only operates on
// sockets).
//
// # Thread Safety
//
// [Loop.SourceAdd], [Loop.SourceRemove], [Loop.PollAdd], [Loop.PollRemove],
// and [Loop.Quit] are safe to call from any goroutine, including from inside
// a Dispatch callback running on the loop's own goroutine. Registering a
// source or poll descriptor while the loop is blocked in poll wakes it
// immediately, rather than waiting for the current timeout to expire.
// A reentrant call to [Loop.Iterate] — one made from within a source's own
// Dispatch callback — still runs the full prepare/poll/check/dispatch
// sequence, but skips that source specifically unless it was registered
// with can_recurse=true via [Loop.SourceAddFull].
//
// # Usage
//
//	loop, err := eventloop.NewLoop()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loop.Close()
//
//	loop.TimeoutAdd(100*time.Millisecond, func() bool {
//	    fmt.Println("fired")
//	    loop.Quit()
//	    return false
//	})
//
//	if err := loop.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
// The package reports failures via sentinel errors ([ErrLoopAlreadyRunning],
// [ErrLoopNotRunning], [ErrLoopClosed], [ErrLoopTerminated],
// [ErrWakeupUnavailable], [ErrInvalidIterate]) and typed errors
// ([InvalidPriorityError], [UnknownPollFDError], [PollError],
// [DispatchPanicError]), all implementing the standard [error] interface and
// [errors.Unwrap] where they carry a cause. [ErrLoopTerminated] and
// [InvalidPriorityError] are declared but no function in this package
// returns them.
package eventloop
