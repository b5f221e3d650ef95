package eventloop

// wakeupChannel lets any goroutine interrupt a Loop that is blocked inside
// its poll phase, so that SourceAdd, PollAdd, TimeoutAdd, IdleAdd, and Quit
// all take effect promptly instead of waiting out whatever timeout the loop
// last computed. Its read side is folded into the loop's own poll record
// table like any other watched descriptor: a blocked poll call returns as
// soon as someone calls wake, the loop drains the channel, and the next
// prepare pass picks up whatever changed.
//
// Platform-specific constructors (wakeup_unix.go's fdWakeupChannel on Linux
// and Darwin, wakeup_windows.go's fdWakeupChannel on Windows) are returned
// by newWakeupChannel.
type wakeupChannel interface {
	// pollFD returns the PollFD to register in the loop's poll record
	// table. The returned pointer's identity is stable for the channel's
	// lifetime.
	pollFD() *PollFD

	// wake interrupts a blocked poll call. Safe to call from any
	// goroutine, any number of times; multiple wakes before the loop
	// drains are coalesced into a single wake-up.
	wake() error

	// drain consumes any pending wake-up notification. Called once per
	// iteration after poll returns, before Check runs.
	drain() error

	// close releases the channel's resources. Called once, from Close.
	close() error
}
