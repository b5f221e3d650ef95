package eventloop

// fdSource is a convenience source built entirely on top of SourceAdd and
// PollAdd: it watches a single PollFD and calls back with whatever
// conditions were observed. It exists because PollAdd on its own only
// updates a PollFD's Revents field; most callers want a source that also
// gets a Dispatch callback when that happens, the same way GLib's
// g_io_add_watch sits on top of its lower-level poll-record API.
type fdSource struct {
	fd *PollFD
	cb func(cond IOCondition) (keep bool)
}

func (s *fdSource) Prepare(src *Source) (ready bool, timeoutMS int) {
	return false, -1
}

func (s *fdSource) Check(src *Source) bool {
	return s.fd.Revents&(s.fd.Events|IOErr|IOHup) != 0
}

func (s *fdSource) Dispatch(src *Source) (keep bool) {
	cond := s.fd.Revents
	s.fd.Revents = 0
	return s.cb(cond)
}

func (s *fdSource) Finalize(src *Source) {
	// Finalize runs with the loop's lock already held when the source is
	// destroyed by Iterate or a SourceRemove* call, so the record is
	// unlinked directly; PollRemove would take that lock a second time.
	// During Close the lock is not held and the loop is already closed, so
	// the record is left in place.
	if !src.loop.closed {
		src.loop.polls.remove(s.fd)
	}
}

// FDAdd registers a callback to run whenever fd becomes ready for any of
// events, at the given priority. The callback's return value indicates
// whether the watch should remain registered, exactly like TimeoutAdd and
// IdleAdd's callbacks.
func (l *Loop) FDAdd(fd int, events IOCondition, priority int, cb func(cond IOCondition) bool) uint64 {
	return l.FDAddFull(fd, events, priority, false, cb, nil, nil)
}

// FDAddFull is the full form of fd-watch registration, exposing can_recurse
// and a destroy notifier alongside priority. See Loop.SourceAddFull for
// what canRecurse, userData and destroy mean.
func (l *Loop) FDAddFull(fd int, events IOCondition, priority int, canRecurse bool, cb func(cond IOCondition) bool, userData any, destroy func(any)) uint64 {
	pfd := &PollFD{FD: fd, Events: events}
	fs := &fdSource{fd: pfd, cb: cb}

	id := l.SourceAddFull(priority, canRecurse, fs, userData, destroy)
	if src := l.registry.get(id); src != nil {
		src.AddPoll(pfd)
	}
	return id
}
