package eventloop

// idleSource implements the Idle source kind: it claims readiness
// unconditionally in both Prepare and Check, with a timeout of zero, so
// that it never causes poll to block, but it only actually fires when no
// ready source with a higher (numerically lower) priority exists — the
// iteration driver's priority gating handles that, not the source itself.
// An idle source registered at PriorityDefaultIdle is therefore exactly the
// "run when otherwise idle" primitive its name promises.
type idleSource struct {
	fn func() bool
}

func (s *idleSource) Prepare(src *Source) (ready bool, timeoutMS int) {
	return true, 0
}

func (s *idleSource) Check(src *Source) bool {
	return true
}

func (s *idleSource) Dispatch(src *Source) (keep bool) {
	return s.fn()
}

func (s *idleSource) Finalize(src *Source) {}

// IdleAdd registers fn to run whenever the loop has nothing higher-priority
// ready, at PriorityDefaultIdle. fn is called repeatedly for as long as it
// returns true; returning false removes the source.
func (l *Loop) IdleAdd(fn func() bool) uint64 {
	return l.IdleAddPriority(PriorityDefaultIdle, fn)
}

// IdleAddPriority is IdleAdd with an explicit priority band.
func (l *Loop) IdleAddPriority(priority int, fn func() bool) uint64 {
	return l.IdleAddFull(priority, false, fn, nil, nil)
}

// IdleAddFull is the full form of idle registration, exposing can_recurse
// and a destroy notifier alongside priority. See Loop.SourceAddFull for
// what canRecurse, userData and destroy mean.
func (l *Loop) IdleAddFull(priority int, canRecurse bool, fn func() bool, userData any, destroy func(any)) uint64 {
	return l.SourceAddFull(priority, canRecurse, &idleSource{fn: fn}, userData, destroy)
}
