package eventloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// nextLoopID hands out small, process-wide unique ids to Loops purely for
// log correlation (LogEntry.LoopID) — it has no bearing on scheduling.
var nextLoopID atomic.Int64

// Loop is the scheduler core: a priority-ordered source registry, a poll
// record table, a pluggable multiplexer, and the prepare/poll/check/
// dispatch iteration driver that ties them together. A Loop is safe for
// concurrent use: SourceAdd, PollAdd, TimeoutAdd, IdleAdd, SourceRemove,
// and Quit may all be called from any goroutine, including from within a
// source's own Dispatch.
//
// The global lock (mu) is held for the whole of an iteration except around
// the two places genuine blocking happens: the poll syscall itself, and a
// source's Dispatch callback. Everything else — Prepare, Check, registry
// bookkeeping — runs under the lock, so callers never observe a partially
// updated registry.
type Loop struct {
	mu sync.Mutex

	id int64

	registry *sourceRegistry
	polls    pollRecordTable
	wakeup   wakeupChannel
	pollFunc PollFunc
	logger   Logger
	metrics  *Metrics

	state FastState

	closed bool
}

// NewLoop constructs a Loop. It fails only if the platform wake-up channel
// could not be created (ErrWakeupUnavailable): without it a blocked poll
// could never be interrupted, so there is no safe degraded mode.
func NewLoop(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	wc, err := newWakeupChannel()
	if err != nil {
		return nil, err
	}

	l := &Loop{
		id:       nextLoopID.Add(1),
		registry: newSourceRegistry(),
		wakeup:   wc,
		pollFunc: cfg.pollFunc,
		logger:   cfg.logger,
	}
	if l.pollFunc == nil {
		l.pollFunc = defaultPollFunc
	}
	if l.logger == nil {
		// Fall back to whatever global logger the embedder installed via
		// SetStructuredLogger, so a process that configures logging once,
		// globally, doesn't also have to pass WithLogger to every Loop it
		// constructs.
		if g := getGlobalLogger(); g != (NoOpLogger{}) {
			l.logger = g
		} else {
			l.logger = NoOpLogger{}
		}
	}
	if cfg.metricsEnabled {
		l.metrics = NewMetrics()
	}

	l.polls.add(wc.pollFD(), PriorityDefault)
	return l, nil
}

// Run drives the loop until Quit is called. It returns ErrLoopAlreadyRunning
// if another goroutine is already running this Loop.
func (l *Loop) Run() error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLoopClosed
	}
	if !l.state.TryTransition(StateNotRunning, StateRunning) {
		return ErrLoopAlreadyRunning
	}
	for l.state.Load() == StateRunning {
		l.Iterate(true, true)
	}
	l.state.TryTransition(StateQuitting, StateNotRunning)
	return nil
}

// Quit asks a running loop to stop after its current iteration finishes,
// and wakes it up immediately if it is blocked in poll. Calling Quit on a
// Loop that is not running returns ErrLoopNotRunning.
func (l *Loop) Quit() error {
	if !l.state.TryTransition(StateRunning, StateQuitting) {
		return ErrLoopNotRunning
	}
	return l.wakeup.wake()
}

// Iterate runs a single pass of the prepare/poll/check/dispatch driver and
// reports whether any source was ready (dispatch=false) or dispatched
// (dispatch=true). If block is true and no source is immediately ready,
// Iterate blocks in poll for up to the shortest timeout requested by any
// source's Prepare (or indefinitely if none requested one); if block is
// false, Iterate always performs a non-blocking poll. If dispatch is false,
// Iterate only probes for readiness (prepare/poll/check) and returns as
// soon as it knows the answer, without running any callback; block=true
// combined with dispatch=false is invalid and panics, since a probe that
// both blocks indefinitely and never dispatches anything could never make
// forward progress for its caller.
//
// A reentrant call — one made from inside a source's own Dispatch, on the
// same goroutine — runs the same four phases, but any source whose
// Dispatch is already on the call stack is skipped by prepare/check unless
// that source was registered with can_recurse=true (see SourceAddFull).
// Iterate may be called directly for applications that want to embed the
// loop inside their own scheduling (e.g. alongside a GUI toolkit's own
// loop) instead of calling Run.
func (l *Loop) Iterate(block, dispatch bool) bool {
	if block && !dispatch {
		panic(ErrInvalidIterate)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.iterateLocked(block, dispatch)
}

// Pending reports whether any source is currently ready to dispatch,
// without running any callback. It is equivalent to Iterate(false, false).
func (l *Loop) Pending() bool {
	return l.Iterate(false, false)
}

type sourcePass struct {
	src      *Source
	ready    bool
	eligible bool // false if skipped this pass for in_call && !canRecurse
}

func (l *Loop) iterateLocked(block, dispatch bool) bool {
	if l.closed {
		return false
	}

	if l.metrics != nil {
		l.metrics.iterationStart()
	}

	sources := l.registry.snapshotOrdered()
	passes := make([]sourcePass, len(sources))

	// Phase 1: prepare. A source currently in_call (its own Dispatch is
	// already on the call stack, e.g. this is a reentrant call made from
	// within it) is skipped unless it opted into can_recurse.
	minTimeoutMS := -1
	anyReady := false
	minReadyPriority := 0
	for i, s := range sources {
		if s.isInCall() && !s.canRecurse {
			continue
		}
		passes[i].eligible = true

		ready, timeoutMS := s.funcs.Prepare(s)
		passes[i].ready = ready
		if ready {
			if !anyReady || s.priority < minReadyPriority {
				minReadyPriority = s.priority
			}
			anyReady = true
		}
		if timeoutMS >= 0 && (minTimeoutMS < 0 || timeoutMS < minTimeoutMS) {
			minTimeoutMS = timeoutMS
		}
	}

	if !dispatch && anyReady {
		if l.metrics != nil {
			l.metrics.iterationEnd(false)
		}
		return true
	}

	timeout := time.Duration(-1)
	switch {
	case anyReady || !block:
		timeout = 0
	case minTimeoutMS >= 0:
		timeout = time.Duration(minTimeoutMS) * time.Millisecond
	}

	// Phase 2: poll. The lock is released for exactly this call: it is
	// the one place the loop genuinely blocks, and releasing the lock
	// here is what lets SourceAdd/PollAdd/Quit from another goroutine
	// observe the registry promptly (after waking the poll via the
	// wake-up channel). Once some source is already ready, only poll
	// records at or above that priority band need to be consulted — a
	// lower-priority fd becoming ready this tick wouldn't be dispatched
	// anyway. The loop's own wake-up descriptor can be excluded by this
	// same filtering, but that's harmless: anyReady also forced timeout
	// to 0 above, so this call never actually blocks waiting on it.
	pfds := l.pollSnapshotFor(anyReady, minReadyPriority)
	l.mu.Unlock()
	waitStart := clockNow()
	_, pollErr := l.pollFunc(pfds, timeout)
	if l.metrics != nil {
		l.metrics.recordPollWait(clockNow().Sub(waitStart))
	}
	l.mu.Lock()

	if pollErr != nil {
		LogPollError(l.logger, l.id, pollErr, true)
	}
	if w := l.wakeup.pollFD(); w.Revents != 0 {
		if err := l.wakeup.drain(); err != nil {
			l.logger.Log(LogEntry{Level: LevelWarn, Message: "failed to drain wake-up channel", Err: err})
		}
	}

	// Phase 3: check.
	haveReady := anyReady
	for i := range passes {
		p := &passes[i]
		if !p.eligible {
			continue
		}
		if !p.ready {
			p.ready = p.src.funcs.Check(p.src)
		}
		if p.ready && (!haveReady || p.src.priority < minReadyPriority) {
			minReadyPriority = p.src.priority
			haveReady = true
		}
	}

	if !haveReady {
		if l.metrics != nil {
			l.metrics.iterationEnd(false)
		}
		return false
	}

	if !dispatch {
		if l.metrics != nil {
			l.metrics.iterationEnd(false)
		}
		return true
	}

	// Phase 4: dispatch, priority-gated. Only sources in the single
	// highest-priority band that has a ready source fire this iteration;
	// everything in a lower-priority band waits for a future iteration,
	// even if it was also ready this pass. Every source entering this band
	// is ref'd now, while still under the lock, so it survives for the
	// whole pass even if an earlier dispatch in the same band removes it
	// (directly, or via a concurrent SourceRemove racing the unlocked
	// window inside dispatchSource).
	for i := range passes {
		p := &passes[i]
		if p.eligible && p.ready && p.src.priority == minReadyPriority {
			l.registry.ref(p.src)
		}
	}

	dispatched := false
	for i := range passes {
		p := &passes[i]
		if !p.eligible || !p.ready || p.src.priority != minReadyPriority {
			continue
		}
		if l.dispatchSource(p.src) {
			dispatched = true
		}
	}

	if l.metrics != nil {
		l.metrics.iterationEnd(dispatched)
	}
	return dispatched
}

// pollSnapshotFor returns the poll records the poll phase should consult:
// every record when nothing is known ready yet, or only records at or above
// the highest-known-ready priority band once one is. A lower-priority fd
// can't change which source dispatches first, so there is no reason to make
// the poll syscall wait on it.
func (l *Loop) pollSnapshotFor(anyReady bool, minReadyPriority int) []*PollFD {
	all := l.polls.snapshot()
	if !anyReady {
		return all
	}
	out := make([]*PollFD, 0, len(all))
	for _, fd := range all {
		if fd.priority <= minReadyPriority {
			out = append(out, fd)
		}
	}
	return out
}

// dispatchSource runs a single source's Dispatch callback with the global
// lock released, and applies the result: the source is kept registered if
// Dispatch returns true, and invalidated (finalized on last ref) if it
// returns false or panics (a panic is logged, never allowed to propagate
// out of Iterate). The caller must already hold a
// reference on s taken while collecting the dispatch band (see
// iterateLocked); dispatchSource always drops exactly that one reference
// before returning, whether or not it actually ran Dispatch.
//
// A source already invalidated by the time its turn comes — removed by an
// earlier dispatch in the same band, or by a concurrent SourceRemove that
// raced the unlocked window below — is not dispatched a second time.
// invalidate dropped the registry's own reference when that happened, but
// the reference taken for this pass kept the refcount above zero, so
// Finalize/destroy has not run yet; the unref here is what brings it to
// zero and runs it, exactly once.
func (l *Loop) dispatchSource(s *Source) (ran bool) {
	if !s.isValid() {
		l.registry.unref(s)
		return false
	}

	s.flags |= sourceFlagInCall

	dispatchStart := clockNow()
	l.mu.Unlock()
	keep := l.runDispatch(s)
	l.mu.Lock()

	if l.metrics != nil {
		l.metrics.recordDispatch(clockNow().Sub(dispatchStart))
	}

	s.flags &^= sourceFlagInCall
	s.lastRun = clockNow()

	if !keep {
		l.registry.invalidate(s)
	}
	l.registry.unref(s)
	return true
}

func (l *Loop) runDispatch(s *Source) (keep bool) {
	defer func() {
		if r := recover(); r != nil {
			LogDispatchPanicked(l.logger, l.id, s.id, &DispatchPanicError{SourceID: s.id, Value: r})
			keep = false
		}
	}()
	return s.funcs.Dispatch(s)
}

// SourceAdd registers a new source at the given priority and returns its
// id, to be used later with SourceRemove. funcs must not be nil. It is
// equivalent to SourceAddFull(priority, false, funcs, nil, nil). If the loop
// is currently blocked in poll, it is woken immediately so the new source's
// Prepare runs on the next iteration instead of waiting for the current
// poll timeout to elapse.
func (l *Loop) SourceAdd(priority int, funcs SourceFuncs) uint64 {
	return l.SourceAddFull(priority, false, funcs, nil, nil)
}

// SourceAddFull is the full form of source registration: canRecurse governs
// whether the source may be reselected by a reentrant Iterate made from
// inside its own Dispatch; userData is an opaque value later retrievable
// from Source.UserData and passed to destroy; destroy, if non-nil, runs
// exactly once, after Finalize, when the source's last reference is
// dropped.
func (l *Loop) SourceAddFull(priority int, canRecurse bool, funcs SourceFuncs, userData any, destroy func(any)) uint64 {
	s := &Source{priority: priority, canRecurse: canRecurse, funcs: funcs, userData: userData, destroy: destroy, loop: l}

	l.mu.Lock()
	id := l.registry.add(s)
	l.mu.Unlock()

	if err := l.wakeup.wake(); err != nil {
		l.logger.Log(LogEntry{Level: LevelWarn, Message: "failed to wake loop after source add", Err: err})
	}

	LogSourceAdded(l.logger, l.id, id, priority)
	return id
}

// SourceRemove invalidates the source with the given id. It is a no-op
// (returns false, no error) if the id is unknown or was already removed,
// since a caller may legitimately race a source's own self-removal (e.g. a
// timeout's Dispatch returning false the same moment another goroutine
// calls SourceRemove on it). If the source is currently inside its own
// Dispatch call, Finalize runs once that call returns.
func (l *Loop) SourceRemove(id uint64) bool {
	l.mu.Lock()
	removed := l.registry.removeByID(id)
	l.mu.Unlock()
	if removed {
		LogSourceRemoved(l.logger, l.id, id)
	}
	return removed
}

// SourceRemoveByUserData invalidates every currently valid source whose
// user_data equals userData (see SourceAddFull), and reports whether any
// source matched. userData must be a comparable value (e.g. a pointer) for
// a match to ever be found.
func (l *Loop) SourceRemoveByUserData(userData any) bool {
	l.mu.Lock()
	removed := l.registry.removeByUserData(userData)
	l.mu.Unlock()
	return removed
}

// SourceRemoveBySourceData invalidates every currently valid source whose
// behavior value (its SourceFuncs implementation) equals sourceData, and
// reports whether any source matched.
func (l *Loop) SourceRemoveBySourceData(sourceData any) bool {
	l.mu.Lock()
	removed := l.registry.removeBySourceData(sourceData)
	l.mu.Unlock()
	return removed
}

// PollAdd registers fd in the loop's poll record table at the given
// priority, for the duration it is later removed with PollRemove. Multiple
// PollFDs, including ones wrapping the same underlying descriptor, may be
// registered independently. Like SourceAdd, it wakes a blocked poll
// immediately so fd is included in the very next poll call.
func (l *Loop) PollAdd(fd *PollFD, priority int) {
	l.mu.Lock()
	l.polls.add(fd, priority)
	l.mu.Unlock()

	if err := l.wakeup.wake(); err != nil {
		l.logger.Log(LogEntry{Level: LevelWarn, Message: "failed to wake loop after poll add", Err: err})
	}
}

// PollRemove removes a previously registered PollFD from the poll record
// table, matched by pointer identity.
func (l *Loop) PollRemove(fd *PollFD) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	ok := l.polls.remove(fd)
	l.mu.Unlock()
	if !ok {
		return &UnknownPollFDError{FD: fd}
	}
	return nil
}

// SetPollFunc replaces the loop's multiplexer. It takes effect starting
// with the next iteration's poll phase.
func (l *Loop) SetPollFunc(fn PollFunc) {
	l.mu.Lock()
	l.pollFunc = fn
	l.mu.Unlock()
}

// Metrics returns the loop's metrics collector, or nil if WithMetrics(true)
// was not passed to NewLoop.
func (l *Loop) Metrics() *Metrics {
	return l.metrics
}

// Close releases the loop's wake-up channel and invalidates every
// remaining source, calling each one's Finalize. Close must not be called
// while Run/Iterate is in progress on another goroutine.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	sources := l.registry.snapshotOrdered()
	l.mu.Unlock()

	for _, s := range sources {
		l.registry.invalidate(s)
	}
	return l.wakeup.close()
}
