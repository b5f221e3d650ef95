// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventloop

// loopOptions holds configuration resolved from a caller's LoopOption list
// before a Loop is constructed.
type loopOptions struct {
	pollFunc       PollFunc
	logger         Logger
	metricsEnabled bool
}

// LoopOption configures a Loop at construction time.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption by wrapping a closure, the same
// pattern used throughout this package for optional configuration.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithPollFunc overrides the default poll-style multiplexer. fn is called
// once per iteration of the loop's poll phase with the registered PollFDs
// that phase consults: all of them, or, once some source is already ready,
// only those at or above that source's priority band. The loop's own
// wake-up descriptor is registered in the same table at PriorityDefault and
// need not be supplied by the caller. See SetPollFunc for the equivalent
// runtime setter.
func WithPollFunc(fn PollFunc) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.pollFunc = fn
		return nil
	}}
}

// WithLogger attaches a structured Logger to the Loop. If unset, the Loop
// uses the package-level logger installed with SetStructuredLogger, or a
// NoOpLogger if none was installed.
func WithLogger(logger Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables runtime metrics collection (iteration counts,
// dispatch latency percentiles, poll-wait time) on the Loop. Metrics are
// available afterward via Loop.Metrics.
func WithMetrics(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveLoopOptions applies every LoopOption to a fresh loopOptions value.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
