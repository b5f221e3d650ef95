package eventloop

import "sync/atomic"

// LoopState represents the current lifecycle state of a Loop.
//
// State Machine (Performance-First Design):
//
//	StateNotRunning -> StateRunning    [Run()]
//	StateRunning    -> StateQuitting   [Quit()]
//	StateQuitting   -> StateNotRunning [Run() returns]
//
// State Transition Rules:
//   - Use TryTransition() (CAS) for every transition; two goroutines racing
//     to start or stop the same Loop must agree on exactly one winner.
//   - FastState has no Store: the zero value is StateNotRunning, and every
//     later change goes through TryTransition.
type LoopState uint32

const (
	// StateNotRunning is the initial state, and the state Run returns to.
	StateNotRunning LoopState = 0
	// StateRunning indicates Run is actively driving the loop. A bare
	// Iterate call does not change the state.
	StateRunning LoopState = 1
	// StateQuitting indicates Quit was called; the current iteration will
	// finish and Run will then return.
	StateQuitting LoopState = 2
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateNotRunning:
		return "NotRunning"
	case StateRunning:
		return "Running"
	case StateQuitting:
		return "Quitting"
	default:
		return "Unknown"
	}
}

// FastState is a lock-free state machine with cache-line padding.
//
// PERFORMANCE: Uses pure atomic CAS operations with no mutex.
// Cache-line padding prevents false sharing between cores.
type FastState struct { // betteralign:ignore
	_ [64]byte      // Cache line padding (before value) //nolint:unused
	v atomic.Uint32 // State value
	_ [60]byte      // Pad to complete cache line //nolint:unused
}

// Load returns the current state atomically.
func (s *FastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *FastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// IsRunning returns true if the loop is currently running or quitting (i.e.
// some goroutine is inside Run).
func (s *FastState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateQuitting
}
