package eventloop

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestScenario_S1_PureIdleLoop: an idle callback appends "x" to a buffer
// and returns false on the 3rd call; Run terminates with "xxx", and the
// destroy notifier ran exactly once.
func TestScenario_S1_PureIdleLoop(t *testing.T) {
	l := newTestLoop(t)

	var buf string
	var destroyed int

	l.IdleAddFull(PriorityDefaultIdle, false, func() bool {
		buf += "x"
		if buf == "xxx" {
			l.Quit()
			return false
		}
		return true
	}, nil, func(any) { destroyed++ })

	require.NoError(t, l.Run())
	require.Equal(t, "xxx", buf)
	require.Equal(t, 1, destroyed)
}

// TestScenario_S2_TimerIdlePriority: an idle (priority 100) bumps a counter;
// a timeout at priority 0 calls Quit after 50ms. The idle runs at least
// once, and the loop exits within roughly 60ms.
func TestScenario_S2_TimerIdlePriority(t *testing.T) {
	l := newTestLoop(t)

	var counter int
	var mu sync.Mutex

	l.IdleAddPriority(PriorityHighIdle, func() bool {
		mu.Lock()
		counter++
		mu.Unlock()
		return true
	})

	l.TimeoutAddPriority(PriorityDefault, 50*time.Millisecond, func() bool {
		l.Quit()
		return false
	})

	start := time.Now()
	require.NoError(t, l.Run())
	elapsed := time.Since(start)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, counter, 1)
	require.Less(t, elapsed, 500*time.Millisecond)
}

// TestScenario_S3_FDReadiness: a pipe's read end is registered at priority
// 0; writing one byte from another goroutine makes the source dispatch
// exactly once, reading the byte and persisting; the following iteration
// finds no data and does not dispatch.
func TestScenario_S3_FDReadiness(t *testing.T) {
	r, w := newTestPipe(t)

	l := newTestLoop(t)

	var dispatches int
	buf := make([]byte, 1)

	l.FDAdd(r, IOIn, PriorityDefault, func(cond IOCondition) bool {
		dispatches++
		_, _ = readFD(r, buf)
		return true
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = writeFD(w, []byte{'a'})
	}()

	// First iteration: block until the byte arrives and is dispatched.
	require.True(t, l.Iterate(true, true))
	require.Equal(t, 1, dispatches)

	// Second iteration: no data left, non-blocking tick finds nothing.
	require.False(t, l.Iterate(false, true))
	require.Equal(t, 1, dispatches)
}

func newTestPipe(t *testing.T) (r, w int) {
	t.Helper()
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pr.Close()
		_ = pw.Close()
	})
	return int(pr.Fd()), int(pw.Fd())
}

// TestScenario_S4_ReentrantIterate: a timeout callback calls
// Iterate(false,true) recursively; a queued idle must dispatch from the
// inner call without the outer timeout being re-entered.
func TestScenario_S4_ReentrantIterate(t *testing.T) {
	l := newTestLoop(t)

	var outerFires, innerIdleFires int

	l.TimeoutAddPriority(PriorityDefault, 0, func() bool {
		outerFires++
		l.Iterate(false, true)
		return false
	})
	l.IdleAddPriority(PriorityHighIdle, func() bool {
		innerIdleFires++
		return false
	})

	require.True(t, l.Iterate(true, true))

	require.Equal(t, 1, outerFires)
	require.Equal(t, 1, innerIdleFires)
}

// TestScenario_S5_ConcurrentAddWakeup: Iterate(true,true) with no sources
// blocks until a second goroutine adds an idle source; the measured
// blocked time is close to the sleep, not indefinite.
func TestScenario_S5_ConcurrentAddWakeup(t *testing.T) {
	l := newTestLoop(t)

	start := time.Now()
	done := make(chan struct{})
	go func() {
		l.Iterate(true, true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	l.IdleAdd(func() bool {
		return false
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Iterate blocked indefinitely")
	}
	require.Less(t, time.Since(start), time.Second)
}

// TestScenario_S6_RepeatVsOneshot: timeout_add(10ms) with a callback
// returning true 5 times then false; the source is destroyed after exactly
// 5 dispatches, and the aggregate elapsed time is at least 50ms.
func TestScenario_S6_RepeatVsOneshot(t *testing.T) {
	l := newTestLoop(t)

	var fires int
	var destroyed int
	start := time.Now()

	l.TimeoutAddFull(PriorityDefault, false, 10*time.Millisecond, func() bool {
		fires++
		return fires < 5
	}, nil, func(any) { destroyed++ })

	for i := 0; i < 200 && destroyed == 0; i++ {
		l.Iterate(true, true)
	}

	require.Equal(t, 5, fires)
	require.Equal(t, 1, destroyed)
	require.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}
