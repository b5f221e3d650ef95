//go:build linux || darwin

package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSelectPollFunc_ReadReady verifies the select-style fallback
// multiplexer reports a pipe's read end as ready once written to, the
// same contract defaultPollFunc provides.
func TestSelectPollFunc_ReadReady(t *testing.T) {
	r, w := newTestPipe(t)

	fd := &PollFD{FD: r, Events: IOIn}
	n, err := SelectPollFunc([]*PollFD{fd}, 10*time.Millisecond)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, fd.Revents)

	_, err = writeFD(w, []byte{'a'})
	require.NoError(t, err)

	n, err = SelectPollFunc([]*PollFD{fd}, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, fd.Revents&IOIn)
}

// TestLoop_WithSelectPollFunc verifies a Loop configured to use
// SelectPollFunc as its multiplexer behaves identically to the default
// poll(2)-backed one for fd readiness.
func TestLoop_WithSelectPollFunc(t *testing.T) {
	l, err := NewLoop(WithPollFunc(SelectPollFunc))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	r, w := newTestPipe(t)

	dispatched := make(chan struct{})
	l.FDAdd(r, IOIn, PriorityDefault, func(cond IOCondition) bool {
		close(dispatched)
		return false
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = writeFD(w, []byte{'a'})
	}()

	require.True(t, l.Iterate(true, true))
	<-dispatched
}
