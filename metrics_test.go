package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatencyMetrics_Record_SmallSampleExactPath(t *testing.T) {
	var lm LatencyMetrics
	for _, ms := range []int64{10, 30, 20} {
		lm.Record(time.Duration(ms) * time.Millisecond)
	}

	n := lm.Sample()
	require.Equal(t, 3, n)
	require.Equal(t, 20*time.Millisecond, lm.P50)
	require.Equal(t, 30*time.Millisecond, lm.Max)
	require.Equal(t, 60*time.Millisecond, lm.Sum)
	require.Equal(t, 20*time.Millisecond, lm.Mean)
}

func TestLatencyMetrics_Record_PSquarePath(t *testing.T) {
	var lm LatencyMetrics
	for i := int64(1); i <= 200; i++ {
		lm.Record(time.Duration(i) * time.Millisecond)
	}

	n := lm.Sample()
	require.Equal(t, 200, n)
	require.Equal(t, 200*time.Millisecond, lm.Max)
	// P50 of 1..200ms should land somewhere in the middle of the range.
	require.Greater(t, lm.P50, 50*time.Millisecond)
	require.Less(t, lm.P50, 150*time.Millisecond)
}

func TestLatencyMetrics_Record_RingBufferEviction(t *testing.T) {
	var lm LatencyMetrics
	// Push more samples than sampleSize so the ring buffer wraps and the
	// oldest samples are evicted from the Sum.
	for i := 0; i < sampleSize+10; i++ {
		lm.Record(time.Millisecond)
	}
	lm.Sample()
	require.Equal(t, time.Duration(sampleSize)*time.Millisecond, lm.Sum)
}

func TestMetrics_IterationAndDispatchCounters(t *testing.T) {
	m := NewMetrics()

	m.iterationStart()
	m.iterationEnd(false)
	m.iterationStart()
	m.iterationEnd(true)

	require.Equal(t, int64(2), m.Iterations())
	require.Equal(t, int64(1), m.DispatchedIterations())
	require.GreaterOrEqual(t, m.DispatchRate(), float64(0))

	m.recordDispatch(5 * time.Millisecond)
	m.recordPollWait(2 * time.Millisecond)
	require.Equal(t, 1, m.DispatchLatency.Sample())
	require.Equal(t, 1, m.PollWait.Sample())
}

func TestRateCounter_IncrementAndRotate(t *testing.T) {
	c := NewRateCounter(1*time.Second, 100*time.Millisecond)
	for i := 0; i < 5; i++ {
		c.Increment()
	}
	require.Greater(t, c.Rate(), float64(0))
}

func TestRateCounter_InvalidWindowPanics(t *testing.T) {
	require.Panics(t, func() { NewRateCounter(0, time.Second) })
	require.Panics(t, func() { NewRateCounter(time.Second, 2*time.Second) })
}

// TestLoop_MetricsWiredThroughIterate verifies that a Loop constructed with
// WithMetrics(true) actually records iteration and dispatch-latency data as
// Iterate runs, rather than Metrics existing only as an unused option.
func TestLoop_MetricsWiredThroughIterate(t *testing.T) {
	l, err := NewLoop(WithMetrics(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	require.NotNil(t, l.Metrics())

	dispatched := make(chan struct{})
	l.IdleAdd(func() bool {
		close(dispatched)
		return false
	})

	l.Iterate(false, true)
	<-dispatched

	require.GreaterOrEqual(t, l.Metrics().Iterations(), int64(1))
	require.GreaterOrEqual(t, l.Metrics().DispatchedIterations(), int64(1))
}

func TestLoop_MetricsNilWhenDisabled(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	require.Nil(t, l.Metrics())
}
