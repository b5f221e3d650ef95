package eventloop

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics for a Loop. All metrics are optional
// and are only collected when a Loop is constructed with WithMetrics(true);
// Loop.Metrics returns nil otherwise.
//
// Thread Safety: all Metrics methods are safe for concurrent use.
type Metrics struct {
	// DispatchLatency tracks how long Dispatch callbacks take to run.
	DispatchLatency LatencyMetrics
	// PollWait tracks how long each iteration spends blocked in poll.
	PollWait LatencyMetrics

	iterations           atomic.Int64
	dispatchedIterations atomic.Int64

	rate *RateCounter
}

// NewMetrics constructs an empty Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		rate: NewRateCounter(10*time.Second, 100*time.Millisecond),
	}
}

func (m *Metrics) iterationStart() {
	m.iterations.Add(1)
}

func (m *Metrics) iterationEnd(dispatched bool) {
	if dispatched {
		m.dispatchedIterations.Add(1)
		m.rate.Increment()
	}
}

func (m *Metrics) recordDispatch(d time.Duration) {
	m.DispatchLatency.Record(d)
}

func (m *Metrics) recordPollWait(d time.Duration) {
	m.PollWait.Record(d)
}

// Iterations returns the total number of Iterate calls that did real work
// (prepare/poll/check, regardless of whether anything was dispatched).
func (m *Metrics) Iterations() int64 {
	return m.iterations.Load()
}

// DispatchedIterations returns the number of iterations that dispatched at
// least one source.
func (m *Metrics) DispatchedIterations() int64 {
	return m.dispatchedIterations.Load()
}

// DispatchRate returns the current dispatching iterations per second, over
// a rolling window.
func (m *Metrics) DispatchRate() float64 {
	return m.rate.Rate()
}

// LatencyMetrics tracks a latency distribution with percentiles, using the
// P-Square algorithm for O(1) streaming percentile estimation.
type LatencyMetrics struct {
	psquare *pSquareMultiQuantile

	mu sync.RWMutex

	sampleIdx   int
	sampleCount int
	samples     [sampleSize]time.Duration

	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration

	Mean time.Duration
	Sum  time.Duration
}

// sampleSize is the maximum number of latency samples retained for exact
// percentile computation while the P-Square estimator is warming up.
const sampleSize = 1000

// Record records a latency sample.
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.psquare == nil {
		l.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)
	}
	l.psquare.Update(float64(duration))

	if l.sampleCount >= sampleSize {
		old := l.samples[l.sampleIdx]
		l.Sum -= old
	}

	l.samples[l.sampleIdx] = duration
	l.Sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample computes percentiles from collected samples and caches them on
// the receiver. It returns the number of samples used. For small sample
// counts (<5) it falls back to exact sorting; otherwise it reads the
// P-Square estimator, which is O(1) regardless of how many samples have
// been recorded in total.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.sampleCount
	if count == 0 {
		return 0
	}

	if count < 5 || l.psquare == nil {
		sorted := make([]time.Duration, count)
		copy(sorted, l.samples[:count])
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		l.P50 = sorted[percentileIndex(count, 50)]
		l.P90 = sorted[percentileIndex(count, 90)]
		l.P95 = sorted[percentileIndex(count, 95)]
		l.P99 = sorted[percentileIndex(count, 99)]
		l.Max = sorted[count-1]
		l.Mean = l.Sum / time.Duration(count)
		return count
	}

	l.P50 = time.Duration(l.psquare.Quantile(0))
	l.P90 = time.Duration(l.psquare.Quantile(1))
	l.P95 = time.Duration(l.psquare.Quantile(2))
	l.P99 = time.Duration(l.psquare.Quantile(3))
	l.Max = time.Duration(l.psquare.Max())
	l.Mean = l.Sum / time.Duration(count)
	return count
}

func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// RateCounter tracks events per second with a rolling window, using a ring
// buffer of fixed-size time buckets.
type RateCounter struct {
	lastRotation atomic.Value // time.Time
	buckets      []int64
	bucketSize   time.Duration
	mu           sync.Mutex
}

// NewRateCounter creates a rate counter over windowSize, divided into
// buckets of bucketSize.
func NewRateCounter(windowSize, bucketSize time.Duration) *RateCounter {
	if windowSize <= 0 || bucketSize <= 0 || bucketSize > windowSize {
		panic("mainloop: invalid rate counter window/bucket size")
	}
	c := &RateCounter{
		buckets:    make([]int64, int(windowSize/bucketSize)),
		bucketSize: bucketSize,
	}
	c.lastRotation.Store(time.Now())
	return c
}

// Increment records one event.
func (c *RateCounter) Increment() {
	c.rotate()
	c.mu.Lock()
	c.buckets[len(c.buckets)-1]++
	c.mu.Unlock()
}

func (c *RateCounter) rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	last := c.lastRotation.Load().(time.Time)
	elapsed := now.Sub(last)

	advance := int64(elapsed) / int64(c.bucketSize)
	if advance < 0 || advance > int64(len(c.buckets)) {
		advance = int64(len(c.buckets))
	}

	if advance >= int64(len(c.buckets)) {
		for i := range c.buckets {
			c.buckets[i] = 0
		}
		c.lastRotation.Store(now)
		return
	}
	if advance == 0 {
		return
	}

	copy(c.buckets, c.buckets[advance:])
	for i := len(c.buckets) - int(advance); i < len(c.buckets); i++ {
		c.buckets[i] = 0
	}
	c.lastRotation.Store(last.Add(time.Duration(advance) * c.bucketSize))
}

// Rate returns the current events-per-second rate over the window.
func (c *RateCounter) Rate() float64 {
	c.rotate()

	c.mu.Lock()
	defer c.mu.Unlock()

	var sum int64
	for _, v := range c.buckets {
		sum += v
	}
	if sum == 0 {
		return 0
	}
	duration := float64(len(c.buckets)) * c.bucketSize.Seconds()
	return float64(sum) / duration
}
