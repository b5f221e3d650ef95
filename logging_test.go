package eventloop

import (
	"bytes"
	"sync"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "WARN", LevelWarn.String())
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "UNKNOWN(99)", LogLevel(99).String())
}

func TestNoOpLogger_DiscardsEverything(t *testing.T) {
	var l NoOpLogger
	require.False(t, l.IsEnabled(LevelError))
	require.NotPanics(t, func() { l.Log(LogEntry{Level: LevelError, Message: "ignored"}) })
}

func TestWriterLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelWarn, &buf)

	require.False(t, logger.IsEnabled(LevelInfo))
	logger.Log(LogEntry{Level: LevelInfo, Category: "test", Message: "should not appear"})
	require.Zero(t, buf.Len())

	require.True(t, logger.IsEnabled(LevelWarn))
	logger.Log(LogEntry{Level: LevelWarn, Category: "test", Message: "should appear", SourceID: 7})
	require.Contains(t, buf.String(), "should appear")
	require.Contains(t, buf.String(), "source=7")
}

// TestLoop_SourceLifecycleLogging exercises the specialty log helpers
// LogSourceAdded and LogDispatchPanicked (LogTimeoutFired is covered by
// TestLoop_TimeoutFiredLogging) end to end, through a real Loop configured
// with WithLogger, rather than
// calling them directly: this is exactly how the iteration driver invokes
// them.
func TestLoop_SourceLifecycleLogging(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := NewWriterLogger(LevelDebug, syncWriter{&buf, &mu})

	l, err := NewLoop(WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	src := &alwaysReady{}
	src.onDispatch = func(*Source) bool { panic("boom") }
	id := l.SourceAdd(PriorityDefault, src)

	l.Iterate(false, true)
	require.True(t, l.SourceRemove(id) == false) // already destroyed by the panic

	mu.Lock()
	out := buf.String()
	mu.Unlock()

	require.Contains(t, out, "source added")
	require.Contains(t, out, "dispatch panicked")
	require.Contains(t, out, "boom")
}

func TestLoop_TimeoutFiredLogging(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := NewWriterLogger(LevelDebug, syncWriter{&buf, &mu})

	l, err := NewLoop(WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	fired := make(chan struct{})
	l.TimeoutAdd(0, func() bool {
		close(fired)
		return false
	})

	l.Iterate(true, true)
	<-fired

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, buf.String(), "timeout fired")
}

// TestLoop_GlobalLoggerFallback verifies that a Loop constructed without
// WithLogger falls back to whatever logger was installed globally via
// SetStructuredLogger, instead of silently discarding everything.
func TestLoop_GlobalLoggerFallback(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	SetStructuredLogger(NewWriterLogger(LevelDebug, syncWriter{&buf, &mu}))
	t.Cleanup(func() { SetStructuredLogger(nil) })

	l, err := NewLoop()
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	l.SourceAdd(PriorityDefault, &alwaysReady{onDispatch: func(*Source) bool { return false }})

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, buf.String(), "source added")
}

// TestLogifaceLogger_EmitsThroughWriter verifies the logiface adapter
// forwards a LogEntry's fields onto the underlying logiface.Writer.
func TestLogifaceLogger_EmitsThroughWriter(t *testing.T) {
	w := &capturingLogifaceWriter{}
	logger := NewLogifaceLoggerWithWriter(LevelDebug, w)

	require.True(t, logger.IsEnabled(LevelInfo))
	logger.Log(LogEntry{
		Level:    LevelInfo,
		Category: "source",
		LoopID:   1,
		SourceID: 42,
		Message:  "source added",
		Context:  map[string]interface{}{"priority": 0},
	})

	require.Len(t, w.events, 1)
	require.Equal(t, "source added", w.events[0].msg)
	require.Equal(t, "source", w.events[0].str["category"])
	require.EqualValues(t, 42, w.events[0].num["source_id"])
}

// capturingLogifaceWriter is a minimal logiface.Writer[*logifaceEvent] that
// records every event it's handed, for assertions.
type capturingLogifaceWriter struct {
	events []*logifaceEvent
}

func (w *capturingLogifaceWriter) Write(e *logifaceEvent) error {
	w.events = append(w.events, e)
	return nil
}

var _ logiface.Writer[*logifaceEvent] = (*capturingLogifaceWriter)(nil)

// syncWriter wraps an io.Writer with a mutex, since WriterLogger.Log may be
// called from the goroutine driving a Loop while the test goroutine reads
// the buffer concurrently.
type syncWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (w syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
