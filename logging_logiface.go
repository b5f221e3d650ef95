package eventloop

import (
	"github.com/joeycumines/logiface"
)

// logifaceEvent is the Event implementation backing LogifaceLogger. It
// collects the fields of a single LogEntry so they can be replayed onto a
// logiface.Builder, rather than formatted into a string up front.
type logifaceEvent struct {
	logiface.UnimplementedEvent
	level logiface.Level
	msg   string
	err   error
	str   map[string]string
	num   map[string]int64
	field map[string]any
}

func (e *logifaceEvent) Level() logiface.Level { return e.level }

func (e *logifaceEvent) AddField(key string, val any) {
	if e.field == nil {
		e.field = make(map[string]any, 4)
	}
	e.field[key] = val
}

func (e *logifaceEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *logifaceEvent) AddError(err error) bool {
	e.err = err
	return true
}

func (e *logifaceEvent) AddString(key, val string) bool {
	if e.str == nil {
		e.str = make(map[string]string, 4)
	}
	e.str[key] = val
	return true
}

func (e *logifaceEvent) AddInt64(key string, val int64) bool {
	if e.num == nil {
		e.num = make(map[string]int64, 4)
	}
	e.num[key] = val
	return true
}

func (e *logifaceEvent) AddUint64(key string, val uint64) bool {
	return e.AddInt64(key, int64(val))
}

// logEventFactory implements logiface.EventFactory[*logifaceEvent].
type logEventFactory struct{}

func (logEventFactory) NewEvent(level logiface.Level) *logifaceEvent {
	return &logifaceEvent{level: level}
}

// logLevelToLogiface maps this package's LogLevel to logiface's syslog-style
// Level. There's no equivalent of LevelWarn's position relative to notice,
// so LevelWarn maps to LevelWarning, not LevelNotice.
func logLevelToLogiface(level LogLevel) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// LogifaceLogger adapts a github.com/joeycumines/logiface Logger to this
// package's Logger interface, so a Loop can emit structured events through
// any logiface-backed sink (zerolog, zap, slog, or a bespoke Writer) instead
// of the bundled DefaultLogger.
type LogifaceLogger struct {
	logger *logiface.Logger[*logifaceEvent]
}

// NewLogifaceLogger wraps logger. Use logiface.New[*logifaceEvent] with
// WithEventFactory(logiface.NewEventFactoryFunc(logEventFactory{}.NewEvent))
// (or an equivalent EventFactory) and a Writer that knows how to render a
// *logifaceEvent to construct logger.
func NewLogifaceLogger(logger *logiface.Logger[*logifaceEvent]) *LogifaceLogger {
	return &LogifaceLogger{logger: logger}
}

// NewLogifaceLoggerWithWriter builds a ready-to-use LogifaceLogger around
// writer, supplying the EventFactory and level threshold itself. This is the
// easiest way to wire a custom logiface.Writer[*logifaceEvent] (for example
// one that forwards to zerolog or zap) without constructing the logiface
// options by hand.
func NewLogifaceLoggerWithWriter(level LogLevel, writer logiface.Writer[*logifaceEvent]) *LogifaceLogger {
	logger := logiface.New[*logifaceEvent](
		logiface.WithEventFactory[*logifaceEvent](logiface.NewEventFactoryFunc(logEventFactory{}.NewEvent)),
		logiface.WithWriter[*logifaceEvent](writer),
		logiface.WithLevel[*logifaceEvent](logLevelToLogiface(level)),
	)
	return NewLogifaceLogger(logger)
}

func (l *LogifaceLogger) IsEnabled(level LogLevel) bool {
	return l.logger.Level().Enabled() && logLevelToLogiface(level) <= l.logger.Level()
}

func (l *LogifaceLogger) Log(entry LogEntry) {
	b := l.logger.Build(logLevelToLogiface(entry.Level))
	if !b.Enabled() {
		b.Release()
		return
	}

	if entry.LoopID != 0 {
		b = b.Int64("loop_id", entry.LoopID)
	}
	if entry.SourceID != 0 {
		b = b.Uint64("source_id", entry.SourceID)
	}
	if entry.Category != "" {
		b = b.Str("category", entry.Category)
	}
	for k, v := range entry.Context {
		b = b.Interface(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}

	b.Log(entry.Message)
}
