package log

// Logger is the interface node components use to emit trace events.
// Pass nil or NoopLogger to disable logging.
type Logger interface {
	// Log records a node event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking affects
	// the control task.
	Log(event Event)
}

// NoopLogger discards all events. Use when logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}

// OrNoop returns l, or NoopLogger if l is nil. Components call this at
// construction so the logger field is never nil at the call site.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// WithRunID stamps every event that has no run ID with the given one
// before forwarding it to the wrapped logger.
func WithRunID(l Logger, runID string) Logger {
	return &runIDLogger{inner: OrNoop(l), runID: runID}
}

type runIDLogger struct {
	inner Logger
	runID string
}

func (l *runIDLogger) Log(event Event) {
	if event.RunID == "" {
		event.RunID = l.runID
	}
	l.inner.Log(event)
}

var _ Logger = (*runIDLogger)(nil)
