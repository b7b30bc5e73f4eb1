package log

// MultiLogger fans one event stream out to several sinks, typically
// the console slog adapter plus the CBOR file logger. Sinks run in
// order on the caller's goroutine, so a slow sink stalls the others.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger creates a MultiLogger over the given sinks. Nil
// entries are dropped, so conditionally built sinks can be passed
// without guarding.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	kept := make([]Logger, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiLogger{sinks: kept}
}

// Log forwards the event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
