package log

// Logger is the sink for the payload audit trail: one Event per issued or
// opened payload, successful or not. Issuers call Log on their request
// path, so implementations must be safe for concurrent use and must not
// block on slow storage.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops the audit trail.
type NoopLogger struct{}

// Log drops the event.
func (NoopLogger) Log(Event) {}

// OrNoop returns l, or NoopLogger if l is nil, so callers may leave their
// audit sink unset.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// MultiLogger records each audit event in several sinks, typically the
// operational log through LogrusAdapter plus a FileLogger that causp-log
// reads back. Sinks are called in order; nil sinks are dropped when the
// MultiLogger is built.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger combines sinks into one Logger.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	m := &MultiLogger{sinks: make([]Logger, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Log hands the event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
)
