package sinks

import "github.com/probeworks/vitals"

// LogSink writes every event to a structured logger. Useful as a development
// default and as the innermost sink in tests.
type LogSink struct {
	logger vitals.Logger
}

// NewLog creates a sink writing to logger. A nil logger degrades to no-op.
func NewLog(logger vitals.Logger) *LogSink {
	if logger == nil {
		logger = &vitals.NoOpLogger{}
	}
	return &LogSink{logger: logger}
}

// AddCustomStatEvent implements vitals.TelemetrySink.
func (s *LogSink) AddCustomStatEvent(name string, payloadJSON string) {
	s.logger.Info("stat event", map[string]interface{}{
		"event":   name,
		"payload": payloadJSON,
	})
}
