package sinks

import (
	"sync"
	"time"
)

// stubClock pins envelope timestamps for deterministic assertions.
type stubClock struct{ at time.Time }

func (c stubClock) Now() time.Time { return c.at }

type recordedEvent struct {
	name    string
	payload string
}

// captureSink records every emitted event for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (c *captureSink) AddCustomStatEvent(name string, payloadJSON string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{name: name, payload: payloadJSON})
}

func (c *captureSink) Events() []recordedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]recordedEvent, len(c.events))
	copy(out, c.events)
	return out
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// captureLogger records structured log calls for assertions.
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (c *captureLogger) record(level, msg string, fields map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (c *captureLogger) Info(msg string, fields map[string]interface{}) {
	c.record("info", msg, fields)
}

func (c *captureLogger) Error(msg string, fields map[string]interface{}) {
	c.record("error", msg, fields)
}

func (c *captureLogger) Warn(msg string, fields map[string]interface{}) {
	c.record("warn", msg, fields)
}

func (c *captureLogger) Debug(msg string, fields map[string]interface{}) {
	c.record("debug", msg, fields)
}

func (c *captureLogger) byLevel(level string) []logEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []logEntry
	for _, e := range c.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}
