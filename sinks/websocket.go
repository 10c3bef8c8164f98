package sinks

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/probeworks/vitals"
)

// Defaults for the WebSocket sink.
const (
	DefaultWSHandshakeTimeout = 5 * time.Second
	DefaultWSWriteTimeout     = 5 * time.Second
)

// WebSocketSink streams events as JSON envelopes over a WebSocket
// connection. The connection is dialed lazily on first emit and redialed on
// the next emit after a write failure; dials and writes are bounded by
// timeouts, so a flaky collector delays the caller but cannot wedge it.
type WebSocketSink struct {
	url     string
	session string
	logger  vitals.Logger
	clock   vitals.Clock

	dialer       *websocket.Dialer
	writeTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// WebSocketOption configures a WebSocketSink.
type WebSocketOption func(*WebSocketSink)

// WithWebSocketLogger attaches a logger for dial and write failures.
func WithWebSocketLogger(logger vitals.Logger) WebSocketOption {
	return func(s *WebSocketSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWebSocketWriteTimeout overrides the per-message write deadline.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(s *WebSocketSink) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithWebSocketClock sets the clock stamping envelope send times. Tests use
// this to pin time.
func WithWebSocketClock(clock vitals.Clock) WebSocketOption {
	return func(s *WebSocketSink) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewWebSocket creates a sink that will connect to the ws:// or wss:// URL
// on first use.
func NewWebSocket(rawURL string, opts ...WebSocketOption) (*WebSocketSink, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("websocket URL %q must use ws or wss scheme", rawURL)
	}

	s := &WebSocketSink{
		url:     rawURL,
		session: uuid.New().String()[:8],
		logger:  &vitals.NoOpLogger{},
		clock:   vitals.RealClock{},
		dialer: &websocket.Dialer{
			HandshakeTimeout: DefaultWSHandshakeTimeout,
		},
		writeTimeout: DefaultWSWriteTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// AddCustomStatEvent implements vitals.TelemetrySink.
func (s *WebSocketSink) AddCustomStatEvent(name string, payloadJSON string) {
	env := Envelope{
		Session: s.session,
		Event:   name,
		Payload: rawPayload(payloadJSON),
		SentAt:  s.clock.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.conn == nil {
		conn, _, err := s.dialer.Dial(s.url, nil)
		if err != nil {
			s.logger.Error("websocket dial failed", map[string]interface{}{
				"error": err.Error(),
				"url":   s.url,
			})
			return
		}
		s.conn = conn
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteJSON(env); err != nil {
		s.logger.Error("websocket write failed", map[string]interface{}{
			"error": err.Error(),
			"event": name,
		})
		_ = s.conn.Close()
		s.conn = nil
	}
}

// Session returns the identifier stamped on every envelope.
func (s *WebSocketSink) Session() string {
	return s.session
}

// Close sends a close frame and tears down the connection. Emits after Close
// are dropped.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn == nil {
		return nil
	}
	deadline := time.Now().Add(s.writeTimeout)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := s.conn.Close()
	s.conn = nil
	return err
}
