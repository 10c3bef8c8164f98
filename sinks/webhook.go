package sinks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/probeworks/vitals"
)

// Defaults for the webhook sink.
const (
	DefaultWebhookQueueSize = 64
	DefaultWebhookTimeout   = 10 * time.Second
)

// WebhookSink POSTs each event envelope as JSON to an HTTP endpoint. Emits
// enqueue onto a bounded channel drained by a single worker goroutine; when
// the queue is full the event is dropped and counted, never blocking the
// caller. The HTTP transport is OpenTelemetry-instrumented so webhook
// deliveries show up as client spans.
type WebhookSink struct {
	endpoint string
	session  string
	logger   vitals.Logger
	clock    vitals.Clock
	client   *http.Client

	mu      sync.Mutex
	closed  bool
	queue   chan Envelope
	done    chan struct{}
	dropped atomic.Int64
}

// WebhookOption configures a WebhookSink.
type WebhookOption func(*WebhookSink)

// WithWebhookLogger attaches a logger for delivery failures.
func WithWebhookLogger(logger vitals.Logger) WebhookOption {
	return func(s *WebhookSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWebhookTimeout overrides the per-request timeout.
func WithWebhookTimeout(d time.Duration) WebhookOption {
	return func(s *WebhookSink) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithWebhookQueueSize overrides the queue capacity. Must be called before
// the first emit.
func WithWebhookQueueSize(n int) WebhookOption {
	return func(s *WebhookSink) {
		if n > 0 {
			s.queue = make(chan Envelope, n)
		}
	}
}

// WithWebhookClock sets the clock stamping envelope send times. Tests use
// this to pin time.
func WithWebhookClock(clock vitals.Clock) WebhookOption {
	return func(s *WebhookSink) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewWebhook creates the sink and starts its delivery worker.
func NewWebhook(endpoint string, opts ...WebhookOption) (*WebhookSink, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook endpoint %q must use http or https scheme", endpoint)
	}

	s := &WebhookSink{
		endpoint: endpoint,
		session:  uuid.New().String()[:8],
		logger:   &vitals.NoOpLogger{},
		clock:    vitals.RealClock{},
		client: &http.Client{
			Timeout:   DefaultWebhookTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		queue: make(chan Envelope, DefaultWebhookQueueSize),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	go s.worker()
	return s, nil
}

// AddCustomStatEvent implements vitals.TelemetrySink. Events emitted after
// Close are dropped.
func (s *WebhookSink) AddCustomStatEvent(name string, payloadJSON string) {
	env := Envelope{
		Session: s.session,
		Event:   name,
		Payload: rawPayload(payloadJSON),
		SentAt:  s.clock.Now().UTC(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.queue <- env:
		s.mu.Unlock()
		return
	default:
	}
	s.mu.Unlock()

	s.dropped.Add(1)
	s.logger.Warn("webhook queue full, event dropped", map[string]interface{}{
		"event":   name,
		"dropped": s.dropped.Load(),
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (s *WebhookSink) Dropped() int64 {
	return s.dropped.Load()
}

// Session returns the identifier stamped on every envelope.
func (s *WebhookSink) Session() string {
	return s.session
}

// Close stops accepting events and blocks until the worker has drained the
// queue.
func (s *WebhookSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *WebhookSink) worker() {
	defer close(s.done)
	for env := range s.queue {
		s.deliver(env)
	}
}

func (s *WebhookSink) deliver(env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("webhook envelope marshal failed", map[string]interface{}{
			"error": err.Error(),
			"event": env.Event,
		})
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("webhook request build failed", map[string]interface{}{
			"error": err.Error(),
			"event": env.Event,
		})
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vitals-Session", s.session)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("webhook delivery failed", map[string]interface{}{
			"error": err.Error(),
			"event": env.Event,
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.Error("webhook endpoint rejected event", map[string]interface{}{
			"status": resp.StatusCode,
			"event":  env.Event,
		})
	}
}
