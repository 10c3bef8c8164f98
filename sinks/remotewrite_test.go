package sinks

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type remoteWriteCapture struct {
	mu       sync.Mutex
	requests int
	header   http.Header
}

func (c *remoteWriteCapture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.requests++
		c.header = r.Header.Clone()
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (c *remoteWriteCapture) snapshot() (int, http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests, c.header
}

func TestRemoteWriteSinkPushesNumericSeries(t *testing.T) {
	capture := &remoteWriteCapture{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	sink, err := NewRemoteWrite(srv.URL)
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	sink.AddCustomStatEvent("monitor_stats", `{"heap_alloc":42,"label":"x","fd_supported":true}`)

	requests, header := capture.snapshot()
	require.Equal(t, 1, requests)
	assert.Equal(t, "snappy", header.Get("Content-Encoding"))
	assert.Equal(t, "application/x-protobuf", header.Get("Content-Type"))
	assert.NotEmpty(t, header.Get("X-Prometheus-Remote-Write-Version"))
}

func TestRemoteWriteSinkSkipsNonNumericPayloads(t *testing.T) {
	capture := &remoteWriteCapture{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	sink, err := NewRemoteWrite(srv.URL)
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	sink.AddCustomStatEvent("monitor_stats", `{"label":"x","nested":{"a":1}}`)

	requests, _ := capture.snapshot()
	assert.Zero(t, requests)
}

func TestRemoteWriteSinkRejectsMalformedPayload(t *testing.T) {
	capture := &remoteWriteCapture{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	logger := &captureLogger{}
	sink, err := NewRemoteWrite(srv.URL, WithRemoteWriteLogger(logger))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	sink.AddCustomStatEvent("monitor_stats", `[1,2,3]`)

	requests, _ := capture.snapshot()
	assert.Zero(t, requests)
	assert.NotEmpty(t, logger.byLevel("error"))
}

func TestNewRemoteWriteRejectsRelativeEndpoint(t *testing.T) {
	_, err := NewRemoteWrite("/metrics/push")
	assert.Error(t, err)
}

func TestRemoteWriteRefreshKeepsLiteralIPEndpoints(t *testing.T) {
	sink, err := NewRemoteWrite("http://127.0.0.1:9090/api/v1/write")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	before := sink.client.Load()
	sink.refresh()
	assert.Same(t, before, sink.client.Load())
}

func TestMetricName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"heap_alloc", "vitals_heap_alloc"},
		{"gc count", "vitals_gc_count"},
		{"fd-open", "vitals_fd_open"},
		{"heap.inuse", "vitals_heap_inuse"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metricName(tt.key))
	}
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"float", float64(42.5), 42.5, true},
		{"true", true, 1, true},
		{"false", false, 0, true},
		{"string", "42", 0, false},
		{"nil", nil, 0, false},
		{"object", map[string]any{"a": 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := numericValue(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
