package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eryajf/promwrite"
	"github.com/google/uuid"
	"github.com/miekg/dns"

	"github.com/probeworks/vitals"
)

// Defaults for the remote-write sink.
const (
	DefaultRemoteWriteTimeout = 10 * time.Second
	remoteWriteMetricPrefix   = "vitals_"
	dnsQueryTimeout           = 3 * time.Second
)

// RemoteWriteSink pushes the numeric values of each event payload to a
// Prometheus remote-write endpoint, one time series per key. Non-numeric
// values are skipped; booleans count as 0/1.
//
// With WithDNSRefresh the endpoint hostname is re-resolved periodically
// against a custom DNS server (UDP and TCP raced, first answer wins) and the
// write client is swapped to the fresh address. This keeps long-running
// processes writing to the current backend IP even when the host's stub
// resolver caches aggressively.
type RemoteWriteSink struct {
	logger   vitals.Logger
	instance string
	timeout  time.Duration

	endpoint *url.URL
	client   atomic.Value // *promwrite.Client

	dnsServer    string
	refreshEvery time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

// RemoteWriteOption configures a RemoteWriteSink.
type RemoteWriteOption func(*RemoteWriteSink)

// WithRemoteWriteLogger attaches a logger for transport failures.
func WithRemoteWriteLogger(logger vitals.Logger) RemoteWriteOption {
	return func(s *RemoteWriteSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRemoteWriteTimeout overrides the per-write timeout.
func WithRemoteWriteTimeout(d time.Duration) RemoteWriteOption {
	return func(s *RemoteWriteSink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDNSRefresh re-resolves the endpoint hostname against server (host:port,
// e.g. "1.1.1.1:53") every interval and swaps the client to the answer.
func WithDNSRefresh(server string, interval time.Duration) RemoteWriteOption {
	return func(s *RemoteWriteSink) {
		if server != "" && interval > 0 {
			s.dnsServer = server
			s.refreshEvery = interval
		}
	}
}

// NewRemoteWrite creates the sink and its write client.
func NewRemoteWrite(endpoint string, opts ...RemoteWriteOption) (*RemoteWriteSink, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid remote write endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote write endpoint %q must be an absolute URL", endpoint)
	}

	s := &RemoteWriteSink{
		logger:   &vitals.NoOpLogger{},
		instance: uuid.New().String()[:8],
		timeout:  DefaultRemoteWriteTimeout,
		endpoint: u,
		stop:     make(chan struct{}),
	}
	s.client.Store(promwrite.NewClient(endpoint))

	for _, o := range opts {
		o(s)
	}

	if s.dnsServer != "" {
		go s.refreshLoop()
	}
	return s, nil
}

// AddCustomStatEvent implements vitals.TelemetrySink.
func (s *RemoteWriteSink) AddCustomStatEvent(name string, payloadJSON string) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		s.logger.Error("remote write payload is not a JSON object", map[string]interface{}{
			"error": err.Error(),
			"event": name,
		})
		return
	}

	now := time.Now()
	series := make([]promwrite.TimeSeries, 0, len(payload))
	for key, value := range payload {
		v, ok := numericValue(value)
		if !ok {
			continue
		}
		series = append(series, promwrite.TimeSeries{
			Labels: []promwrite.Label{
				{Name: "__name__", Value: metricName(key)},
				{Name: "event", Value: name},
				{Name: "instance", Value: s.instance},
			},
			Sample: promwrite.Sample{Time: now, Value: v},
		})
	}
	if len(series) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	client := s.client.Load().(*promwrite.Client)
	if _, err := client.Write(ctx, &promwrite.WriteRequest{TimeSeries: series}); err != nil {
		s.logger.Error("remote write failed", map[string]interface{}{
			"error":  err.Error(),
			"event":  name,
			"series": len(series),
		})
	}
}

// Close stops the DNS refresher, if any.
func (s *RemoteWriteSink) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *RemoteWriteSink) refreshLoop() {
	ticker := time.NewTicker(s.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

func (s *RemoteWriteSink) refresh() {
	host := s.endpoint.Hostname()
	if net.ParseIP(host) != nil {
		return
	}

	ip, err := s.resolveFastest(host)
	if err != nil {
		s.logger.Warn("remote write DNS refresh failed", map[string]interface{}{
			"error": err.Error(),
			"host":  host,
		})
		return
	}

	u := *s.endpoint
	if port := s.endpoint.Port(); port != "" {
		u.Host = net.JoinHostPort(ip, port)
	} else {
		u.Host = ip
	}
	s.client.Store(promwrite.NewClient(u.String()))

	s.logger.Debug("remote write endpoint refreshed", map[string]interface{}{
		"host": host,
		"ip":   ip,
	})
}

// resolveFastest races a UDP and a TCP query and returns the first answer.
func (s *RemoteWriteSink) resolveFastest(host string) (string, error) {
	type result struct {
		ip  string
		err error
	}
	networks := []string{"udp", "tcp"}
	ch := make(chan result, len(networks))
	for _, network := range networks {
		go func(network string) {
			ip, err := s.resolve(host, network)
			ch <- result{ip: ip, err: err}
		}(network)
	}

	var lastErr error
	for range networks {
		r := <-ch
		if r.err == nil {
			return r.ip, nil
		}
		lastErr = r.err
	}
	return "", lastErr
}

func (s *RemoteWriteSink) resolve(host, network string) (string, error) {
	c := new(dns.Client)
	c.Net = network
	c.Timeout = dnsQueryTimeout

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)

	r, _, err := c.Exchange(m, s.dnsServer)
	if err != nil {
		return "", err
	}
	for _, ans := range r.Answer {
		if a, ok := ans.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("no A record for %s", host)
}

// numericValue converts JSON scalar types to a sample value.
func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// metricName turns a payload key into a valid Prometheus metric name.
func metricName(key string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, key)
	return remoteWriteMetricPrefix + sanitized
}
