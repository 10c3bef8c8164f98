package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/probeworks/vitals"
)

// Defaults for the Redis sink.
const (
	DefaultRedisStream    = "vitals:events"
	DefaultRedisMaxLen    = 4096
	defaultRedisOpTimeout = 5 * time.Second
)

// RedisSink appends events to a capped Redis stream. One stream entry per
// event: {event, payload, session}. The stream is trimmed approximately to
// the configured length so an unattended process cannot grow it unbounded.
type RedisSink struct {
	client  *redis.Client
	logger  vitals.Logger
	stream  string
	maxLen  int64
	session string
	timeout time.Duration
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithRedisStream overrides the stream key.
func WithRedisStream(stream string) RedisOption {
	return func(s *RedisSink) {
		if stream != "" {
			s.stream = stream
		}
	}
}

// WithRedisMaxLen overrides the approximate stream cap.
func WithRedisMaxLen(maxLen int64) RedisOption {
	return func(s *RedisSink) {
		if maxLen > 0 {
			s.maxLen = maxLen
		}
	}
}

// WithRedisLogger attaches a logger for transport failures.
func WithRedisLogger(logger vitals.Logger) RedisOption {
	return func(s *RedisSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedis connects to Redis and verifies the connection with a ping.
// redisURL uses the standard scheme, e.g. redis://localhost:6379/0.
func NewRedis(redisURL string, opts ...RedisOption) (*RedisSink, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Pool sizing for a low-rate telemetry writer.
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), defaultRedisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := &RedisSink{
		client:  client,
		logger:  &vitals.NoOpLogger{},
		stream:  DefaultRedisStream,
		maxLen:  DefaultRedisMaxLen,
		session: uuid.New().String()[:8],
		timeout: defaultRedisOpTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// AddCustomStatEvent implements vitals.TelemetrySink.
func (s *RedisSink) AddCustomStatEvent(name string, payloadJSON string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":   name,
			"payload": payloadJSON,
			"session": s.session,
		},
	}).Err()
	if err != nil {
		s.logger.Error("failed to append event to redis stream", map[string]interface{}{
			"error":  err.Error(),
			"stream": s.stream,
			"event":  name,
		})
	}
}

// Session returns the sink's session identifier, stamped on every entry.
func (s *RedisSink) Session() string { return s.session }

// Close releases the underlying Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
