package vitals

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultEventName is the event name used for aggregated stats flushes when
// no override is configured.
const DefaultEventName = "monitor_stats"

// Environment variables consulted by NewCommonConfig.
const (
	EnvVersion   = "VITALS_VERSION"    // host application version
	EnvChannel   = "VITALS_CHANNEL"    // release channel (stable, beta, ...)
	EnvEventName = "VITALS_EVENT_NAME" // aggregated flush event name
)

// CommonConfig is the process-wide shared configuration handed to every
// monitor at initialization. It is constructed once, before any monitor
// registration, and is read-only afterwards: all fields are unexported and
// reachable only through accessors, so no monitor can mutate it.
//
// Configuration priority (lowest to highest):
//  1. Built-in defaults
//  2. Environment variables (VITALS_*)
//  3. Options, applied in the order given (WithConfigFile is an option, so
//     place it first to let later options override file values)
type CommonConfig struct {
	app       Application
	lifecycle LifecycleSource
	logger    Logger
	sink      TelemetrySink
	clock     Clock
	version   string
	channel   string
	eventName string
}

// CommonOption configures a CommonConfig during construction.
type CommonOption func(*CommonConfig) error

// NewCommonConfig builds the shared configuration around the host
// application handle. The handle is required; everything else defaults to a
// safe no-op and can be layered on with options.
//
// If app also implements LifecycleSource it is used as the lifecycle source
// unless WithLifecycle overrides it.
func NewCommonConfig(app Application, opts ...CommonOption) (*CommonConfig, error) {
	if app == nil {
		return nil, ErrNilApplication
	}

	cc := &CommonConfig{
		app:       app,
		logger:    &NoOpLogger{},
		sink:      &NoOpSink{},
		clock:     RealClock{},
		eventName: DefaultEventName,
	}
	if src, ok := app.(LifecycleSource); ok {
		cc.lifecycle = src
	}

	cc.applyEnvironment()

	for _, opt := range opts {
		if err := opt(cc); err != nil {
			return nil, fmt.Errorf("invalid common config option: %w", err)
		}
	}
	return cc, nil
}

func (c *CommonConfig) applyEnvironment() {
	if v := os.Getenv(EnvVersion); v != "" {
		c.version = v
	}
	if v := os.Getenv(EnvChannel); v != "" {
		c.channel = v
	}
	if v := os.Getenv(EnvEventName); v != "" {
		c.eventName = v
	}
}

// Application returns the stored host application handle.
func (c *CommonConfig) Application() Application { return c.app }

// Lifecycle returns the lifecycle source, or nil if none is configured.
func (c *CommonConfig) Lifecycle() LifecycleSource { return c.lifecycle }

// Logger returns the configured logger. Never nil.
func (c *CommonConfig) Logger() Logger { return c.logger }

// Sink returns the configured telemetry sink. Never nil.
func (c *CommonConfig) Sink() TelemetrySink { return c.sink }

// Clock returns the configured clock. Never nil.
func (c *CommonConfig) Clock() Clock { return c.clock }

// Version returns the host application version, if configured.
func (c *CommonConfig) Version() string { return c.version }

// Channel returns the release channel, if configured.
func (c *CommonConfig) Channel() string { return c.channel }

// EventName returns the event name used for aggregated flushes.
func (c *CommonConfig) EventName() string { return c.eventName }

// WithVersion sets the host application version reported in logs.
func WithVersion(version string) CommonOption {
	return func(c *CommonConfig) error {
		c.version = version
		return nil
	}
}

// WithChannel sets the release channel (stable, beta, internal, ...).
func WithChannel(channel string) CommonOption {
	return func(c *CommonConfig) error {
		c.channel = channel
		return nil
	}
}

// WithLogger sets the logger used by the Manager and monitors.
func WithLogger(logger Logger) CommonOption {
	return func(c *CommonConfig) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithSink sets the telemetry sink events are emitted to.
func WithSink(sink TelemetrySink) CommonOption {
	return func(c *CommonConfig) error {
		if sink == nil {
			return fmt.Errorf("sink cannot be nil")
		}
		c.sink = sink
		return nil
	}
}

// WithLifecycle sets the lifecycle source the Manager subscribes to,
// overriding any source derived from the application handle.
func WithLifecycle(src LifecycleSource) CommonOption {
	return func(c *CommonConfig) error {
		if src == nil {
			return fmt.Errorf("lifecycle source cannot be nil")
		}
		c.lifecycle = src
		return nil
	}
}

// WithClock sets the clock used for event timestamps. Tests use this to pin
// time.
func WithClock(clock Clock) CommonOption {
	return func(c *CommonConfig) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.clock = clock
		return nil
	}
}

// WithEventName overrides the aggregated flush event name.
func WithEventName(name string) CommonOption {
	return func(c *CommonConfig) error {
		if name == "" {
			return fmt.Errorf("event name cannot be empty")
		}
		c.eventName = name
		return nil
	}
}

// fileConfig is the YAML shape accepted by WithConfigFile.
type fileConfig struct {
	Version   string `yaml:"version"`
	Channel   string `yaml:"channel"`
	EventName string `yaml:"event_name"`
}

// WithConfigFile loads metadata fields from a YAML file. Only fields present
// in the file are applied, so later options can still override them.
//
// Example file:
//
//	version: "1.4.2"
//	channel: "beta"
//	event_name: "app_vitals"
func WithConfigFile(path string) CommonOption {
	return func(c *CommonConfig) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if fc.Version != "" {
			c.version = fc.Version
		}
		if fc.Channel != "" {
			c.channel = fc.Channel
		}
		if fc.EventName != "" {
			c.eventName = fc.EventName
		}
		return nil
	}
}
