package vitals

import "time"

// Kind identifies a monitor's concrete type. It is the unique key into the
// Manager's registry: at most one live monitor instance exists per Kind.
type Kind string

// Monitor is a pluggable telemetry-producing subsystem (heap, goroutines,
// file descriptors, ...). Implementations are initialized exactly once by the
// Manager and must be safe for concurrent LogParams calls afterwards.
type Monitor interface {
	// Kind returns the type tag this monitor registers under.
	Kind() Kind

	// Init prepares the monitor with the process-wide configuration and its
	// own config. Called at most once per instance by the Manager. An error
	// is fatal to this monitor only; the process keeps running.
	Init(cc *CommonConfig, cfg MonitorConfig) error

	// Initialized reports whether Init has completed successfully.
	Initialized() bool

	// LogParams returns a point-in-time snapshot of the monitor's stats as a
	// flat key-value map. It must be side-effect-free and callable from any
	// goroutine once the monitor is initialized.
	LogParams() map[string]any
}

// MonitorConfig is a value object bound to exactly one monitor kind. The
// config itself declares which monitor it configures (Kind) and how to obtain
// an instance (NewMonitor), so the Manager never inspects types at runtime.
type MonitorConfig interface {
	// Kind returns the type tag of the monitor this config targets. An empty
	// Kind marks the config as malformed and registration fails.
	Kind() Kind

	// NewMonitor returns the instance to install for this config's Kind.
	// Implementations may return a fresh value or a process-wide shared
	// instance; the Manager calls this only when the Kind is not yet
	// registered.
	NewMonitor() (Monitor, error)
}

// TelemetrySink receives named events with a JSON-encoded payload.
// Emission is fire-and-forget: implementations return promptly, keeping any
// I/O bounded by timeouts or deferred to a background worker, and have no
// error channel back into the core.
type TelemetrySink interface {
	AddCustomStatEvent(name string, payloadJSON string)
}

// Application is the host application handle stored in CommonConfig.
type Application interface {
	// Name identifies the host application in events and logs.
	Name() string

	// Foreground reports whether the application is currently visible or
	// interactive. Sampled at registration time to decide whether a
	// just-initialized monitor emits its snapshot immediately.
	Foreground() bool
}

// AppEvent is a coarse-grained application lifecycle event.
type AppEvent uint8

const (
	// AppCreate fires once when the application process comes up.
	AppCreate AppEvent = iota
	// AppActive fires when the application becomes visible or interactive.
	// This is the only event the aggregated flush reacts to.
	AppActive
	// AppBackground fires when the application leaves the foreground.
	AppBackground
	// AppStop fires when the application is shutting down.
	AppStop
)

// String returns the event name used in logs.
func (e AppEvent) String() string {
	switch e {
	case AppCreate:
		return "create"
	case AppActive:
		return "active"
	case AppBackground:
		return "background"
	case AppStop:
		return "stop"
	default:
		return "unknown"
	}
}

// AppObserver receives lifecycle events. A single subscription receives
// events serially, in dispatch order.
type AppObserver func(AppEvent)

// LifecycleSource delivers application lifecycle events to observers.
// Observers live for the process lifetime; there is no unsubscribe.
type LifecycleSource interface {
	Subscribe(AppObserver)
}

// Logger provides structured logging with contextual fields.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time. It is the Clock used when none is
// configured.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// NoOpLogger discards all log output. It is the default logger so the SDK
// works with zero configuration.
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

// NoOpSink discards all events. It is the default sink so a Manager can run
// before any transport is wired up.
type NoOpSink struct{}

func (n *NoOpSink) AddCustomStatEvent(name string, payloadJSON string) {}
