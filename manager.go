package vitals

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Manager is the monitor registry. It owns the process-wide CommonConfig,
// installs and initializes each monitor kind at most once, and flushes one
// aggregated stats event per application activation.
//
// A Manager is constructed once at startup and passed by reference to the
// collaborators that need it; there is no package-level instance.
type Manager struct {
	id     string
	cc     *CommonConfig
	logger Logger
	sink   TelemetrySink

	mu      sync.Mutex
	entries map[Kind]Monitor
	order   []Kind

	started atomic.Bool
}

// New creates a Manager around the shared configuration. The configuration
// must carry an application handle; everything else has safe defaults.
func New(cc *CommonConfig) (*Manager, error) {
	if cc == nil {
		return nil, ErrNilCommonConfig
	}
	if cc.Application() == nil {
		return nil, ErrNilApplication
	}

	logger := cc.Logger()
	if logger == nil {
		logger = &NoOpLogger{}
	}
	sink := cc.Sink()
	if sink == nil {
		sink = &NoOpSink{}
	}

	m := &Manager{
		id:      fmt.Sprintf("%s-%s", cc.Application().Name(), uuid.New().String()[:8]),
		cc:      cc,
		logger:  logger,
		sink:    sink,
		entries: make(map[Kind]Monitor),
	}

	m.logger.Debug("monitor manager created", map[string]interface{}{
		"manager": m.id,
		"app":     cc.Application().Name(),
		"version": cc.Version(),
	})
	return m, nil
}

// ID returns the manager's instance identifier, used to correlate logs and
// events from the same process run.
func (m *Manager) ID() string { return m.id }

// CommonConfig returns the shared configuration this manager was built with.
func (m *Manager) CommonConfig() *CommonConfig { return m.cc }

// AddMonitorConfig registers the monitor the config targets. The config's
// Kind decides the registry slot; if that kind is already present the call is
// a no-op and returns nil, so duplicate registrations are harmless and a
// monitor is initialized at most once no matter how many goroutines race
// here.
//
// For a new kind the config's factory produces the instance (possibly a
// process-wide shared one), the instance is initialized with
// (CommonConfig, MonitorConfig), and on success the monitor's current
// snapshot is emitted immediately if the application is foregrounded at that
// moment. A malformed config or a failing factory/Init leaves the registry
// unchanged and returns a fatal error to the caller.
func (m *Manager) AddMonitorConfig(cfg MonitorConfig) error {
	if cfg == nil {
		return NewMonitorError("add_monitor_config", "", "nil config", ErrInvalidMonitorConfig)
	}
	kind := cfg.Kind()
	if kind == "" {
		return NewMonitorError("add_monitor_config", "", fmt.Sprintf("config type %T", cfg), ErrInvalidMonitorConfig)
	}

	m.mu.Lock()
	if _, ok := m.entries[kind]; ok {
		m.mu.Unlock()
		m.logger.Debug("monitor already registered", map[string]interface{}{
			"kind":    string(kind),
			"manager": m.id,
		})
		return nil
	}

	mon, err := cfg.NewMonitor()
	if err != nil {
		m.mu.Unlock()
		return NewMonitorError("add_monitor_config", kind, "monitor constructor failed", err)
	}
	if mon == nil {
		m.mu.Unlock()
		return NewMonitorError("add_monitor_config", kind, "", ErrNilMonitor)
	}

	m.entries[kind] = mon
	m.order = append(m.order, kind)

	if err := mon.Init(m.cc, cfg); err != nil {
		delete(m.entries, kind)
		m.order = m.order[:len(m.order)-1]
		m.mu.Unlock()
		return NewMonitorError("add_monitor_config", kind, "init failed", err)
	}
	m.mu.Unlock()

	m.logger.Info("monitor registered", map[string]interface{}{
		"kind":    string(kind),
		"manager": m.id,
	})

	// Freshly initialized monitors report once right away, but only while
	// the app is visible; emission is best-effort.
	if m.cc.Application().Foreground() {
		m.emit(mon.LogParams())
	}
	return nil
}

// Monitor returns the registered instance for kind, or (nil, false) when the
// kind has never been registered.
//
// Deprecated: hold on to the instance your MonitorConfig factory produced
// instead of looking it up through the registry.
func (m *Manager) Monitor(kind Kind) (Monitor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.entries[kind]
	return mon, ok
}

// Initialized reports whether a monitor of the given kind is registered and
// initialized.
//
// Deprecated: see Monitor.
func (m *Manager) Initialized(kind Kind) bool {
	m.mu.Lock()
	mon, ok := m.entries[kind]
	m.mu.Unlock()
	return ok && mon.Initialized()
}

// Kinds returns the registered monitor kinds in registration order, which is
// also the aggregation order used by the flush.
func (m *Manager) Kinds() []Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Kind, len(m.order))
	copy(out, m.order)
	return out
}

// OnApplicationCreate performs the one-time application-level bootstrap:
// it subscribes the aggregated-flush observer to the lifecycle source. Call
// it exactly once at application startup, after registering initial monitors;
// a second call returns ErrAlreadyStarted.
func (m *Manager) OnApplicationCreate() error {
	src := m.cc.Lifecycle()
	if src == nil {
		return ErrNoLifecycleSource
	}
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	sub := &flushSubscription{manager: m}
	src.Subscribe(sub.observe)

	m.logger.Info("monitor manager started", map[string]interface{}{
		"manager":     m.id,
		"app":         m.cc.Application().Name(),
		"version":     m.cc.Version(),
		"channel":     m.cc.Channel(),
		"sdk_version": Version,
		"monitors":    len(m.Kinds()),
	})
	return nil
}

// snapshotMonitors returns the registered monitors in registration order.
func (m *Manager) snapshotMonitors() []Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Monitor, 0, len(m.order))
	for _, kind := range m.order {
		out = append(out, m.entries[kind])
	}
	return out
}

// emit serializes params and hands them to the sink under the configured
// event name. Marshal failures are logged and dropped; the sink has no error
// channel back into the core.
func (m *Manager) emit(params map[string]any) {
	payload, err := json.Marshal(params)
	if err != nil {
		m.logger.Error("failed to encode stats payload", map[string]interface{}{
			"error":   err.Error(),
			"manager": m.id,
		})
		return
	}
	m.sink.AddCustomStatEvent(m.cc.EventName(), string(payload))
}
