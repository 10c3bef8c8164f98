package vitals

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeApp is a controllable Application for tests.
type fakeApp struct {
	name string

	mu         sync.Mutex
	foreground bool
}

func (a *fakeApp) Name() string { return a.name }

func (a *fakeApp) Foreground() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.foreground
}

func (a *fakeApp) setForeground(v bool) {
	a.mu.Lock()
	a.foreground = v
	a.mu.Unlock()
}

// sinkEvent is one captured emission.
type sinkEvent struct {
	name    string
	payload string
}

// captureSink records every emitted event.
type captureSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (s *captureSink) AddCustomStatEvent(name string, payloadJSON string) {
	s.mu.Lock()
	s.events = append(s.events, sinkEvent{name: name, payload: payloadJSON})
	s.mu.Unlock()
}

func (s *captureSink) Events() []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sinkEvent, len(s.events))
	copy(out, s.events)
	return out
}

// stubLifecycle hands dispatched events straight to subscribers.
type stubLifecycle struct {
	mu        sync.Mutex
	observers []AppObserver
}

func (s *stubLifecycle) Subscribe(fn AppObserver) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *stubLifecycle) dispatch(ev AppEvent) {
	s.mu.Lock()
	obs := make([]AppObserver, len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(ev)
	}
}

func (s *stubLifecycle) observerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// testMonitor counts Init calls and serves canned params.
type testMonitor struct {
	BaseMonitor
	params    map[string]any
	initErr   error
	initCalls atomic.Int32
}

func newTestMonitor(kind Kind, params map[string]any) *testMonitor {
	return &testMonitor{BaseMonitor: NewBaseMonitor(kind), params: params}
}

func (m *testMonitor) Init(cc *CommonConfig, cfg MonitorConfig) error {
	m.initCalls.Add(1)
	if m.initErr != nil {
		return m.initErr
	}
	m.MarkInitialized(cc)
	return nil
}

func (m *testMonitor) LogParams() map[string]any { return m.params }

// testConfig drives the factory path. With a fixed monitor it behaves like a
// shared-instance factory; otherwise it constructs fresh monitors and records
// them.
type testConfig struct {
	kind       Kind
	monitor    *testMonitor
	factoryErr error
	nilMonitor bool

	mu      sync.Mutex
	created []*testMonitor
}

func (c *testConfig) Kind() Kind { return c.kind }

func (c *testConfig) NewMonitor() (Monitor, error) {
	if c.factoryErr != nil {
		return nil, c.factoryErr
	}
	if c.nilMonitor {
		return nil, nil
	}
	if c.monitor != nil {
		return c.monitor, nil
	}
	mon := newTestMonitor(c.kind, map[string]any{"kind": string(c.kind)})
	c.mu.Lock()
	c.created = append(c.created, mon)
	c.mu.Unlock()
	return mon, nil
}

func (c *testConfig) createdMonitors() []*testMonitor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*testMonitor, len(c.created))
	copy(out, c.created)
	return out
}

// newTestManager builds a Manager around fresh fixtures.
func newTestManager(t *testing.T) (*Manager, *fakeApp, *captureSink, *stubLifecycle) {
	t.Helper()
	app := &fakeApp{name: "test-app"}
	sink := &captureSink{}
	src := &stubLifecycle{}
	cc, err := NewCommonConfig(app, WithSink(sink), WithLifecycle(src))
	require.NoError(t, err)
	mgr, err := New(cc)
	require.NoError(t, err)
	return mgr, app, sink, src
}

func TestNew(t *testing.T) {
	t.Run("requires common config", func(t *testing.T) {
		mgr, err := New(nil)
		assert.Nil(t, mgr)
		assert.ErrorIs(t, err, ErrNilCommonConfig)
		assert.True(t, IsConfigError(err))
	})

	t.Run("requires application handle", func(t *testing.T) {
		mgr, err := New(&CommonConfig{})
		assert.Nil(t, mgr)
		assert.ErrorIs(t, err, ErrNilApplication)
	})

	t.Run("ids are unique per instance", func(t *testing.T) {
		app := &fakeApp{name: "svc"}
		cc, err := NewCommonConfig(app)
		require.NoError(t, err)

		a, err := New(cc)
		require.NoError(t, err)
		b, err := New(cc)
		require.NoError(t, err)

		assert.NotEqual(t, a.ID(), b.ID())
		assert.Contains(t, a.ID(), "svc-")
		assert.Same(t, cc, a.CommonConfig())
	})
}

func TestAddMonitorConfig(t *testing.T) {
	t.Run("registers and initializes once", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		mon := newTestMonitor("heap", map[string]any{"heap_alloc": 1})
		cfg := &testConfig{kind: "heap", monitor: mon}

		require.NoError(t, mgr.AddMonitorConfig(cfg))

		assert.True(t, mgr.Initialized("heap"))
		assert.Equal(t, int32(1), mon.initCalls.Load())
		assert.Equal(t, []Kind{"heap"}, mgr.Kinds())
	})

	t.Run("duplicate registration is a no-op", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		mon := newTestMonitor("heap", nil)
		require.NoError(t, mgr.AddMonitorConfig(&testConfig{kind: "heap", monitor: mon}))

		other := newTestMonitor("heap", nil)
		require.NoError(t, mgr.AddMonitorConfig(&testConfig{kind: "heap", monitor: other}))

		got, ok := mgr.Monitor("heap")
		require.True(t, ok)
		assert.Same(t, mon, got)
		assert.Equal(t, int32(1), mon.initCalls.Load())
		assert.Equal(t, int32(0), other.initCalls.Load())
		assert.Equal(t, []Kind{"heap"}, mgr.Kinds())
	})

	t.Run("nil config is a configuration error", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		err := mgr.AddMonitorConfig(nil)
		assert.ErrorIs(t, err, ErrInvalidMonitorConfig)
		assert.True(t, IsConfigError(err))
	})

	t.Run("empty kind is a configuration error and registry stays unchanged", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		err := mgr.AddMonitorConfig(&testConfig{kind: ""})
		assert.ErrorIs(t, err, ErrInvalidMonitorConfig)
		assert.Empty(t, mgr.Kinds())
	})

	t.Run("factory error leaves registry unchanged", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		boom := errors.New("boom")
		err := mgr.AddMonitorConfig(&testConfig{kind: "heap", factoryErr: boom})
		assert.ErrorIs(t, err, boom)

		var merr *MonitorError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, Kind("heap"), merr.Kind)
		assert.Empty(t, mgr.Kinds())
	})

	t.Run("nil monitor from factory is rejected", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		err := mgr.AddMonitorConfig(&testConfig{kind: "heap", nilMonitor: true})
		assert.ErrorIs(t, err, ErrNilMonitor)
		assert.Empty(t, mgr.Kinds())
	})

	t.Run("init failure removes the entry and can be retried", func(t *testing.T) {
		mgr, _, _, _ := newTestManager(t)
		bad := newTestMonitor("heap", nil)
		bad.initErr = errors.New("init blew up")
		err := mgr.AddMonitorConfig(&testConfig{kind: "heap", monitor: bad})
		require.Error(t, err)
		assert.Empty(t, mgr.Kinds())
		assert.False(t, mgr.Initialized("heap"))

		good := newTestMonitor("heap", nil)
		require.NoError(t, mgr.AddMonitorConfig(&testConfig{kind: "heap", monitor: good}))
		assert.True(t, mgr.Initialized("heap"))
	})
}

func TestAddMonitorConfigConcurrent(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	cfg := &testConfig{kind: "heap"}

	const goroutines = 32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			_ = mgr.AddMonitorConfig(cfg)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, []Kind{"heap"}, mgr.Kinds())

	stored, ok := mgr.Monitor("heap")
	require.True(t, ok)

	var inits int32
	var survivor *testMonitor
	for _, mon := range cfg.createdMonitors() {
		inits += mon.initCalls.Load()
		if Monitor(mon) == stored {
			survivor = mon
		}
	}
	assert.Equal(t, int32(1), inits, "exactly one monitor must be initialized")
	require.NotNil(t, survivor, "the stored instance must be one the factory created")
	assert.Equal(t, int32(1), survivor.initCalls.Load())
}

func TestRegistrationEmission(t *testing.T) {
	t.Run("foregrounded app emits the monitor snapshot", func(t *testing.T) {
		mgr, app, sink, _ := newTestManager(t)
		app.setForeground(true)

		mon := newTestMonitor("heap", map[string]any{"heap_alloc": float64(42)})
		require.NoError(t, mgr.AddMonitorConfig(&testConfig{kind: "heap", monitor: mon}))

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, DefaultEventName, events[0].name)
		assert.JSONEq(t, `{"heap_alloc":42}`, events[0].payload)
	})

	t.Run("backgrounded app emits nothing", func(t *testing.T) {
		mgr, app, sink, _ := newTestManager(t)
		app.setForeground(false)

		mon := newTestMonitor("heap", map[string]any{"heap_alloc": 42})
		require.NoError(t, mgr.AddMonitorConfig(&testConfig{kind: "heap", monitor: mon}))

		assert.Empty(t, sink.Events())
	})
}

func TestMonitorLookup(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	got, ok := mgr.Monitor("heap")
	assert.Nil(t, got)
	assert.False(t, ok)
	assert.False(t, mgr.Initialized("heap"))

	mon := newTestMonitor("heap", nil)
	require.NoError(t, mgr.AddMonitorConfig(&testConfig{kind: "heap", monitor: mon}))

	got, ok = mgr.Monitor("heap")
	require.True(t, ok)
	assert.Same(t, mon, got)
	assert.True(t, mgr.Initialized("heap"))
}

func TestKindsOrder(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	for _, kind := range []Kind{"heap", "goroutine", "fd"} {
		require.NoError(t, mgr.AddMonitorConfig(&testConfig{kind: kind, monitor: newTestMonitor(kind, nil)}))
	}
	assert.Equal(t, []Kind{"heap", "goroutine", "fd"}, mgr.Kinds())
}

func TestOnApplicationCreate(t *testing.T) {
	t.Run("subscribes exactly once", func(t *testing.T) {
		mgr, _, _, src := newTestManager(t)

		require.NoError(t, mgr.OnApplicationCreate())
		assert.Equal(t, 1, src.observerCount())

		err := mgr.OnApplicationCreate()
		assert.ErrorIs(t, err, ErrAlreadyStarted)
		assert.True(t, IsStateError(err))
		assert.Equal(t, 1, src.observerCount())
	})

	t.Run("fails without a lifecycle source", func(t *testing.T) {
		app := &fakeApp{name: "bare"}
		cc, err := NewCommonConfig(app)
		require.NoError(t, err)
		mgr, err := New(cc)
		require.NoError(t, err)

		assert.ErrorIs(t, mgr.OnApplicationCreate(), ErrNoLifecycleSource)
	})
}
