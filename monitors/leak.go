package monitors

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/probeworks/vitals"
)

// KindLeak tags the retained-object leak monitor.
const KindLeak vitals.Kind = "leak"

// DefaultLeakMaxAge is how long a watched object may stay alive before the
// monitor counts it as a leak suspect.
const DefaultLeakMaxAge = 5 * time.Minute

// LeakConfig configures the leak monitor.
type LeakConfig struct {
	// MaxAge is the age after which a still-alive watched object becomes a
	// suspect. Zero falls back to DefaultLeakMaxAge.
	MaxAge time.Duration
}

// Kind implements vitals.MonitorConfig.
func (LeakConfig) Kind() vitals.Kind { return KindLeak }

// NewMonitor implements vitals.MonitorConfig.
func (LeakConfig) NewMonitor() (vitals.Monitor, error) {
	return &LeakMonitor{
		BaseMonitor: vitals.NewBaseMonitor(KindLeak),
		watched:     make(map[uint64]time.Time),
	}, nil
}

// LeakMonitor tracks objects the host expects to become garbage. Watch
// registers a finalizer on the object; as long as the finalizer has not run
// the object counts as alive, and once it outlives MaxAge it is reported as
// a suspect. The monitor itself never retains the object.
type LeakMonitor struct {
	vitals.BaseMonitor

	mu      sync.Mutex
	maxAge  time.Duration
	clock   vitals.Clock
	nextID  uint64
	watched map[uint64]time.Time
	freed   uint64
}

// Init implements vitals.Monitor.
func (m *LeakMonitor) Init(cc *vitals.CommonConfig, cfg vitals.MonitorConfig) error {
	lc, ok := cfg.(LeakConfig)
	if !ok {
		return fmt.Errorf("unexpected config type %T for %s monitor", cfg, KindLeak)
	}

	m.mu.Lock()
	m.maxAge = lc.MaxAge
	if m.maxAge <= 0 {
		m.maxAge = DefaultLeakMaxAge
	}
	m.clock = cc.Clock()
	m.mu.Unlock()

	m.MarkInitialized(cc)
	return nil
}

// Watch registers obj for leak tracking. obj must be a non-nil pointer; the
// monitor notices collection through a finalizer, so the object must not
// carry a finalizer of its own.
func (m *LeakMonitor) Watch(obj any) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("leak monitor can only watch non-nil pointers, got %T", obj)
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.watched[id] = m.now()
	m.mu.Unlock()

	runtime.SetFinalizer(obj, func(any) { m.release(id) })
	return nil
}

func (m *LeakMonitor) release(id uint64) {
	m.mu.Lock()
	if _, ok := m.watched[id]; ok {
		delete(m.watched, id)
		m.freed++
	}
	m.mu.Unlock()
}

func (m *LeakMonitor) now() time.Time {
	if m.clock != nil {
		return m.clock.Now()
	}
	return time.Now()
}

// LogParams implements vitals.Monitor.
func (m *LeakMonitor) LogParams() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	suspects := 0
	for _, since := range m.watched {
		if now.Sub(since) >= m.maxAge {
			suspects++
		}
	}
	return map[string]any{
		"leak_tracked":  len(m.watched),
		"leak_freed":    m.freed,
		"leak_suspects": suspects,
	}
}
