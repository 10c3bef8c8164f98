package monitors

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/probeworks/vitals"
)

// KindGoroutine tags the goroutine count monitor.
const KindGoroutine vitals.Kind = "goroutine"

// GoroutineConfig configures the goroutine monitor. The zero value is valid.
type GoroutineConfig struct {
	// Watermark, when non-zero, adds a goroutine_watermark_exceeded flag to
	// the snapshot once the goroutine count passes it. Useful as a cheap
	// goroutine-leak tripwire.
	Watermark int
}

// Kind implements vitals.MonitorConfig.
func (GoroutineConfig) Kind() vitals.Kind { return KindGoroutine }

// NewMonitor implements vitals.MonitorConfig.
func (GoroutineConfig) NewMonitor() (vitals.Monitor, error) {
	return &GoroutineMonitor{BaseMonitor: vitals.NewBaseMonitor(KindGoroutine)}, nil
}

// GoroutineMonitor reports the live goroutine count.
type GoroutineMonitor struct {
	vitals.BaseMonitor

	mu        sync.RWMutex
	watermark int
}

// Init implements vitals.Monitor.
func (m *GoroutineMonitor) Init(cc *vitals.CommonConfig, cfg vitals.MonitorConfig) error {
	gc, ok := cfg.(GoroutineConfig)
	if !ok {
		return fmt.Errorf("unexpected config type %T for %s monitor", cfg, KindGoroutine)
	}
	m.mu.Lock()
	m.watermark = gc.Watermark
	m.mu.Unlock()

	m.MarkInitialized(cc)
	return nil
}

// LogParams implements vitals.Monitor.
func (m *GoroutineMonitor) LogParams() map[string]any {
	count := runtime.NumGoroutine()
	params := map[string]any{
		"goroutine_count": count,
	}

	m.mu.RLock()
	watermark := m.watermark
	m.mu.RUnlock()
	if watermark > 0 {
		params["goroutine_watermark_exceeded"] = count > watermark
	}
	return params
}
