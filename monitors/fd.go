package monitors

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/probeworks/vitals"
)

// KindFD tags the file descriptor monitor.
const KindFD vitals.Kind = "fd"

// FDConfig configures the file descriptor monitor. The zero value is valid.
type FDConfig struct {
	// Watermark, when non-zero, adds an fd_watermark_exceeded flag to the
	// snapshot once the open descriptor count passes it.
	Watermark int
}

// Kind implements vitals.MonitorConfig.
func (FDConfig) Kind() vitals.Kind { return KindFD }

// NewMonitor implements vitals.MonitorConfig.
func (FDConfig) NewMonitor() (vitals.Monitor, error) {
	return &FDMonitor{BaseMonitor: vitals.NewBaseMonitor(KindFD)}, nil
}

// FDMonitor reports the number of open file descriptors, read from
// /proc/self/fd, alongside the process soft descriptor limit. On platforms
// without /proc the snapshot reports fd_supported=false.
type FDMonitor struct {
	vitals.BaseMonitor

	mu        sync.RWMutex
	watermark int
}

// Init implements vitals.Monitor.
func (m *FDMonitor) Init(cc *vitals.CommonConfig, cfg vitals.MonitorConfig) error {
	fc, ok := cfg.(FDConfig)
	if !ok {
		return fmt.Errorf("unexpected config type %T for %s monitor", cfg, KindFD)
	}
	m.mu.Lock()
	m.watermark = fc.Watermark
	m.mu.Unlock()

	m.MarkInitialized(cc)
	return nil
}

// LogParams implements vitals.Monitor.
func (m *FDMonitor) LogParams() map[string]any {
	count, supported := countOpenFDs()
	params := map[string]any{
		"fd_open":      count,
		"fd_supported": supported,
	}

	if supported {
		if limit, ok := softFDLimit(); ok {
			params["fd_soft_limit"] = limit
		}
	}

	m.mu.RLock()
	watermark := m.watermark
	m.mu.RUnlock()
	if supported && watermark > 0 {
		params["fd_watermark_exceeded"] = count > watermark
	}
	return params
}

func countOpenFDs() (int, bool) {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return 0, false
	}
	return len(entries), true
}

// softFDLimit returns the soft RLIMIT_NOFILE value for the process.
func softFDLimit() (uint64, bool) {
	var rlim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlim); err != nil {
		return 0, false
	}
	return rlim.Cur, true
}
