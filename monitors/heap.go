package monitors

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/probeworks/vitals"
)

// KindHeap tags the heap statistics monitor.
const KindHeap vitals.Kind = "heap"

// HeapConfig configures the heap monitor. The zero value is valid.
type HeapConfig struct {
	// AllocWatermark, when non-zero, adds a heap_watermark_exceeded flag to
	// the snapshot once HeapAlloc passes this many bytes.
	AllocWatermark uint64
}

// Kind implements vitals.MonitorConfig.
func (HeapConfig) Kind() vitals.Kind { return KindHeap }

// NewMonitor returns the process-wide shared heap monitor. Heap stats are
// global to the process, so every registration shares one instance.
func (HeapConfig) NewMonitor() (vitals.Monitor, error) { return SharedHeap(), nil }

var (
	sharedHeap     *HeapMonitor
	sharedHeapOnce sync.Once
)

// SharedHeap returns the process-wide heap monitor instance.
func SharedHeap() *HeapMonitor {
	sharedHeapOnce.Do(func() {
		sharedHeap = &HeapMonitor{BaseMonitor: vitals.NewBaseMonitor(KindHeap)}
	})
	return sharedHeap
}

// HeapMonitor reports Go heap statistics plus the process RSS.
type HeapMonitor struct {
	vitals.BaseMonitor

	mu        sync.RWMutex
	watermark uint64
}

// Init implements vitals.Monitor.
func (m *HeapMonitor) Init(cc *vitals.CommonConfig, cfg vitals.MonitorConfig) error {
	hc, ok := cfg.(HeapConfig)
	if !ok {
		return fmt.Errorf("unexpected config type %T for %s monitor", cfg, KindHeap)
	}
	m.mu.Lock()
	m.watermark = hc.AllocWatermark
	m.mu.Unlock()

	m.MarkInitialized(cc)
	return nil
}

// LogParams implements vitals.Monitor.
func (m *HeapMonitor) LogParams() map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	params := map[string]any{
		"heap_alloc":   ms.HeapAlloc,
		"heap_sys":     ms.HeapSys,
		"heap_inuse":   ms.HeapInuse,
		"heap_objects": ms.HeapObjects,
		"gc_count":     ms.NumGC,
		"rss":          readRSSBytes(),
	}

	m.mu.RLock()
	watermark := m.watermark
	m.mu.RUnlock()
	if watermark > 0 {
		params["heap_watermark_exceeded"] = ms.HeapAlloc > watermark
	}
	return params
}

// readRSSBytes reads VmRSS from /proc/self/status. Returns 0 where /proc is
// unavailable.
func readRSSBytes() uint64 {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return kb * 1024
	}
	return 0
}
