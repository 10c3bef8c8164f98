package monitors

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/probeworks/vitals"
)

// KindEventLoop tags the scheduler latency monitor.
const KindEventLoop vitals.Kind = "eventloop"

// Defaults for EventLoopConfig.
const (
	DefaultSampleInterval = 250 * time.Millisecond
	DefaultStallThreshold = 100 * time.Millisecond
)

// EventLoopConfig configures the scheduler latency monitor. Zero fields fall
// back to the package defaults.
type EventLoopConfig struct {
	// SampleInterval is the tick interval the sampler expects to be woken at.
	SampleInterval time.Duration

	// StallThreshold is the extra delay beyond SampleInterval that counts a
	// tick as a stall.
	StallThreshold time.Duration
}

// Kind implements vitals.MonitorConfig.
func (EventLoopConfig) Kind() vitals.Kind { return KindEventLoop }

// NewMonitor implements vitals.MonitorConfig.
func (EventLoopConfig) NewMonitor() (vitals.Monitor, error) {
	return &EventLoopMonitor{
		BaseMonitor: vitals.NewBaseMonitor(KindEventLoop),
		stop:        make(chan struct{}),
	}, nil
}

// EventLoopMonitor measures how late the runtime delivers ticker wakeups, a
// proxy for scheduler pressure. Init starts a background sampler that runs
// for the process lifetime; Stop exists for tests.
type EventLoopMonitor struct {
	vitals.BaseMonitor

	samples    atomic.Int64
	stalls     atomic.Int64
	totalDrift atomic.Int64 // nanoseconds
	maxDrift   atomic.Int64 // nanoseconds

	stop     chan struct{}
	stopOnce sync.Once
}

// Init implements vitals.Monitor and starts the sampler goroutine.
func (m *EventLoopMonitor) Init(cc *vitals.CommonConfig, cfg vitals.MonitorConfig) error {
	ec, ok := cfg.(EventLoopConfig)
	if !ok {
		return fmt.Errorf("unexpected config type %T for %s monitor", cfg, KindEventLoop)
	}
	if ec.SampleInterval <= 0 {
		ec.SampleInterval = DefaultSampleInterval
	}
	if ec.StallThreshold <= 0 {
		ec.StallThreshold = DefaultStallThreshold
	}

	m.MarkInitialized(cc)
	go m.sample(ec.SampleInterval, ec.StallThreshold)
	return nil
}

func (m *EventLoopMonitor) sample(interval, threshold time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := time.Now()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			// Re-check stop so a closed gate always wins over a ready tick.
			select {
			case <-m.stop:
				return
			default:
			}
			drift := now.Sub(prev) - interval
			if drift < 0 {
				drift = 0
			}
			prev = now

			m.samples.Add(1)
			m.totalDrift.Add(int64(drift))
			if drift > threshold {
				m.stalls.Add(1)
			}
			for {
				cur := m.maxDrift.Load()
				if int64(drift) <= cur || m.maxDrift.CompareAndSwap(cur, int64(drift)) {
					break
				}
			}
		}
	}
}

// Stop ends the background sampler. Snapshots remain readable afterwards.
func (m *EventLoopMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// LogParams implements vitals.Monitor.
func (m *EventLoopMonitor) LogParams() map[string]any {
	samples := m.samples.Load()
	params := map[string]any{
		"eventloop_samples":      samples,
		"eventloop_stalls":       m.stalls.Load(),
		"eventloop_max_drift_ms": float64(m.maxDrift.Load()) / float64(time.Millisecond),
	}
	if samples > 0 {
		params["eventloop_avg_drift_ms"] = float64(m.totalDrift.Load()) / float64(samples) / float64(time.Millisecond)
	}
	return params
}
