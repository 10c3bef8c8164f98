package vitals

import "sync/atomic"

// Gate states for the aggregated flush. The gate starts pending and
// transitions to done exactly once per subscription; there is no reset.
const (
	flushPending int32 = iota
	flushDone
)

// flushSubscription ties a one-shot flush gate to a single lifecycle
// subscription. The Manager creates one in OnApplicationCreate; it lives for
// the process lifetime.
type flushSubscription struct {
	manager *Manager
	state   atomic.Int32
}

// observe is the lifecycle callback. Only an activation can fire the flush,
// and only the goroutine that wins the pending->done transition performs it,
// so concurrent deliveries cannot double-flush.
func (s *flushSubscription) observe(ev AppEvent) {
	if ev != AppActive {
		return
	}
	if !s.state.CompareAndSwap(flushPending, flushDone) {
		return
	}
	s.flush()
}

// flush merges every registered monitor's snapshot into one flat map, in
// registration order, and emits it as a single event. A later-registered
// monitor wins when two monitors report the same key.
func (s *flushSubscription) flush() {
	m := s.manager

	monitors := m.snapshotMonitors()
	merged := make(map[string]any)
	for _, mon := range monitors {
		for k, v := range mon.LogParams() {
			merged[k] = v
		}
	}

	m.emit(merged)
	m.logger.Info("aggregated stats flushed", map[string]interface{}{
		"manager":  m.id,
		"monitors": len(monitors),
		"keys":     len(merged),
	})
}
