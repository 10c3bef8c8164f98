package vitals

import "sync"

// BaseMonitor carries the bookkeeping every monitor needs: the kind tag, the
// initialized flag, and the CommonConfig handle captured at Init. Monitor
// implementations embed it and call MarkInitialized once their own setup
// succeeded.
type BaseMonitor struct {
	kind Kind

	mu   sync.RWMutex
	cc   *CommonConfig
	done bool
}

// NewBaseMonitor creates the embeddable base for a monitor of the given kind.
func NewBaseMonitor(kind Kind) BaseMonitor {
	return BaseMonitor{kind: kind}
}

// Kind returns the monitor's type tag.
func (b *BaseMonitor) Kind() Kind { return b.kind }

// MarkInitialized stores the shared configuration and flips the initialized
// flag. Call it at the end of a successful Init.
func (b *BaseMonitor) MarkInitialized(cc *CommonConfig) {
	b.mu.Lock()
	b.cc = cc
	b.done = true
	b.mu.Unlock()
}

// Initialized reports whether MarkInitialized has run.
func (b *BaseMonitor) Initialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.done
}

// CommonConfig returns the shared configuration captured at Init, or nil
// before initialization.
func (b *BaseMonitor) CommonConfig() *CommonConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cc
}

// Logger returns the shared configuration's logger. Safe to call before
// initialization; it falls back to a no-op.
func (b *BaseMonitor) Logger() Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cc != nil && b.cc.Logger() != nil {
		return b.cc.Logger()
	}
	return &NoOpLogger{}
}
