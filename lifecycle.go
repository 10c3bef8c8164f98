package vitals

import "sync"

// AppState is a ready-made Application + LifecycleSource for hosts that have
// no lifecycle system of their own. The host reports transitions through
// Dispatch; AppState tracks the foreground flag and fans events out to
// observers.
//
// Dispatch must be called from a single goroutine at a time: observers are
// guaranteed to receive events serially, in dispatch order. Foreground is
// safe to read from any goroutine.
type AppState struct {
	name string

	mu         sync.RWMutex
	observers  []AppObserver
	foreground bool
}

// NewAppState creates an application handle with the given name, initially
// backgrounded.
func NewAppState(name string) *AppState {
	return &AppState{name: name}
}

// Name returns the application name.
func (a *AppState) Name() string { return a.name }

// Foreground reports whether the last dispatched transition left the
// application visible/interactive.
func (a *AppState) Foreground() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.foreground
}

// Subscribe registers an observer for future lifecycle events. Observers
// live for the process lifetime; there is no unsubscribe.
func (a *AppState) Subscribe(fn AppObserver) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.observers = append(a.observers, fn)
	a.mu.Unlock()
}

// Dispatch records the transition and then notifies observers, in
// subscription order. The foreground flag is updated before observers run,
// so code reacting to AppActive already sees Foreground() == true.
func (a *AppState) Dispatch(ev AppEvent) {
	a.mu.Lock()
	switch ev {
	case AppActive:
		a.foreground = true
	case AppBackground, AppStop:
		a.foreground = false
	}
	obs := make([]AppObserver, len(a.observers))
	copy(obs, a.observers)
	a.mu.Unlock()

	for _, fn := range obs {
		fn(ev)
	}
}
