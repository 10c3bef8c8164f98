// Package leakmaker provides deliberate-leak producers for exercising the
// vitals leak and heap monitors in tests and demos. Every StartLeak call
// parks a freshly allocated object in a package-level retained list, so the
// memory stays reachable until Reset.
//
// This is test scaffolding: never import it from production code.
package leakmaker

import (
	"strings"
	"sync"
)

// DefaultLeakSize is the per-leak allocation size (512 KiB), matching the
// classic demo leak granularity.
const DefaultLeakSize = 512 << 10

var (
	mu       sync.Mutex
	retained []any
)

// Maker produces one retained object per StartLeak call.
type Maker interface {
	StartLeak()
}

// StringMaker retains large strings.
type StringMaker struct {
	// Size in bytes per leaked string; zero means DefaultLeakSize.
	Size int
}

// StartLeak allocates one string and retains it.
func (m *StringMaker) StartLeak() {
	size := m.Size
	if size <= 0 {
		size = DefaultLeakSize
	}
	retain(strings.Repeat("x", size))
}

// SliceMaker retains large byte slices.
type SliceMaker struct {
	// Len in bytes per leaked slice; zero means DefaultLeakSize.
	Len int
}

// StartLeak allocates one slice, touches every page, and retains it.
func (m *SliceMaker) StartLeak() {
	n := m.Len
	if n <= 0 {
		n = DefaultLeakSize
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	retain(buf)
}

func retain(obj any) {
	mu.Lock()
	retained = append(retained, obj)
	mu.Unlock()
}

// Retained returns how many leaked objects are currently held.
func Retained() int {
	mu.Lock()
	defer mu.Unlock()
	return len(retained)
}

// Reset drops every retained object so the garbage collector can reclaim
// them. Call it from test cleanup.
func Reset() {
	mu.Lock()
	retained = nil
	mu.Unlock()
}
