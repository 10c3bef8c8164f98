package sinks

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/probeworks/vitals"
)

// Dedup suppresses an event when it is byte-identical to the immediately
// preceding one (same name, same payload). Monitors that report unchanged
// stats across registrations stop repeating themselves downstream. A nil
// next degrades to the no-op sink.
func Dedup(next vitals.TelemetrySink) vitals.TelemetrySink {
	if next == nil {
		next = &vitals.NoOpSink{}
	}
	return &dedupSink{next: next}
}

type dedupSink struct {
	next vitals.TelemetrySink
	last atomic.Uint64
}

// AddCustomStatEvent implements vitals.TelemetrySink.
func (d *dedupSink) AddCustomStatEvent(name string, payloadJSON string) {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(payloadJSON)
	sum := h.Sum64()
	if sum == 0 {
		sum = 1 // zero marks "nothing seen yet"
	}

	if d.last.Swap(sum) == sum {
		return
	}
	d.next.AddCustomStatEvent(name, payloadJSON)
}
