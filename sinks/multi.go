package sinks

import (
	"golang.org/x/sync/errgroup"

	"github.com/probeworks/vitals"
)

// Multi fans every event out to all given sinks concurrently and waits for
// them before returning, so slow transports overlap instead of queueing
// behind each other. Nil sinks are skipped.
func Multi(targets ...vitals.TelemetrySink) vitals.TelemetrySink {
	out := make([]vitals.TelemetrySink, 0, len(targets))
	for _, s := range targets {
		if s != nil {
			out = append(out, s)
		}
	}
	return &multiSink{targets: out}
}

type multiSink struct {
	targets []vitals.TelemetrySink
}

// AddCustomStatEvent implements vitals.TelemetrySink.
func (m *multiSink) AddCustomStatEvent(name string, payloadJSON string) {
	var g errgroup.Group
	for _, s := range m.targets {
		s := s
		g.Go(func() error {
			s.AddCustomStatEvent(name, payloadJSON)
			return nil
		})
	}
	_ = g.Wait()
}
