package monitors

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/probeworks/vitals"
)

type testApp struct {
	name string
	fg   bool
}

func (a *testApp) Name() string     { return a.name }
func (a *testApp) Foreground() bool { return a.fg }

// stepClock is a manually advanced clock.
type stepClock struct {
	mu sync.Mutex
	at time.Time
}

func newStepClock() *stepClock {
	return &stepClock{at: time.Unix(1700000000, 0)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

func newTestConfig(t *testing.T, opts ...vitals.CommonOption) *vitals.CommonConfig {
	t.Helper()
	cc, err := vitals.NewCommonConfig(&testApp{name: "monitors-test"}, opts...)
	require.NoError(t, err)
	return cc
}
