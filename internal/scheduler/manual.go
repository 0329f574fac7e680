package scheduler

import (
	"sync"
	"time"
)

// ManualTicker is a Ticker whose ticks are delivered by Advance.
type ManualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
	now     time.Time
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time), now: time.Unix(0, 0)}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Advance delivers n ticks, blocking until each one is received.
// It returns early once the ticker has been stopped.
func (m *ManualTicker) Advance(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		if m.Stopped() {
			return delivered
		}
		m.mu.Lock()
		m.now = m.now.Add(time.Second)
		now := m.now
		m.mu.Unlock()

		select {
		case m.ch <- now:
			delivered++
		case <-time.After(time.Second):
			return delivered
		}
	}
	return delivered
}
