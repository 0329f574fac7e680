package scheduler

import "sync"

// Countdown counts whole seconds down to the next refresh.
type Countdown struct {
	mu        sync.Mutex
	interval  int
	remaining int
}

func NewCountdown(intervalSeconds int) *Countdown {
	if intervalSeconds <= 0 {
		intervalSeconds = 1
	}
	return &Countdown{interval: intervalSeconds, remaining: intervalSeconds}
}

// Tick consumes one second. It reports true when the countdown reached zero,
// in which case it has already been reset to the full interval.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 1 {
		c.remaining = c.interval
		return true
	}
	c.remaining--
	return false
}

func (c *Countdown) Reset() {
	c.mu.Lock()
	c.remaining = c.interval
	c.mu.Unlock()
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) Interval() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// SetInterval changes the period and restarts the countdown.
func (c *Countdown) SetInterval(seconds int) {
	if seconds <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = seconds
	c.remaining = seconds
	c.mu.Unlock()
}
