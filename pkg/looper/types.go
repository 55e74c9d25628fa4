package looper

import (
	"sync"
	"time"
)

// Handler is invoked when a looper is due.
type Handler interface {
	// Loop runs the looper and returns the delay until the next run.
	// A negative delay is treated as zero.
	Loop() time.Duration
}

// LoopFunc is the func form of Handler.
type LoopFunc func() time.Duration

// Loop implements Handler.
func (f LoopFunc) Loop() time.Duration {
	return f()
}

// TimeSource provides the time for scheduling.
type TimeSource interface {
	Time() time.Time
}

// TimeFunc is the func form of TimeSource.
type TimeFunc func() time.Time

// Time implements TimeSource.
func (f TimeFunc) Time() time.Time {
	return f()
}

// SystemTime uses the system clock.
var SystemTime TimeSource = TimeFunc(time.Now)

// ManualClock is a TimeSource which only moves when told to.
type ManualClock struct {
	now  time.Time
	lock sync.Mutex
}

// NewManualClock creates a ManualClock starting at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Time implements TimeSource.
func (c *ManualClock) Time() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// State is the state of a looper.
type State byte

// Looper states. The Executed states only exist while the looper's own
// handler is running.
const (
	Disabled State = iota
	Enabled
	ExecutedEnabled
	ExecutedDisabled
)

// IsEnabled indicates the looper is (or will stay) scheduled.
func (s State) IsEnabled() bool {
	return s == Enabled || s == ExecutedEnabled
}

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	case ExecutedEnabled:
		return "executed-enabled"
	case ExecutedDisabled:
		return "executed-disabled"
	}
	return "unknown"
}
