package looper

import "time"

// TickHandler is called when a Timer fires.
type TickHandler interface {
	Tick()
}

// TickFunc is the func form of TickHandler.
type TickFunc func()

// Tick implements TickHandler.
func (f TickFunc) Tick() {
	f()
}

// Timer fires Tick periodically from a scheduler slot.
type Timer struct {
	Tick TickHandler

	scheduler *Scheduler
	slot      int
	interval  time.Duration
	enabled   bool
}

// Bind registers the timer on a scheduler. It starts enabled and fires on
// the first pass until Init is called.
func (t *Timer) Bind(s *Scheduler) *Timer {
	t.scheduler = s
	t.slot = s.Register(t)
	t.enabled = true
	return t
}

// Slot returns the slot of the timer.
func (t *Timer) Slot() int {
	return t.slot
}

// Init sets interval and enabled state.
func (t *Timer) Init(interval time.Duration, enabled bool) {
	t.interval = interval
	t.SetEnabled(enabled)
}

// Loop implements Handler.
func (t *Timer) Loop() time.Duration {
	if t.enabled && t.Tick != nil {
		t.Tick.Tick()
	}
	return t.interval
}

// SetEnabled enables or disables the timer.
func (t *Timer) SetEnabled(enabled bool) {
	t.enabled = enabled
	if t.scheduler != nil {
		t.scheduler.SetEnabled(t.slot, enabled)
	}
}

// Enable enables the timer, it fires on the next pass.
func (t *Timer) Enable() {
	t.SetEnabled(true)
}

// Disable disables the timer.
func (t *Timer) Disable() {
	t.SetEnabled(false)
}

// IsEnabled indicates whether the timer is enabled.
func (t *Timer) IsEnabled() bool {
	return t.enabled
}

// SetInterval changes the interval, effective after the next fire.
func (t *Timer) SetInterval(interval time.Duration) {
	t.interval = interval
}

// Interval returns the interval.
func (t *Timer) Interval() time.Duration {
	return t.interval
}
