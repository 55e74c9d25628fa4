package looper

import (
	"fmt"
	"time"
)

type looper struct {
	handler Handler
	nextDue time.Time
	state   State
	// lastPass is the pass the looper ran in.
	lastPass uint64
}

// Scheduler runs loopers in the order of their due time.
type Scheduler struct {
	ts      TimeSource
	now     time.Time
	loopers []looper
	// order holds slots of active loopers in ascending due time,
	// only the first size entries are valid.
	order []int
	size  int
	pass  uint64
}

// New creates a Scheduler with room for capacity loopers.
func New(ts TimeSource, capacity int) *Scheduler {
	if ts == nil {
		ts = SystemTime
	}
	return &Scheduler{
		ts:      ts,
		loopers: make([]looper, 0, capacity),
		order:   make([]int, capacity),
	}
}

// Register adds an enabled looper which is due immediately and returns
// its slot. Loopers must be registered before the scheduler runs.
func (s *Scheduler) Register(h Handler) int {
	slot := len(s.loopers)
	if slot >= cap(s.loopers) {
		panic(fmt.Sprintf("looper: capacity %d exceeded", cap(s.loopers)))
	}
	s.loopers = append(s.loopers, looper{handler: h, nextDue: s.now, state: Enabled})
	s.order[s.size] = slot
	s.size++
	return slot
}

// Cap returns the number of slots.
func (s *Scheduler) Cap() int {
	return cap(s.loopers)
}

// Len returns the number of registered loopers.
func (s *Scheduler) Len() int {
	return len(s.loopers)
}

// Now returns the time sampled by the last pass.
func (s *Scheduler) Now() time.Time {
	return s.now
}

// State gets the state of a looper.
func (s *Scheduler) State(slot int) State {
	return s.loopers[slot].state
}

// NextDue gets the next due time of a looper.
func (s *Scheduler) NextDue(slot int) time.Time {
	return s.loopers[slot].nextDue
}

// Active returns the slots of active loopers in the order they run.
func (s *Scheduler) Active() []int {
	return append([]int(nil), s.order[:s.size]...)
}

// Pass runs all loopers which are due and returns how many ran.
// A looper runs at most once per pass, a looper asking for no delay
// runs again in the next pass.
func (s *Scheduler) Pass() int {
	s.now = s.ts.Time()
	s.pass++
	var count int
	for s.size > 0 {
		slot := s.order[0]
		l := &s.loopers[slot]
		if l.nextDue.After(s.now) || l.lastPass == s.pass {
			break
		}
		l.state, l.lastPass = ExecutedEnabled, s.pass
		delay := l.handler.Loop()
		if delay < 0 {
			delay = 0
		}
		l.nextDue = s.now.Add(delay)
		count++

		// The handler may have changed the order, locate the looper again.
		pos := s.position(slot)
		if l.state == ExecutedEnabled {
			for pos+1 < s.size && !s.loopers[s.order[pos+1]].nextDue.After(l.nextDue) {
				s.order[pos] = s.order[pos+1]
				pos++
			}
			s.order[pos] = slot
			l.state = Enabled
		} else {
			s.remove(pos)
			l.state = Disabled
		}
	}
	return count
}

// Enable schedules a looper to run immediately.
// If the looper disabled itself in its running handler, it simply
// stays scheduled.
func (s *Scheduler) Enable(slot int) {
	l := &s.loopers[slot]
	switch l.state {
	case Enabled, ExecutedEnabled:
		return
	case ExecutedDisabled:
		l.state = ExecutedEnabled
		return
	}
	l.state = Enabled
	l.nextDue = s.now
	copy(s.order[1:s.size+1], s.order[:s.size])
	s.order[0] = slot
	s.size++
}

// Disable stops a looper. If the looper is running, it's removed when its
// handler returns.
func (s *Scheduler) Disable(slot int) {
	l := &s.loopers[slot]
	switch l.state {
	case Disabled, ExecutedDisabled:
		return
	case ExecutedEnabled:
		l.state = ExecutedDisabled
		return
	}
	l.state = Disabled
	s.remove(s.position(slot))
}

// SetEnabled enables or disables a looper.
func (s *Scheduler) SetEnabled(slot int, enabled bool) {
	if enabled {
		s.Enable(slot)
	} else {
		s.Disable(slot)
	}
}

func (s *Scheduler) position(slot int) int {
	for i := 0; i < s.size; i++ {
		if s.order[i] == slot {
			return i
		}
	}
	panic(fmt.Sprintf("looper: slot %d not scheduled", slot))
}

func (s *Scheduler) remove(pos int) {
	copy(s.order[pos:s.size-1], s.order[pos+1:s.size])
	s.size--
}
