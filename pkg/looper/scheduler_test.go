package looper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type trace struct {
	calls []string
}

func (tr *trace) looper(name string, d time.Duration, fn func()) Handler {
	return LoopFunc(func() time.Duration {
		tr.calls = append(tr.calls, name)
		if fn != nil {
			fn()
		}
		return d
	})
}

func (tr *trace) take() []string {
	calls := tr.calls
	tr.calls = nil
	return calls
}

func newClock() *ManualClock {
	return NewManualClock(time.Unix(1000, 0))
}

func TestSchedulerOrdering(t *testing.T) {
	clock := newClock()
	s := New(clock, 3)
	tr := &trace{}
	s.Register(tr.looper("t3", 30*time.Millisecond, nil))
	s.Register(tr.looper("t1", 10*time.Millisecond, nil))
	s.Register(tr.looper("t2", 20*time.Millisecond, nil))
	require.Equal(t, 3, s.Len())
	require.Equal(t, 3, s.Cap())

	require.Equal(t, 3, s.Pass())
	require.Equal(t, []string{"t3", "t1", "t2"}, tr.take())
	require.Equal(t, []int{1, 2, 0}, s.Active())

	require.Equal(t, 0, s.Pass())
	require.Empty(t, tr.take())

	clock.Advance(10 * time.Millisecond)
	require.Equal(t, 1, s.Pass())
	require.Equal(t, []string{"t1"}, tr.take())

	clock.Advance(20 * time.Millisecond)
	s.Pass()
	require.Equal(t, []string{"t2", "t1", "t3"}, tr.take())
	require.Equal(t, clock.Time().Add(10*time.Millisecond), s.NextDue(1))
}

func TestSchedulerEqualDueKeepsOrder(t *testing.T) {
	clock := newClock()
	s := New(clock, 2)
	tr := &trace{}
	s.Register(tr.looper("a", time.Millisecond, nil))
	s.Register(tr.looper("b", time.Millisecond, nil))
	s.Pass()
	require.Equal(t, []string{"a", "b"}, tr.take())
	clock.Advance(time.Millisecond)
	s.Pass()
	require.Equal(t, []string{"a", "b"}, tr.take())
}

func TestSchedulerSelfDisable(t *testing.T) {
	clock := newClock()
	s := New(clock, 2)
	tr := &trace{}
	var slot int
	slot = s.Register(tr.looper("once", 0, func() {
		s.Disable(slot)
		require.Equal(t, ExecutedDisabled, s.State(slot))
	}))
	s.Register(tr.looper("other", time.Millisecond, nil))

	s.Pass()
	require.Equal(t, []string{"once", "other"}, tr.take())
	require.Equal(t, Disabled, s.State(slot))
	require.Equal(t, []int{1}, s.Active())

	clock.Advance(time.Millisecond)
	s.Pass()
	require.Equal(t, []string{"other"}, tr.take())
}

func TestSchedulerDisableThenEnableInHandler(t *testing.T) {
	clock := newClock()
	s := New(clock, 1)
	tr := &trace{}
	var slot int
	slot = s.Register(tr.looper("a", 5*time.Millisecond, func() {
		s.Disable(slot)
		s.Enable(slot)
		require.Equal(t, ExecutedEnabled, s.State(slot))
	}))
	s.Pass()
	require.Equal(t, Enabled, s.State(slot))
	require.Equal(t, clock.Time().Add(5*time.Millisecond), s.NextDue(slot))
	require.Equal(t, []int{slot}, s.Active())
}

func TestSchedulerEnableOtherDuringPass(t *testing.T) {
	clock := newClock()
	s := New(clock, 2)
	tr := &trace{}
	var other int
	s.Register(tr.looper("trigger", time.Second, func() {
		s.Enable(other)
	}))
	other = s.Register(tr.looper("other", time.Second, nil))
	s.Disable(other)
	require.Equal(t, Disabled, s.State(other))

	s.Pass()
	require.Equal(t, []string{"trigger", "other"}, tr.take())
	require.Equal(t, Enabled, s.State(other))
}

func TestSchedulerEnableDisable(t *testing.T) {
	clock := newClock()
	s := New(clock, 3)
	tr := &trace{}
	a := s.Register(tr.looper("a", time.Second, nil))
	b := s.Register(tr.looper("b", time.Second, nil))
	s.Pass()
	tr.take()

	s.Disable(a)
	s.Disable(a)
	require.Equal(t, []int{b}, s.Active())

	clock.Advance(time.Millisecond)
	s.Pass()
	require.Empty(t, tr.take())

	s.Enable(a)
	s.Enable(a)
	require.Equal(t, []int{a, b}, s.Active())
	require.Equal(t, s.Now(), s.NextDue(a))

	s.Pass()
	require.Equal(t, []string{"a"}, tr.take())
}

func TestSchedulerNonPositiveDelay(t *testing.T) {
	clock := newClock()
	s := New(clock, 3)
	tr := &trace{}
	var self, other int
	self = s.Register(tr.looper("self", -time.Second, func() {
		s.Enable(self)
		s.Enable(other)
	}))
	other = s.Register(tr.looper("other", time.Second, nil))
	zero := s.Register(tr.looper("zero", 0, nil))
	s.Disable(other)

	require.Equal(t, 3, s.Pass())
	require.Equal(t, []string{"self", "other", "zero"}, tr.take())
	require.Equal(t, s.Now(), s.NextDue(self))
	require.Equal(t, []int{self, zero, other}, s.Active())

	clock.Advance(time.Millisecond)
	require.Equal(t, 2, s.Pass())
	require.Equal(t, []string{"self", "zero"}, tr.take())
	due := s.Active()
	for i := 1; i < len(due); i++ {
		require.False(t, s.NextDue(due[i-1]).After(s.NextDue(due[i])))
	}
}

func TestSchedulerRegisterOverflow(t *testing.T) {
	s := New(newClock(), 1)
	s.Register(LoopFunc(func() time.Duration { return 0 }))
	require.Panics(t, func() {
		s.Register(LoopFunc(func() time.Duration { return 0 }))
	})
}

func TestStateString(t *testing.T) {
	require.Equal(t, "executed-disabled", ExecutedDisabled.String())
	require.True(t, ExecutedEnabled.IsEnabled())
	require.False(t, ExecutedDisabled.IsEnabled())
}
