package scheduler

import (
	"testing"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/stretchr/testify/require"
)

func TestAdvanceFiresInDueThenPriorityThenHandleOrder(t *testing.T) {
	s := New()
	var order []string

	s.ScheduleAt(10, "b", 0, func(addr.Cycle) { order = append(order, "b@10p0") }, nil)
	s.ScheduleAt(10, "a", 5, func(addr.Cycle) { order = append(order, "a@10p5") }, nil)
	s.ScheduleAt(5, "c", 0, func(addr.Cycle) { order = append(order, "c@5") }, nil)

	require.NoError(t, s.Advance(20))
	require.Equal(t, []string{"c@5", "a@10p5", "b@10p0"}, order)
	require.Equal(t, addr.Cycle(20), s.Now())
}

func TestCancelPreventsDelivery(t *testing.T) {
	s := New()
	fired := false
	h := s.ScheduleAt(5, "x", 0, func(addr.Cycle) { fired = true }, nil)
	require.True(t, s.Cancel(h))
	require.False(t, s.Cancel(h), "cancelling twice must report false")
	require.NoError(t, s.Advance(10))
	require.False(t, fired)
}

func TestCallbackCanScheduleFurtherEventsWithinSameAdvance(t *testing.T) {
	s := New()
	count := 0
	var chain func(addr.Cycle)
	chain = func(now addr.Cycle) {
		count++
		if count < 3 {
			s.ScheduleAt(now+1, "chain", 0, chain, nil)
		}
	}
	s.ScheduleAt(1, "chain", 0, chain, nil)
	require.NoError(t, s.Advance(10))
	require.Equal(t, 3, count)
}

func TestPanicInCallbackReturnsPanicErrorAndConsumesEvent(t *testing.T) {
	s := New()
	s.ScheduleAt(1, "boom", 0, func(addr.Cycle) { panic("kaboom") }, nil)
	err := s.Advance(5)
	require.Error(t, err)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 0, s.PendingCount())
}

type recordingObserver struct {
	scheduled, consumed, cancelled int
}

func (o *recordingObserver) EventScheduled(Handle, addr.Cycle, Kind) { o.scheduled++ }
func (o *recordingObserver) EventConsumed(Handle, addr.Cycle, Kind)  { o.consumed++ }
func (o *recordingObserver) EventCancelled(Handle)                  { o.cancelled++ }

func TestObserverReceivesLifecycleNotifications(t *testing.T) {
	s := New()
	obs := &recordingObserver{}
	s.AddObserver(obs)

	h1 := s.ScheduleAt(1, "a", 0, func(addr.Cycle) {}, nil)
	s.ScheduleAt(2, "b", 0, func(addr.Cycle) {}, nil)
	s.Cancel(h1)
	require.NoError(t, s.Advance(10))

	require.Equal(t, 2, obs.scheduled)
	require.Equal(t, 1, obs.consumed)
	require.Equal(t, 1, obs.cancelled)
}

func TestDrainReadyDoesNotAdvanceTimeBeyondDueEvents(t *testing.T) {
	s := New()
	s.ScheduleAt(3, "x", 0, func(addr.Cycle) {}, nil)
	require.NoError(t, s.Advance(3))
	s.ScheduleAt(3, "y", 0, func(addr.Cycle) {}, nil) // scheduled "in the past" relative to now
	require.NoError(t, s.DrainReady())
	require.Equal(t, addr.Cycle(3), s.Now())
	require.Equal(t, 0, s.PendingCount())
}
