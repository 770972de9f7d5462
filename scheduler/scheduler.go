// Package scheduler implements the discrete-event scheduler that drives
// the machine's cycle-domain timeline (spec §4.5). It is single-threaded
// and cooperative: `now` only ever advances when a caller on the emulator
// thread calls Advance/DrainReady.
//
// Grounded on IntuitionEngine's CoprocessorManager ticket bookkeeping
// (coprocessor_manager.go: sequential ticket IDs, a map of pending work,
// mutex-protected shadow state) generalized from a one-shot ticket table
// into an ordered min-heap of one-shot timed callbacks.
package scheduler

import (
	"container/heap"
	"fmt"

	"github.com/otleyzayn/apple2core/addr"
)

// Handle identifies a scheduled event for cancellation. Handles are never
// reused within the lifetime of a Scheduler.
type Handle uint64

// Kind is an opaque tag describing what an event represents; the scheduler
// never interprets it.
type Kind string

// Callback runs when an event fires. It receives the cycle at which it
// fired (always == due_cycle) and may itself schedule further events.
type Callback func(now addr.Cycle)

type event struct {
	handle   Handle
	due      addr.Cycle
	kind     Kind
	priority int32
	callback Callback
	tag      any
	index    int // heap.Interface bookkeeping
	cancelled bool
}

// eventHeap implements container/heap.Interface with the ordering from
// spec §3: due ascending, then priority descending, then handle ascending
// (insertion order, since handles are monotonic).
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.due != b.due {
		return a.due < b.due
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.handle < b.handle
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Observer receives synchronous notifications of scheduler mutations,
// fired on the scheduler's own thread immediately after the mutation.
type Observer interface {
	EventScheduled(h Handle, due addr.Cycle, kind Kind)
	EventConsumed(h Handle, due addr.Cycle, kind Kind)
	EventCancelled(h Handle)
}

// PanicError reports that a callback panicked; the machine translates this
// into a HandlerPanic halt reason per spec §7.
type PanicError struct {
	Handle  Handle
	Kind    Kind
	Value   any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("scheduler: callback for handle %d (kind %q) panicked: %v", e.Handle, e.Kind, e.Value)
}

// Scheduler is a single-threaded min-heap event queue keyed by cycle.
type Scheduler struct {
	now       addr.Cycle
	heap      eventHeap
	byHandle  map[Handle]*event
	nextID    Handle
	observers []Observer
}

// New returns an empty scheduler with now() == 0.
func New() *Scheduler {
	return &Scheduler{byHandle: make(map[Handle]*event)}
}

// Now returns the scheduler's current virtual time.
func (s *Scheduler) Now() addr.Cycle { return s.now }

// PendingCount returns the number of events not yet fired or cancelled.
func (s *Scheduler) PendingCount() int { return len(s.heap) }

// NextDue returns the due cycle of the earliest pending event, if any.
func (s *Scheduler) NextDue() (addr.Cycle, bool) {
	if len(s.heap) == 0 {
		return 0, false
	}
	return s.heap[0].due, true
}

// AddObserver subscribes to scheduler mutation notifications.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// ScheduleAt schedules callback to fire when now reaches due. due may be in
// the past (relative to the scheduler's current now); it will fire on the
// next Advance/DrainReady call in that case.
func (s *Scheduler) ScheduleAt(due addr.Cycle, kind Kind, priority int32, callback Callback, tag any) Handle {
	s.nextID++
	h := s.nextID
	e := &event{handle: h, due: due, kind: kind, priority: priority, callback: callback, tag: tag}
	heap.Push(&s.heap, e)
	s.byHandle[h] = e
	for _, o := range s.observers {
		o.EventScheduled(h, due, kind)
	}
	return h
}

// ScheduleAfter is a convenience wrapper scheduling delta cycles from now.
func (s *Scheduler) ScheduleAfter(delta addr.Cycle, kind Kind, priority int32, callback Callback, tag any) Handle {
	return s.ScheduleAt(s.now+delta, kind, priority, callback, tag)
}

// Cancel removes a pending event. Returns false if the handle is unknown or
// has already fired — cancellation after fire is always a no-op.
func (s *Scheduler) Cancel(h Handle) bool {
	e, ok := s.byHandle[h]
	if !ok || e.cancelled || e.index < 0 {
		return false
	}
	heap.Remove(&s.heap, e.index)
	e.cancelled = true
	delete(s.byHandle, h)
	for _, o := range s.observers {
		o.EventCancelled(h)
	}
	return true
}

// Tag returns the tag associated with a still-pending handle, if any.
func (s *Scheduler) Tag(h Handle) (any, bool) {
	e, ok := s.byHandle[h]
	if !ok {
		return nil, false
	}
	return e.tag, true
}

// Advance fires every event due at or before toCycle, in (due, -priority,
// handle) order, then sets now = toCycle. Events scheduled by a callback
// with due <= toCycle also fire before Advance returns. A callback panic is
// recovered, wrapped in a *PanicError and returned; the event that panicked
// is still considered consumed (at-most-once delivery), and remaining
// pending events are left untouched for the caller (the machine) to decide
// whether to keep draining.
func (s *Scheduler) Advance(toCycle addr.Cycle) error {
	if toCycle < s.now {
		toCycle = s.now
	}
	for len(s.heap) > 0 && s.heap[0].due <= toCycle {
		e := heap.Pop(&s.heap).(*event)
		delete(s.byHandle, e.handle)
		s.now = e.due
		if err := s.fire(e); err != nil {
			s.now = toCycle
			return err
		}
	}
	s.now = toCycle
	return nil
}

// DrainReady advances to now+0: it fires every event already due without
// moving time forward beyond what firing those events implies.
func (s *Scheduler) DrainReady() error {
	return s.Advance(s.now)
}

func (s *Scheduler) fire(e *event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Handle: e.handle, Kind: e.kind, Value: r}
		}
	}()
	e.callback(e.due)
	for _, o := range s.observers {
		o.EventConsumed(e.handle, e.due, e.kind)
	}
	return nil
}
