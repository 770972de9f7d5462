// Package machine composes a bus, scheduler, signal bus, device registry
// and trap registry into one lifecycle (spec §4.8). It owns no emulation
// semantics itself beyond the run loop's turn-taking between CPU and
// scheduler.
//
// Grounded on IntuitionEngine's VM struct (vm.go): a composition root
// holding one of each subsystem plus a state enum and Run/Pause/Stop
// methods, generalized from "hardcoded 6502/Z80/etc CPU field" to an
// ICpu-shaped interface so the CPU core stays outside this package.
package machine

import (
	"errors"
	"sync"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/otleyzayn/apple2core/bus"
	"github.com/otleyzayn/apple2core/device"
	"github.com/otleyzayn/apple2core/scheduler"
	"github.com/otleyzayn/apple2core/signal"
	"github.com/otleyzayn/apple2core/trap"
)

// ICpu is the contract a CPU core must satisfy to be driven by a Machine's
// run loop. Step executes exactly one instruction (or one micro-op, at the
// core's discretion) and returns the number of cycles it consumed. traps
// is passed through so a core can consult it at its own instruction-fetch
// address before decoding, avoiding fine-grained simulation of routines a
// trap substitutes for: on a match the core treats the trap's Cycles as
// consumed and either falls through or jumps to its ReturnAddress, instead
// of decoding the trapped routine at all.
type ICpu interface {
	Step(b *bus.PagedBus, sig *signal.Bus, traps *trap.Registry) (cyclesConsumed addr.Cycle, err error)
	Reset(b *bus.PagedBus)
}

// State is the machine's coarse lifecycle state.
type State uint8

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateHalted:
		return "halted"
	default:
		return "stopped"
	}
}

// HaltReasonKind classifies why Halt stopped the machine (spec §7).
type HaltReasonKind uint8

const (
	HaltNone HaltReasonKind = iota
	HaltHandlerPanic
	HaltTargetInternalError
	HaltCPUError
	HaltRequested
)

// HaltReason is attached to the machine when it transitions to StateHalted.
type HaltReason struct {
	Kind HaltReasonKind
	Err  error
}

// StateChangedEvent is emitted to every Observer on every state transition.
type StateChangedEvent struct {
	From, To State
	Reason   *HaltReason
}

// Observer receives machine lifecycle notifications.
type Observer interface {
	OnStateChanged(StateChangedEvent)
}

// Machine is the composition root (spec §4.8, C10): one bus, one
// scheduler, one signal bus, one device registry, one trap registry, plus
// whatever CPU core and typed components a builder attaches.
type Machine struct {
	mu sync.Mutex

	cpu        ICpu
	bus        *bus.PagedBus
	sched      *scheduler.Scheduler
	sig        *signal.Bus
	devices    *device.Registry
	traps      *trap.Registry
	components map[string]any

	state      State
	haltReason *HaltReason
	observers  []Observer

	stopRequested bool
}

// New assembles a Machine from already-constructed subsystems. Most
// callers should use Build instead; New is exposed for tests and for
// callers assembling a machine by hand from a non-profile source.
func New(cpu ICpu, b *bus.PagedBus, sched *scheduler.Scheduler, sig *signal.Bus, devices *device.Registry, traps *trap.Registry) *Machine {
	return &Machine{
		cpu:        cpu,
		bus:        b,
		sched:      sched,
		sig:        sig,
		devices:    devices,
		traps:      traps,
		components: make(map[string]any),
		state:      StateStopped,
	}
}

// Bus, Scheduler, Signals, Devices, Traps expose the owned subsystems to
// device wiring code and debuggers.
func (m *Machine) Bus() *bus.PagedBus              { return m.bus }
func (m *Machine) Scheduler() *scheduler.Scheduler { return m.sched }
func (m *Machine) Signals() *signal.Bus            { return m.sig }
func (m *Machine) Devices() *device.Registry       { return m.devices }
func (m *Machine) Traps() *trap.Registry           { return m.traps }
func (m *Machine) State() State                    { return m.state }
func (m *Machine) HaltReason() *HaltReason         { return m.haltReason }

// AddObserver subscribes to lifecycle notifications.
func (m *Machine) AddObserver(o Observer) { m.observers = append(m.observers, o) }

// PutComponent stashes an arbitrary named component (a device instance, a
// decoded ROM table, anything a specific profile wants reachable later) in
// the machine's typed bag.
func (m *Machine) PutComponent(name string, v any) { m.components[name] = v }

// Component retrieves a previously stashed component.
func (m *Machine) Component(name string) (any, bool) {
	v, ok := m.components[name]
	return v, ok
}

func (m *Machine) setState(to State, reason *HaltReason) {
	from := m.state
	m.state = to
	m.haltReason = reason
	for _, o := range m.observers {
		o.OnStateChanged(StateChangedEvent{From: from, To: to, Reason: reason})
	}
}

// Reset clears the signal bus's assertion sets and NMI latch, resets the
// CPU core, and returns the machine to StateStopped. Scheduler pending
// events are left untouched: a reset is a CPU/signal-level event, not a
// clock reinitialization (mirrors real hardware, where RESET does not
// un-schedule in-flight peripheral timers).
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sig.Reset()
	m.cpu.Reset(m.bus)
	m.setState(StateStopped, nil)
}

// Step executes exactly one CPU step followed by draining every scheduler
// event now due (spec §4.8 "alternation"). It is the building block Run
// calls in a loop; callers wanting single-instruction debugging call it
// directly.
func (m *Machine) Step() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step()
}

func (m *Machine) step() error {
	consumed, err := m.cpu.Step(m.bus, m.sig, m.traps)
	if err != nil {
		m.setState(StateHalted, &HaltReason{Kind: HaltCPUError, Err: err})
		return err
	}
	m.sig.SignalInstructionExecuted(uint64(consumed))
	if schedErr := m.sched.Advance(m.sched.Now() + consumed); schedErr != nil {
		var panicErr *scheduler.PanicError
		if errors.As(schedErr, &panicErr) {
			m.setState(StateHalted, &HaltReason{Kind: HaltHandlerPanic, Err: schedErr})
		} else {
			m.setState(StateHalted, &HaltReason{Kind: HaltTargetInternalError, Err: schedErr})
		}
		return schedErr
	}
	return nil
}

// Run drives the machine synchronously until Stop, Pause or Halt is
// requested, or the CPU/scheduler reports an error.
func (m *Machine) Run() error {
	m.mu.Lock()
	m.stopRequested = false
	m.setState(StateRunning, nil)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if m.stopRequested || m.state != StateRunning {
			m.mu.Unlock()
			return nil
		}
		err := m.step()
		m.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

// Pause transitions a running machine to StatePaused. Run's loop observes
// the state change and returns on its next iteration.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateRunning {
		m.setState(StatePaused, nil)
	}
}

// Stop requests Run return at the next step boundary and marks the machine
// StateStopped.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRequested = true
	m.setState(StateStopped, nil)
}

// Halt forcibly stops the machine and records reason, as if the run loop
// itself had detected a fatal condition. Used by devices that detect an
// unrecoverable condition outside the CPU/scheduler step path (e.g. a trap
// handler deciding the machine cannot continue).
func (m *Machine) Halt(kind HaltReasonKind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRequested = true
	m.setState(StateHalted, &HaltReason{Kind: kind, Err: err})
}

// ErrAlreadyRunning is returned by RunAsync when called on a machine that
// is already running.
var ErrAlreadyRunning = errors.New("machine: already running")
