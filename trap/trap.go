// Package trap implements the trap registry (spec §4.5): a table of
// address-keyed interceptors consulted before the bus services an access,
// keyed by (address, operation, memory context) with a context-specific,
// then ROM-context, then ContextAny fallback lookup order.
//
// Grounded on IntuitionEngine's breakpoint/watchpoint table in debug.go
// (an address-keyed map of handlers consulted before normal execution),
// generalized from "stop execution" to "optionally substitute a handler
// for the access, or fall through".
package trap

import (
	"sync"

	"github.com/otleyzayn/apple2core/addr"
)

// Operation selects which access kind a trap covers.
type Operation uint8

const (
	OpRead Operation = iota
	OpWrite
	OpExecute
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Context narrows a trap to a specific memory-mapping state, mirroring
// addr.RegionTag, with Any matching regardless of the region a page table
// entry currently reports.
type Context uint8

const (
	ContextAny Context = iota
	ContextRom
	ContextRam
	ContextIO
	ContextLanguageCardBank1
	ContextLanguageCardBank2
	ContextAuxRam
)

// Result is what a trap handler returns. Handled reports whether the
// handler fully serviced the access (bus should not also consult the page
// table); Value carries the byte for a read trap. Cycles is what the CPU
// should treat as consumed by the trapped routine instead of decoding it
// instruction-by-instruction. ReturnAddress, when HasReturnAddress is set,
// tells the CPU to jump there instead of falling through to the
// instruction after the trapped address.
type Result struct {
	Handled bool
	Value   byte

	Cycles           addr.Cycle
	ReturnAddress    addr.Addr
	HasReturnAddress bool
}

// Handler is invoked in place of (or alongside) the normal bus resolution
// for a trapped access.
type Handler func(a addr.Addr, op Operation, writeVal byte) Result

type key struct {
	addr addr.Addr
	op   Operation
	ctx  Context
}

type entry struct {
	handler     Handler
	category    string
	enabled     bool
	slotDep     int // 0 = not slot-dependent, else required selected slot
	langCardRam bool
}

// Event is the interface satisfied by everything the registry emits to
// observers: TrapRegistered, TrapUnregistered, TrapEnabledChanged and
// TrapInvoked.
type Event interface{ isTrapEvent() }

type TrapRegistered struct {
	Addr addr.Addr
	Op   Operation
	Ctx  Context
}
type TrapUnregistered struct {
	Addr addr.Addr
	Op   Operation
	Ctx  Context
}
type TrapEnabledChanged struct {
	Category string
	Enabled  bool
}
type TrapInvoked struct {
	Addr addr.Addr
	Op   Operation
	Ctx  Context
}

func (TrapRegistered) isTrapEvent()     {}
func (TrapUnregistered) isTrapEvent()   {}
func (TrapEnabledChanged) isTrapEvent() {}
func (TrapInvoked) isTrapEvent()        {}

// Observer receives trap registry events.
type Observer interface{ OnTrapEvent(Event) }

// SlotState is queried by the registry to resolve slot-dependent traps
// without the trap package depending on ioport.
type SlotState interface{ SelectedSlot() int }

// LangCardState is queried by the registry to resolve language-card-RAM
// traps without the trap package depending on bus. Satisfied directly by
// *bus.LanguageCardLayer.
type LangCardState interface{ ReadEnabled() bool }

// Registry is the trap table. Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	entries map[key]*entry

	categoryEnabled map[string]bool
	slots           SlotState
	langCard        LangCardState

	observers []Observer
}

// New builds an empty registry. slots may be nil if no slot-dependent
// traps will be registered.
func New(slots SlotState) *Registry {
	return &Registry{
		entries:         make(map[key]*entry),
		categoryEnabled: make(map[string]bool),
		slots:           slots,
	}
}

// SetLangCardState wires the language-card layer consulted by
// register_language_card_ram traps. Traps registered that way are gated
// closed until this is called.
func (r *Registry) SetLangCardState(lc LangCardState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langCard = lc
}

// AddObserver registers an event sink.
func (r *Registry) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Registry) notify(e Event) {
	for _, o := range r.observers {
		o.OnTrapEvent(e)
	}
}

// Register installs a handler for (a, op, ContextAny) under category.
func (r *Registry) Register(category string, a addr.Addr, op Operation, h Handler) {
	r.registerWithContext(category, a, op, ContextAny, h, 0, false)
}

// RegisterWithContext installs a handler scoped to a specific memory
// context.
func (r *Registry) RegisterWithContext(category string, a addr.Addr, op Operation, ctx Context, h Handler) {
	r.registerWithContext(category, a, op, ctx, h, 0, false)
}

// RegisterSlotDependent installs a handler that only fires while slot is
// the currently selected peripheral slot.
func (r *Registry) RegisterSlotDependent(category string, a addr.Addr, op Operation, slot int, h Handler) {
	r.registerWithContext(category, a, op, ContextAny, h, slot, false)
}

// RegisterLanguageCardRAM installs a handler scoped to language-card RAM
// accesses regardless of which bank is currently selected.
func (r *Registry) RegisterLanguageCardRAM(category string, a addr.Addr, op Operation, h Handler) {
	r.registerWithContext(category, a, op, ContextAny, h, 0, true)
}

func (r *Registry) registerWithContext(category string, a addr.Addr, op Operation, ctx Context, h Handler, slotDep int, langCardRam bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{addr: a, op: op, ctx: ctx}
	r.entries[k] = &entry{handler: h, category: category, enabled: true, slotDep: slotDep, langCardRam: langCardRam}
	if _, ok := r.categoryEnabled[category]; !ok {
		r.categoryEnabled[category] = true
	}
	r.notify(TrapRegistered{Addr: a, Op: op, Ctx: ctx})
}

// Unregister removes the trap for (a, op, ctx) if present.
func (r *Registry) Unregister(a addr.Addr, op Operation, ctx Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{addr: a, op: op, ctx: ctx}
	if _, ok := r.entries[k]; ok {
		delete(r.entries, k)
		r.notify(TrapUnregistered{Addr: a, Op: op, Ctx: ctx})
	}
}

// Clear removes every trap in category.
func (r *Registry) Clear(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.entries {
		if e.category == category {
			delete(r.entries, k)
			r.notify(TrapUnregistered{Addr: k.addr, Op: k.op, Ctx: k.ctx})
		}
	}
}

// UnregisterSlotTraps removes every trap registered via
// RegisterSlotDependent for slot, e.g. when a card is removed.
func (r *Registry) UnregisterSlotTraps(slot int) {
	if slot == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.entries {
		if e.slotDep == slot {
			delete(r.entries, k)
			r.notify(TrapUnregistered{Addr: k.addr, Op: k.op, Ctx: k.ctx})
		}
	}
}

// UnregisterContextTraps removes every trap registered against ctx.
func (r *Registry) UnregisterContextTraps(ctx Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.entries {
		if k.ctx == ctx {
			delete(r.entries, k)
			r.notify(TrapUnregistered{Addr: k.addr, Op: k.op, Ctx: k.ctx})
		}
	}
}

// SetCategoryEnabled toggles every trap registered under category.
func (r *Registry) SetCategoryEnabled(category string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categoryEnabled[category] = enabled
	r.notify(TrapEnabledChanged{Category: category, Enabled: enabled})
}

// SetEnabled toggles a single trap's own enable bit, independent of its
// category's state; both must be true for TryExecute to fire it.
func (r *Registry) SetEnabled(a addr.Addr, op Operation, ctx Context, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key{addr: a, op: op, ctx: ctx}]; ok {
		e.enabled = enabled
	}
}

// TryExecute looks up a trap for (a, op, ctx), falling back to
// (a, op, ContextRom) and then (a, op, ContextAny) if ctx itself has no
// registration (spec §4.5 "lookup order"), and invokes it if both the
// entry and its category are
// enabled and any slot-dependence is satisfied.
func (r *Registry) TryExecute(a addr.Addr, op Operation, ctx Context, writeVal byte) (Result, bool) {
	r.mu.RLock()
	e, k, ok := r.lookup(a, op, ctx)
	if ok {
		enabled := e.enabled && r.categoryEnabled[e.category]
		if enabled && e.slotDep != 0 {
			enabled = r.slots != nil && r.slots.SelectedSlot() == e.slotDep
		}
		if enabled && e.langCardRam {
			enabled = r.langCard != nil && r.langCard.ReadEnabled()
		}
		h := e.handler
		r.mu.RUnlock()
		if !enabled {
			return Result{}, false
		}
		r.notify(TrapInvoked{Addr: k.addr, Op: k.op, Ctx: k.ctx})
		return h(a, op, writeVal), true
	}
	r.mu.RUnlock()
	return Result{}, false
}

func (r *Registry) lookup(a addr.Addr, op Operation, ctx Context) (*entry, key, bool) {
	if ctx != ContextRom {
		if e, ok := r.entries[key{addr: a, op: op, ctx: ctx}]; ok {
			return e, key{addr: a, op: op, ctx: ctx}, true
		}
	}
	if e, ok := r.entries[key{addr: a, op: op, ctx: ContextRom}]; ok {
		return e, key{addr: a, op: op, ctx: ContextRom}, true
	}
	if ctx != ContextAny {
		if e, ok := r.entries[key{addr: a, op: op, ctx: ContextAny}]; ok {
			return e, key{addr: a, op: op, ctx: ContextAny}, true
		}
	}
	return nil, key{}, false
}
