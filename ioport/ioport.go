// Package ioport implements the $C000-$CFFF I/O page: soft-switch
// dispatch, slot-ROM fan-out, and the expansion-ROM selection state
// machine (spec §4.4, C9).
//
// Grounded on IntuitionEngine's IORegion/MapIO dispatch (memory_bus.go):
// an address-keyed table of read/write callback pairs, generalized here
// from "a byte-range to one pair of callbacks" into "one callback pair per
// offset, fanned out by sub-range instead of registered per-range".
package ioport

import "github.com/otleyzayn/apple2core/addr"

const (
	pageSize = 0x1000

	softSwitchEnd = 0x0FF
	slotRomStart  = 0x100
	slotRomEnd    = 0x7FF
	expRomStart   = 0x800
	expRomEnd     = 0xFFE
	sentinel      = 0xFFF

	// FloatingBus is the byte returned for unhandled reads (spec §4.4,
	// GLOSSARY "Floating bus"). Open Question (b) in spec §9 declares this
	// constant sufficient rather than modeling the last byte driven on the
	// data bus.
	FloatingBus byte = 0xFF

	numSlots = 8 // slots 0-7; slot 0 is reserved/unused in practice
)

// ReadFunc/WriteFunc are soft-switch handlers, keyed by offset within
// $C000-$C0FF.
type ReadFunc func(offset uint32) byte
type WriteFunc func(offset uint32, v byte)

// SlotROM is the 256-byte ROM image for one peripheral slot's $CN00-$CNFF
// window.
type SlotROM struct {
	Installed bool
	Bytes     [256]byte
}

// ExpansionROM is a slot's 2KiB $C800-$CFFF window.
type ExpansionROM struct {
	Installed bool
	Bytes     [0x800]byte
}

// IOPage is the composite target mapping the whole $C000-$CFFF page. It
// implements bus.Target (Read8/Write8/Name/Size/Caps) directly so it can
// be installed as a page-table entry without an adapter.
type IOPage struct {
	name string

	softReads  map[uint32]ReadFunc
	softWrites map[uint32]WriteFunc

	slots    [numSlots]SlotROM
	expROMs  [numSlots]ExpansionROM
	internal []byte // optional internal ROM image for INTCXROM/INTC3ROM

	intCxRom bool
	intC3Rom bool

	selected    int // 0 = none, 1-7 = selected slot
	defaultExp  *ExpansionROM
}

// NewIOPage builds an empty I/O page. internalROM, if non-nil, must be at
// least 0x700 bytes (covering $C100-$C7FF) to back INTCXROM/INTC3ROM reads.
func NewIOPage(name string, internalROM []byte) *IOPage {
	return &IOPage{
		name:       name,
		softReads:  make(map[uint32]ReadFunc),
		softWrites: make(map[uint32]WriteFunc),
		internal:   internalROM,
	}
}

func (p *IOPage) Name() string   { return p.name }
func (p *IOPage) Size() uint32   { return pageSize }
func (p *IOPage) Caps() addr.Cap { return addr.CapHasSideEffects | addr.CapTimingSensitive }

// RegisterSoftSwitch installs read and/or write handlers for one offset in
// [0, 0x100). Either may be nil.
func (p *IOPage) RegisterSoftSwitch(offset uint32, r ReadFunc, w WriteFunc) {
	if r != nil {
		p.softReads[offset] = r
	}
	if w != nil {
		p.softWrites[offset] = w
	}
}

// InstallSlotROM installs a 256-byte ROM image for slot N (1-7).
func (p *IOPage) InstallSlotROM(slot int, data []byte) {
	if slot < 1 || slot >= numSlots {
		return
	}
	p.slots[slot].Installed = true
	copy(p.slots[slot].Bytes[:], data)
}

// InstallExpansionROM installs a slot's 2KiB expansion ROM image.
func (p *IOPage) InstallExpansionROM(slot int, data []byte) {
	if slot < 1 || slot >= numSlots {
		return
	}
	p.expROMs[slot].Installed = true
	copy(p.expROMs[slot].Bytes[:], data)
}

// SetDefaultExpansionROM sets the image returned by $C800-$CFFE when no
// slot is selected. Pass nil to fall back to the floating bus.
func (p *IOPage) SetDefaultExpansionROM(rom *ExpansionROM) { p.defaultExp = rom }

// SetIntCxRom toggles INTCXROM: the whole $C100-$C7FF window returns
// internal ROM bytes and slot-selection side effects are suppressed.
func (p *IOPage) SetIntCxRom(v bool) { p.intCxRom = v }

// SetIntC3Rom toggles INTC3ROM: only $C300-$C3FF is overridden by internal
// ROM, and accessing it still performs the slot-3 selection side effect.
func (p *IOPage) SetIntC3Rom(v bool) { p.intC3Rom = v }

// IntCxRom/IntC3Rom report the current soft-switch state.
func (p *IOPage) IntCxRom() bool { return p.intCxRom }
func (p *IOPage) IntC3Rom() bool { return p.intC3Rom }

// SelectedSlot returns the currently selected expansion slot, or 0 for
// none.
func (p *IOPage) SelectedSlot() int { return p.selected }

// Read8 dispatches a read by offset within the page.
func (p *IOPage) Read8(offset uint32) byte {
	return p.access(offset, true, 0)
}

// Write8 dispatches a write by offset within the page.
func (p *IOPage) Write8(offset uint32, v byte) {
	p.access(offset, false, v)
}

func (p *IOPage) access(offset uint32, isRead bool, writeVal byte) byte {
	switch {
	case offset == sentinel:
		// $CFFF: any access, read or write, any INTCXROM state,
		// deselects the current expansion slot (spec §4.4 "$CFFF
		// sentinel"). The read value is the visible expansion-ROM byte
		// (as if still selected) if any, else the floating bus.
		var v byte = FloatingBus
		if isRead {
			v = p.expansionByte(offset)
		}
		p.selected = 0
		return v

	case offset <= softSwitchEnd:
		if isRead {
			if fn, ok := p.softReads[offset]; ok {
				return fn(offset)
			}
			return FloatingBus
		}
		if fn, ok := p.softWrites[offset]; ok {
			fn(offset, writeVal)
		}
		return 0

	case offset >= slotRomStart && offset <= slotRomEnd:
		slot := int((offset >> 8) & 0x7)
		return p.slotROMAccess(offset, slot, isRead, writeVal)

	case offset >= expRomStart && offset <= expRomEnd:
		return p.expansionByte(offset)

	default:
		return FloatingBus
	}
}

func (p *IOPage) slotROMAccess(offset uint32, slot int, isRead bool, writeVal byte) byte {
	// INTCXROM overrides the entire $C100-$C7FF region with internal ROM
	// and suppresses selection side effects entirely.
	if p.intCxRom {
		return p.internalByte(offset)
	}

	// INTC3ROM narrows the override to slot 3 only, but selection still
	// happens (spec §4.4 "Slot-ROM access side effect").
	overriddenBySlot3 := slot == 3 && p.intC3Rom

	if slot >= 1 {
		p.selected = slot
	}

	if overriddenBySlot3 {
		return p.internalByte(offset)
	}

	rom := &p.slots[slot]
	if !rom.Installed {
		return FloatingBus
	}
	idx := offset & 0xFF
	if isRead {
		return rom.Bytes[idx]
	}
	return 0
}

func (p *IOPage) internalByte(offset uint32) byte {
	idx := int(offset) - slotRomStart
	if p.internal == nil || idx < 0 || idx >= len(p.internal) {
		return FloatingBus
	}
	return p.internal[idx]
}

func (p *IOPage) expansionByte(offset uint32) byte {
	slot := p.selected
	if slot < 1 || slot >= numSlots || !p.expROMs[slot].Installed {
		if p.defaultExp != nil && p.defaultExp.Installed {
			idx := offset - expRomStart
			if int(idx) < len(p.defaultExp.Bytes) {
				return p.defaultExp.Bytes[idx]
			}
		}
		return FloatingBus
	}
	idx := offset - expRomStart
	return p.expROMs[slot].Bytes[idx]
}
