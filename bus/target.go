// Package bus implements the paged memory bus: the page table, its
// targets, composite layers and swap groups (spec §4.1-§4.3). This file
// defines the Target contract and the three concrete variants named in
// spec §3: Ram, Rom and Delegating (CompositeIO lives in package ioport
// and is wired in as a Target from the outside, same as any device).
//
// Grounded on IntuitionEngine's memory_bus.go/machine_bus.go Read/Write8-
// 32 little-endian accessors, generalized from "one global memory slice"
// to "many independently sized, independently capable targets".
package bus

import "github.com/otleyzayn/apple2core/addr"

// Target is the uniform access interface every bus-visible object
// implements: RAM, ROM, composite I/O, and the Delegating wrapper used by
// composite layers and swap groups.
type Target interface {
	Name() string
	Size() uint32
	Caps() addr.Cap
	Read8(offset uint32) byte
	Write8(offset uint32, v byte)
}

// Wide16 is implemented by targets that can service a native 16-bit access
// without decomposing into two byte accesses. A target only needs this if
// it also reports addr.CapSupportsWide.
type Wide16 interface {
	Read16(offset uint32) uint16
	Write16(offset uint32, v uint16)
}

// Wide32 is the 32-bit equivalent of Wide16.
type Wide32 interface {
	Read32(offset uint32) uint32
	Write32(offset uint32, v uint32)
}

// Peeker is implemented by targets whose read has no side effects worth
// suppressing — PagedBus.Peek8 calls the target's Peek8 only when it both
// advertises addr.CapSupportsPeek and implements Peeker (RAM/ROM implement
// it trivially; a side-effecting I/O target generally won't).
type Peeker interface {
	Peek8(offset uint32) byte
}

// Poker is the write-side equivalent of Peeker.
type Poker interface {
	Poke8(offset uint32, v byte)
}

// blockTarget adapts a *physmem.Block into a Target. It is embedded by Ram
// and Rom rather than exported directly, since the two differ only in
// whether Write8 is honored and in their capability set.
type blockTarget struct {
	block *Block
}

// Block is the minimal physical-storage contract bus targets need; it is
// satisfied by *physmem.Block without this package importing physmem
// directly, keeping bus decoupled from how a RAM/ROM backing store is
// allocated.
type Block interface {
	ReadByte(offset uint32) byte
	WriteByte(offset uint32, v byte)
	Size() int
}

// Ram is a read/write target with no side effects.
type Ram struct {
	name  string
	block Block
}

// NewRam wraps block as a RAM target named name.
func NewRam(name string, block Block) *Ram {
	return &Ram{name: name, block: block}
}

func (r *Ram) Name() string  { return r.name }
func (r *Ram) Size() uint32  { return uint32(r.block.Size()) }
func (r *Ram) Caps() addr.Cap {
	return addr.CapSupportsPeek | addr.CapSupportsPoke | addr.CapSupportsWide
}
func (r *Ram) Read8(offset uint32) byte       { return r.block.ReadByte(offset) }
func (r *Ram) Write8(offset uint32, v byte)   { r.block.WriteByte(offset, v) }
func (r *Ram) Peek8(offset uint32) byte       { return r.block.ReadByte(offset) }
func (r *Ram) Poke8(offset uint32, v byte)    { r.block.WriteByte(offset, v) }

func (r *Ram) Read16(offset uint32) uint16 {
	lo := uint16(r.block.ReadByte(offset))
	hi := uint16(r.block.ReadByte(offset + 1))
	return lo | hi<<8
}
func (r *Ram) Write16(offset uint32, v uint16) {
	r.block.WriteByte(offset, byte(v))
	r.block.WriteByte(offset+1, byte(v>>8))
}
func (r *Ram) Read32(offset uint32) uint32 {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		v |= uint32(r.block.ReadByte(offset+i)) << (8 * i)
	}
	return v
}
func (r *Ram) Write32(offset uint32, v uint32) {
	for i := uint32(0); i < 4; i++ {
		r.block.WriteByte(offset+i, byte(v>>(8*i)))
	}
}

// Rom is read-only: writes are silently ignored and SupportsPoke is never
// set (spec §3).
type Rom struct {
	name  string
	block Block
}

// NewRom wraps block as a ROM target named name.
func NewRom(name string, block Block) *Rom {
	return &Rom{name: name, block: block}
}

func (r *Rom) Name() string { return r.name }
func (r *Rom) Size() uint32 { return uint32(r.block.Size()) }
func (r *Rom) Caps() addr.Cap {
	return addr.CapSupportsPeek | addr.CapSupportsWide
}
func (r *Rom) Read8(offset uint32) byte     { return r.block.ReadByte(offset) }
func (r *Rom) Write8(offset uint32, v byte) {} // silently dropped
func (r *Rom) Peek8(offset uint32) byte     { return r.block.ReadByte(offset) }

func (r *Rom) Read16(offset uint32) uint16 {
	lo := uint16(r.block.ReadByte(offset))
	hi := uint16(r.block.ReadByte(offset + 1))
	return lo | hi<<8
}
func (r *Rom) Write16(offset uint32, v uint16) {}

func (r *Rom) Read32(offset uint32) uint32 {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		v |= uint32(r.block.ReadByte(offset+i)) << (8 * i)
	}
	return v
}
func (r *Rom) Write32(offset uint32, v uint32) {}

// Delegating wraps a pair of callback functions as a Target. Composite
// layers and swap-group variants that don't need a dedicated type (e.g. a
// soft-switch-backed alias of another target) can use this instead of
// defining a new struct, the same way IntuitionEngine's IORegion wraps
// onRead/onWrite closures (memory_bus.go) instead of a dedicated type per
// region.
type Delegating struct {
	name     string
	size     uint32
	caps     addr.Cap
	onRead8  func(offset uint32) byte
	onWrite8 func(offset uint32, v byte)
}

// NewDelegating builds a Delegating target. onWrite8 may be nil for a
// read-only delegate (writes are then silently dropped, as with Rom).
func NewDelegating(name string, size uint32, caps addr.Cap, onRead8 func(uint32) byte, onWrite8 func(uint32, byte)) *Delegating {
	return &Delegating{name: name, size: size, caps: caps, onRead8: onRead8, onWrite8: onWrite8}
}

func (d *Delegating) Name() string  { return d.name }
func (d *Delegating) Size() uint32  { return d.size }
func (d *Delegating) Caps() addr.Cap { return d.caps }
func (d *Delegating) Read8(offset uint32) byte {
	if d.onRead8 == nil {
		return 0xFF
	}
	return d.onRead8(offset)
}
func (d *Delegating) Write8(offset uint32, v byte) {
	if d.onWrite8 != nil {
		d.onWrite8(offset, v)
	}
}
