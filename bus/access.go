package bus

import "github.com/otleyzayn/apple2core/addr"

// Read8 performs a permission-checked 8-bit read.
func (b *PagedBus) Read8(a addr.Access) (uint8, *addr.Fault) {
	r := b.resolve(a.Address, a.Intent)
	if f := r.checkAccess(a.Address, a.Intent); f != nil {
		b.pushTrace(a.Address, 0, 8, a.Intent, a.Flags, a.SourceID, a.Cycle, r, false)
		return 0, f
	}
	v := r.target.Read8(b.offsetFor(a.Address, r))
	b.pushTrace(a.Address, uint32(v), 8, a.Intent, a.Flags, a.SourceID, a.Cycle, r, false)
	return v, nil
}

// Write8 performs a permission-checked 8-bit write.
func (b *PagedBus) Write8(a addr.Access, value uint8) *addr.Fault {
	r := b.resolve(a.Address, a.Intent)
	if f := r.checkAccess(a.Address, a.Intent); f != nil {
		b.pushTrace(a.Address, uint32(value), 8, a.Intent, a.Flags, a.SourceID, a.Cycle, r, false)
		return f
	}
	r.target.Write8(b.offsetFor(a.Address, r), value)
	b.pushTrace(a.Address, uint32(value), 8, a.Intent, a.Flags, a.SourceID, a.Cycle, r, false)
	return nil
}

// byteResolution is the per-byte resolve+check result used by the wide
// decomposition path.
type byteResolution struct {
	addr addr.Addr
	res  resolved
	err  *addr.Fault
}

func (b *PagedBus) resolveSpan(base addr.Addr, n int, intent addr.Intent) []byteResolution {
	out := make([]byteResolution, n)
	for i := 0; i < n; i++ {
		a := addr.Addr(uint32(base) + uint32(i))
		r := b.resolve(a, intent)
		out[i] = byteResolution{addr: a, res: r, err: r.checkAccess(a, intent)}
	}
	return out
}

// wideEligible reports whether every byte in spans resolves to the same
// target, at contiguous physical offsets, with SupportsWide set — the
// condition under which a wide access may be serviced natively instead of
// being decomposed into byte accesses (spec §4.1 "Wide reads/writes").
func wideEligible(spans []byteResolution, flags addr.AccessFlags) bool {
	if flags.Has(addr.FlagDecompose) {
		return false
	}
	first := spans[0].res
	if first.target == nil || !first.caps.Has(addr.CapSupportsWide) {
		return false
	}
	base := physOffsetOf(spans[0])
	for i, s := range spans {
		if s.res.target != first.target {
			return false
		}
		if physOffsetOf(s) != base+uint32(i) {
			return false
		}
	}
	return true
}

func physOffsetOf(s byteResolution) uint32 { return s.res.physBase + s.addr.Offset() }

func firstFault(spans []byteResolution) *addr.Fault {
	for _, s := range spans {
		if s.err != nil {
			return s.err
		}
	}
	return nil
}

// Read16 reads a 16-bit little-endian value. If both bytes resolve to the
// same SupportsWide target at contiguous offsets the target's native
// Read16 is used; otherwise the access decomposes into two byte reads,
// low byte before high byte (spec §4.1).
func (b *PagedBus) Read16(a addr.Access) (uint16, *addr.Fault) {
	spans := b.resolveSpan(a.Address, 2, a.Intent)
	if f := firstFault(spans); f != nil {
		return 0, f
	}
	if wideEligible(spans, a.Flags) {
		if w, ok := spans[0].res.target.(Wide16); ok {
			off := physOffsetOf(spans[0])
			v := w.Read16(off)
			b.pushTrace(a.Address, uint32(v), 16, a.Intent, a.Flags, a.SourceID, a.Cycle, spans[0].res, false)
			return v, nil
		}
	}
	lo, _ := b.Read8(byteAccess(a, 0))
	hi, _ := b.Read8(byteAccess(a, 1))
	v := uint16(lo) | uint16(hi)<<8
	return v, nil
}

// Write16 writes a 16-bit little-endian value. Permission is validated
// across both bytes before any mutation occurs, so a faulting write never
// partially mutates target state (spec invariant §8.3).
func (b *PagedBus) Write16(a addr.Access, value uint16) *addr.Fault {
	spans := b.resolveSpan(a.Address, 2, a.Intent)
	if f := firstFault(spans); f != nil {
		return f
	}
	if wideEligible(spans, a.Flags) {
		if w, ok := spans[0].res.target.(Wide16); ok {
			off := physOffsetOf(spans[0])
			w.Write16(off, value)
			b.pushTrace(a.Address, uint32(value), 16, a.Intent, a.Flags, a.SourceID, a.Cycle, spans[0].res, false)
			return nil
		}
	}
	b.Write8(byteAccess(a, 0), byte(value))
	b.Write8(byteAccess(a, 1), byte(value>>8))
	return nil
}

// Read32 is the 32-bit equivalent of Read16.
func (b *PagedBus) Read32(a addr.Access) (uint32, *addr.Fault) {
	spans := b.resolveSpan(a.Address, 4, a.Intent)
	if f := firstFault(spans); f != nil {
		return 0, f
	}
	if wideEligible(spans, a.Flags) {
		if w, ok := spans[0].res.target.(Wide32); ok {
			off := physOffsetOf(spans[0])
			v := w.Read32(off)
			b.pushTrace(a.Address, v, 32, a.Intent, a.Flags, a.SourceID, a.Cycle, spans[0].res, false)
			return v, nil
		}
	}
	var v uint32
	for i := 0; i < 4; i++ {
		byteVal, _ := b.Read8(byteAccess(a, i))
		v |= uint32(byteVal) << (8 * i)
	}
	return v, nil
}

// Write32 is the 32-bit equivalent of Write16.
func (b *PagedBus) Write32(a addr.Access, value uint32) *addr.Fault {
	spans := b.resolveSpan(a.Address, 4, a.Intent)
	if f := firstFault(spans); f != nil {
		return f
	}
	if wideEligible(spans, a.Flags) {
		if w, ok := spans[0].res.target.(Wide32); ok {
			off := physOffsetOf(spans[0])
			w.Write32(off, value)
			b.pushTrace(a.Address, value, 32, a.Intent, a.Flags, a.SourceID, a.Cycle, spans[0].res, false)
			return nil
		}
	}
	for i := 0; i < 4; i++ {
		b.Write8(byteAccess(a, i), byte(value>>(8*i)))
	}
	return nil
}

func byteAccess(a addr.Access, delta int) addr.Access {
	out := a
	out.Address = addr.Addr(uint32(a.Address) + uint32(delta))
	out.WidthBits = 8
	return out
}

// Peek8 is a side-effect-suppressed read used by debuggers. It returns
// (0, false) if the resolved target lacks SupportsPeek or a Peeker
// implementation (spec §7 "CapabilityError").
func (b *PagedBus) Peek8(a addr.Addr) (uint8, bool) {
	r := b.resolve(a, addr.IntentPeekRead)
	if r.target == nil || !r.caps.Has(addr.CapSupportsPeek) {
		return 0, false
	}
	p, ok := r.target.(Peeker)
	if !ok {
		return 0, false
	}
	return p.Peek8(b.offsetFor(a, r)), true
}

// Poke8 is a side-effect-suppressed write used by debuggers. It is a no-op
// if the resolved target lacks SupportsPoke or a Poker implementation.
func (b *PagedBus) Poke8(a addr.Addr, value uint8) bool {
	r := b.resolve(a, addr.IntentPokeWrite)
	if r.target == nil || !r.caps.Has(addr.CapSupportsPoke) {
		return false
	}
	p, ok := r.target.(Poker)
	if !ok {
		return false
	}
	p.Poke8(b.offsetFor(a, r), value)
	return true
}

// RegionTagAt reports the currently layer-resolved region tag visible at
// address a, without performing a read or write. CPU cores use this to
// classify an about-to-be-fetched address (ROM vs. bank-switched RAM vs.
// I/O) before consulting the trap registry, since trap dispatch is keyed
// on memory context, not raw address.
func (b *PagedBus) RegionTagAt(a addr.Addr) addr.RegionTag {
	return b.resolve(a, addr.IntentPeekRead).region
}

// EntryAt returns the raw page table entry (not layer-resolved) covering
// address a, for debugger/introspection use.
func (b *PagedBus) EntryAt(a addr.Addr) (Entry, bool) {
	page := a.Page()
	if int(page) >= len(b.pages) {
		return Entry{}, false
	}
	return b.pages[page], true
}
