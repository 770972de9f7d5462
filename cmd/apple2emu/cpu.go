package main

import (
	"github.com/otleyzayn/apple2core/addr"
	"github.com/otleyzayn/apple2core/bus"
	"github.com/otleyzayn/apple2core/signal"
	"github.com/otleyzayn/apple2core/trap"
)

// stubCPU is a placeholder machine.ICpu: it samples IRQ and fetches
// one byte per step without decoding anything. Real 6502/65C02/65816
// decoding lives outside this module — this exists only so the demo
// command has something to hand machine.Build, while still demonstrating
// how a real core would consult the trap registry before decoding.
type stubCPU struct {
	pc addr.Addr
}

func newStubCPU(resetVector addr.Addr) *stubCPU {
	return &stubCPU{pc: resetVector}
}

func (c *stubCPU) Reset(b *bus.PagedBus) {
	lo, _ := b.Read8(addr.Access{Address: 0xFFFC, Intent: addr.IntentDataRead})
	hi, _ := b.Read8(addr.Access{Address: 0xFFFD, Intent: addr.IntentDataRead})
	c.pc = addr.Addr(uint32(lo) | uint32(hi)<<8)
}

// contextFor maps the region a fetch address currently resolves to onto
// the trap package's coarser context enum. It collapses the two
// language-card-bank contexts and aux-RAM into ContextRam since this stub
// has no notion of which bank/aux-store state it is executing under; a
// real core would track that itself and pass the narrower context.
func contextFor(tag addr.RegionTag) trap.Context {
	switch tag {
	case addr.RegionRom:
		return trap.ContextRom
	case addr.RegionRam:
		return trap.ContextRam
	case addr.RegionIo:
		return trap.ContextIO
	default:
		return trap.ContextAny
	}
}

func (c *stubCPU) Step(b *bus.PagedBus, sig *signal.Bus, traps *trap.Registry) (addr.Cycle, error) {
	if sig.Sample(signal.LineIRQ) == signal.Asserted {
		// A real core would vector through $FFFE/$FFFF here; the stub just
		// observes the line so signal plumbing stays exercised end to end.
		_ = sig
	}

	if traps != nil {
		ctx := contextFor(b.RegionTagAt(c.pc))
		if res, handled := traps.TryExecute(c.pc, trap.OpExecute, ctx, 0); handled {
			if res.HasReturnAddress {
				c.pc = res.ReturnAddress
			} else {
				c.pc++
			}
			if res.Cycles > 0 {
				return res.Cycles, nil
			}
			return 2, nil
		}
	}

	_, _ = b.Read8(addr.Access{Address: c.pc, Intent: addr.IntentInstructionFetch})
	c.pc++
	return 2, nil
}
