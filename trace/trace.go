// Package trace implements the fixed-capacity bus trace ring buffer (spec
// §4.1, §9). Capacity is always a power of two so the write index can wrap
// with a bitmask instead of a modulo.
//
// Grounded on IntuitionEngine's atomic-counter style (terminal_io.go's
// atomic.Int64 lastStatusRead, machine_bus.go's atomic.Bool sealed): each
// slot carries a sequence counter so a concurrent reader (the §5 "external
// observer" thread) can detect a torn read and retry, the same
// seqlock shape used for lock-free single-writer/many-reader state there.
package trace

import (
	"sync/atomic"

	"github.com/otleyzayn/apple2core/addr"
)

// Record is one captured bus access.
type Record struct {
	Cycle      addr.Cycle
	Address    addr.Addr
	Value      uint32
	WidthBits  int
	Intent     addr.Intent
	Flags      addr.AccessFlags
	SourceID   int32
	DeviceID   int32
	RegionTag  addr.RegionTag
	Decomposed bool
}

// slot pairs a record with a sequence number. An even sequence means the
// slot is stable and readable; odd means a writer is mid-update. This is
// the standard seqlock pattern.
type slot struct {
	seq atomic.Uint64
	rec Record
}

// Buffer is a power-of-two-capacity, single-writer/multi-reader ring
// buffer of trace records.
type Buffer struct {
	slots    []slot
	mask     uint64
	written  atomic.Uint64
	overflow atomic.Uint64
	enabled  atomic.Bool
}

// NewBuffer allocates a buffer. capacity is rounded up to the next power of
// two if it is not one already, and to at least 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	n := 1
	for n < capacity {
		n <<= 1
	}
	b := &Buffer{slots: make([]slot, n), mask: uint64(n - 1)}
	b.enabled.Store(true)
	return b
}

// SetEnabled turns capture on or off without discarding existing contents.
func (b *Buffer) SetEnabled(on bool) { b.enabled.Store(on) }

// Enabled reports the current capture state.
func (b *Buffer) Enabled() bool { return b.enabled.Load() }

// Push records one access. Only ever called from the emulator thread.
func (b *Buffer) Push(r Record) {
	if !b.enabled.Load() {
		return
	}
	idx := b.written.Load() & b.mask
	s := &b.slots[idx]

	wasOccupied := b.written.Load() >= uint64(len(b.slots))
	if wasOccupied {
		b.overflow.Add(1)
	}

	seq := s.seq.Load()
	s.seq.Store(seq + 1) // now odd: writer in progress
	s.rec = r
	s.seq.Store(seq + 2) // now even: stable again

	b.written.Add(1)
}

// Snapshot returns every currently resident record, oldest first, using
// (totalWritten, capacity) to determine the resident window per spec §9.
// A reader racing the writer on the most recent slot will retry internally
// until it observes a stable (even) sequence.
func (b *Buffer) Snapshot() []Record {
	total := b.written.Load()
	n := uint64(len(b.slots))
	count := total
	if count > n {
		count = n
	}
	start := total - count

	out := make([]Record, 0, count)
	for i := start; i < total; i++ {
		idx := i & b.mask
		out = append(out, b.readStable(idx))
	}
	return out
}

func (b *Buffer) readStable(idx uint64) Record {
	s := &b.slots[idx]
	for {
		seq1 := s.seq.Load()
		if seq1&1 != 0 {
			continue // writer mid-update, retry
		}
		rec := s.rec
		seq2 := s.seq.Load()
		if seq1 == seq2 {
			return rec
		}
	}
}

// TotalWritten returns the number of records ever pushed, including
// overwritten ones.
func (b *Buffer) TotalWritten() uint64 { return b.written.Load() }

// Overwritten returns the number of records that were evicted by wraparound,
// whether or not a Snapshot had already copied them — the "lost" counter of
// spec §9.
func (b *Buffer) Overwritten() uint64 { return b.overflow.Load() }

// Capacity returns the buffer's slot count (always a power of two).
func (b *Buffer) Capacity() int { return len(b.slots) }
