package bus

import (
	"fmt"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/otleyzayn/apple2core/device"
	"github.com/otleyzayn/apple2core/trace"
)

// ConfigError reports a build-time configuration mistake: duplicate
// layer/group/variant names, invalid permissions, an impossible page
// range. It is fatal to machine construction (spec §7
// "ConfigurationError").
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "bus: " + e.Reason }

// Entry is one page table slot (spec §3 "Page-table entry"). Target is
// nil iff Region == addr.RegionUnmapped.
type Entry struct {
	DeviceID device.ID
	Region   addr.RegionTag
	Perms    addr.Perm
	Caps     addr.Cap
	Target   Target
	PhysBase uint32
}

func (e Entry) mapped() bool { return e.Region != addr.RegionUnmapped }

// PagedBus is the fixed-4KiB-page memory bus that serves every CPU-visible
// access (spec §4.1, C6). Address-space width is fixed at construction;
// reconfiguring it requires building a new bus.
//
// Grounded on IntuitionEngine's MachineBus (machine_bus.go): a single
// struct owning the address space plus an I/O-region side table, here
// generalized from "one flat 32MB RAM block with byte-range I/O regions"
// to "a page table of independently typed, independently permissioned
// targets with layered dynamic overrides".
type PagedBus struct {
	bits  int
	pages []Entry

	layers         []registeredLayer
	nextLayerOrder int
	candidates     [][]Layer

	groups      []*swapGroup
	groupByName map[string]GroupID

	trace *trace.Buffer
}

// New builds a PagedBus for an address space of the given width in bits
// (12-32). Every page starts unmapped.
func New(bits int) (*PagedBus, error) {
	if bits < 12 || bits > 32 {
		return nil, &ConfigError{Reason: fmt.Sprintf("address_space_bits %d out of range [12,32]", bits)}
	}
	pageCount := addr.PageCount(bits)
	b := &PagedBus{
		bits:        bits,
		pages:       make([]Entry, pageCount),
		candidates:  make([][]Layer, pageCount),
		groupByName: make(map[string]GroupID),
	}
	for i := range b.pages {
		b.pages[i] = Entry{DeviceID: device.None, Region: addr.RegionUnmapped}
	}
	return b, nil
}

// AddressSpaceBits returns the width the bus was constructed with.
func (b *PagedBus) AddressSpaceBits() int { return b.bits }

// PageCount returns the number of 4KiB pages in the address space.
func (b *PagedBus) PageCount() uint32 { return uint32(len(b.pages)) }

// EnableTrace installs (or replaces) the trace ring buffer. Pass nil to
// disable tracing entirely.
func (b *PagedBus) EnableTrace(buf *trace.Buffer) { b.trace = buf }

// Trace returns the currently installed trace buffer, or nil.
func (b *PagedBus) Trace() *trace.Buffer { return b.trace }

// MapPage installs entry at the given page index.
func (b *PagedBus) MapPage(index uint32, entry Entry) error {
	if index >= uint32(len(b.pages)) {
		return &ConfigError{Reason: fmt.Sprintf("page index %d out of range", index)}
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	b.pages[index] = entry
	return nil
}

// MapPageRange installs count pages starting at first, each produced by
// factory(pageIndex). factory lets callers derive PhysBase per page (e.g.
// a RAM block spanning many pages) without hand-computing every Entry.
func (b *PagedBus) MapPageRange(first, count uint32, factory func(pageIndex uint32) Entry) error {
	if first+count > uint32(len(b.pages)) || first+count < first {
		return &ConfigError{Reason: "map_page_range exceeds address space"}
	}
	for i := uint32(0); i < count; i++ {
		entry := factory(first + i)
		if err := validateEntry(entry); err != nil {
			return err
		}
		b.pages[first+i] = entry
	}
	return nil
}

func validateEntry(e Entry) error {
	if e.mapped() {
		if e.Target == nil {
			return &ConfigError{Reason: "mapped entry has nil target"}
		}
		if uint64(e.PhysBase)+addr.PageSize > uint64(e.Target.Size()) {
			return &ConfigError{Reason: fmt.Sprintf("entry phys_base %#x + page size exceeds target %q size %#x", e.PhysBase, e.Target.Name(), e.Target.Size())}
		}
	} else if e.Target != nil {
		return &ConfigError{Reason: "unmapped entry carries a non-nil target"}
	}
	return nil
}

// resolved is the fully-resolved view of one access: page table entry
// possibly overridden by a composite layer.
type resolved struct {
	target   Target
	physBase uint32
	perms    addr.Perm
	region   addr.RegionTag
	caps     addr.Cap
	deviceID device.ID
}

func (b *PagedBus) resolve(a addr.Addr, intent addr.Intent) resolved {
	if res, ok := b.resolveLayer(a, intent); ok {
		page := a.Page()
		dev := device.None
		if int(page) < len(b.pages) {
			dev = b.pages[page].DeviceID
		}
		return resolved{
			target:   res.Target,
			physBase: res.PhysBase,
			perms:    res.Perms,
			region:   res.RegionTag,
			caps:     res.Caps,
			deviceID: dev,
		}
	}
	page := a.Page()
	if int(page) >= len(b.pages) {
		return resolved{region: addr.RegionUnmapped, deviceID: device.None}
	}
	e := b.pages[page]
	return resolved{
		target:   e.Target,
		physBase: e.PhysBase,
		perms:    e.Perms,
		region:   e.Region,
		caps:     e.Caps,
		deviceID: e.DeviceID,
	}
}

func (r resolved) checkAccess(a addr.Addr, intent addr.Intent) *addr.Fault {
	if r.region == addr.RegionUnmapped || r.target == nil {
		return &addr.Fault{Kind: addr.FaultUnmapped, Address: a, Intent: intent}
	}
	want := intent.RequiredPerm()
	if want != 0 && !r.perms.Has(want) {
		return &addr.Fault{Kind: addr.FaultPermission, Address: a, Intent: intent}
	}
	return nil
}

func (b *PagedBus) offsetFor(a addr.Addr, r resolved) uint32 {
	return r.physBase + a.Offset()
}

func (b *PagedBus) pushTrace(a addr.Addr, value uint32, width int, intent addr.Intent, flags addr.AccessFlags, sourceID int32, cycle addr.Cycle, r resolved, decomposed bool) {
	if b.trace == nil {
		return
	}
	b.trace.Push(trace.Record{
		Cycle:      cycle,
		Address:    a,
		Value:      value,
		WidthBits:  width,
		Intent:     intent,
		Flags:      flags,
		SourceID:   sourceID,
		DeviceID:   int32(r.deviceID),
		RegionTag:  r.region,
		Decomposed: decomposed,
	})
}
