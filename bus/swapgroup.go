package bus

import (
	"github.com/otleyzayn/apple2core/addr"
	"github.com/otleyzayn/apple2core/device"
)

// GroupID identifies a swap group, assigned sequentially at registration
// (spec §4.3).
type GroupID int32

// Variant is one named mapping a swap group can switch to. Only Target,
// PhysBase and Perms are overridden on select; DeviceID, RegionTag and
// Caps are preserved from the page table state as of group creation (spec
// §3 "Swap group").
type Variant struct {
	Target   Target
	PhysBase uint32
	Perms    addr.Perm
}

type swapGroup struct {
	name        string
	virtualBase addr.Addr
	size        uint32
	variants    map[string]Variant
	active      string
	hasActive   bool

	// Metadata frozen at creation time, one slot per page in range.
	deviceID []device.ID
	region   []addr.RegionTag
	caps     []addr.Cap
}

// CreateSwapGroup registers a new swap group spanning [virtualBase,
// virtualBase+size). virtualBase must be page-aligned and size a multiple
// of the page size. The group's preserved per-page metadata (device_id,
// region_tag, caps) is captured from the bus's current page table state.
func (b *PagedBus) CreateSwapGroup(name string, virtualBase addr.Addr, size uint32) (GroupID, error) {
	if _, exists := b.groupByName[name]; exists {
		return 0, &ConfigError{Reason: "duplicate swap group name " + name}
	}
	if uint32(virtualBase)%addr.PageSize != 0 {
		return 0, &ConfigError{Reason: "swap group " + name + ": virtual_base not page-aligned"}
	}
	if size%addr.PageSize != 0 || size == 0 {
		return 0, &ConfigError{Reason: "swap group " + name + ": size not a positive multiple of the page size"}
	}
	firstPage := virtualBase.Page()
	pages := size / addr.PageSize
	if firstPage+pages > uint32(len(b.pages)) {
		return 0, &ConfigError{Reason: "swap group " + name + ": range exceeds address space"}
	}

	g := &swapGroup{
		name:        name,
		virtualBase: virtualBase,
		size:        size,
		variants:    make(map[string]Variant),
		deviceID:    make([]device.ID, pages),
		region:      make([]addr.RegionTag, pages),
		caps:        make([]addr.Cap, pages),
	}
	for i := uint32(0); i < pages; i++ {
		e := b.pages[firstPage+i]
		g.deviceID[i] = e.DeviceID
		g.region[i] = e.Region
		g.caps[i] = e.Caps
	}

	id := GroupID(len(b.groups))
	b.groups = append(b.groups, g)
	b.groupByName[name] = id
	return id, nil
}

// AddSwapVariant registers a named mapping within group. Duplicate variant
// names within a group are rejected.
func (b *PagedBus) AddSwapVariant(id GroupID, variantName string, target Target, physBase uint32, perms addr.Perm) error {
	g, err := b.group(id)
	if err != nil {
		return err
	}
	if _, exists := g.variants[variantName]; exists {
		return &ConfigError{Reason: "swap group " + g.name + ": duplicate variant name " + variantName}
	}
	g.variants[variantName] = Variant{Target: target, PhysBase: physBase, Perms: perms}
	return nil
}

// SelectSwapVariant atomically rewrites the page table entries for every
// page in the group's range to the named variant. From the perspective of
// any subsequent bus access this is a single transaction (spec §4.3,
// invariant §8.6): on a single-threaded core that's automatic since no
// other access can interleave with this call.
func (b *PagedBus) SelectSwapVariant(id GroupID, variantName string) error {
	g, err := b.group(id)
	if err != nil {
		return err
	}
	v, ok := g.variants[variantName]
	if !ok {
		return &ConfigError{Reason: "swap group " + g.name + ": unknown variant " + variantName}
	}

	firstPage := g.virtualBase.Page()
	pages := g.size / addr.PageSize
	if v.PhysBase+pages*addr.PageSize > v.Target.Size() {
		return &ConfigError{Reason: "swap group " + g.name + ": variant " + variantName + " too small for page range"}
	}
	for i := uint32(0); i < pages; i++ {
		idx := firstPage + i
		physBase := v.PhysBase + i*addr.PageSize
		b.pages[idx] = Entry{
			DeviceID: g.deviceID[i],
			Region:   g.region[i],
			Perms:    v.Perms,
			Caps:     g.caps[i],
			Target:   v.Target,
			PhysBase: physBase,
		}
	}
	g.active = variantName
	g.hasActive = true
	return nil
}

// GetActiveSwapVariant returns the name of the currently selected variant,
// if any.
func (b *PagedBus) GetActiveSwapVariant(id GroupID) (string, bool) {
	g, err := b.group(id)
	if err != nil {
		return "", false
	}
	return g.active, g.hasActive
}

func (b *PagedBus) group(id GroupID) (*swapGroup, error) {
	if id < 0 || int(id) >= len(b.groups) {
		return nil, &ConfigError{Reason: "unknown swap group id"}
	}
	return b.groups[id], nil
}
