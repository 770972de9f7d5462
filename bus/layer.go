package bus

import "github.com/otleyzayn/apple2core/addr"

// Resolution is what a composite layer hands back when it intercepts an
// access: a read-only tuple overriding the page table's view of an
// address for the duration of one access (spec §3 "Composite layer").
type Resolution struct {
	Target    Target
	PhysBase  uint32
	Perms     addr.Perm
	RegionTag addr.RegionTag
	Caps      addr.Cap
}

// Layer is a dynamic, per-access overlay on the page table (spec §4.2).
// Resolve must be pure given the layer's current internal state: two
// successive calls with the same (addr, intent) and no intervening state
// change must return the same Resolution (spec invariant §8.5).
type Layer interface {
	Name() string
	Priority() int32
	IsActive() bool
	// AddressRange returns the contiguous [base, base+size) window this
	// layer can ever intercept, used to build the per-page candidate list.
	AddressRange() (base addr.Addr, size uint32)
	Resolve(a addr.Addr, intent addr.Intent) (Resolution, bool)
}

// registeredLayer pairs a Layer with its registration order, used to break
// priority ties (earlier registration wins, spec §4.2).
type registeredLayer struct {
	layer Layer
	order int
}

// RegisterCompositeLayer adds a layer to the bus. Layers are consulted in
// descending priority order, ties broken by registration order; the page
// table itself behaves as priority = -infinity and is always the final
// fallback.
func (b *PagedBus) RegisterCompositeLayer(l Layer) error {
	for _, rl := range b.layers {
		if rl.layer.Name() == l.Name() {
			return &ConfigError{Reason: "duplicate composite layer name " + l.Name()}
		}
	}
	rl := registeredLayer{layer: l, order: b.nextLayerOrder}
	b.nextLayerOrder++
	b.layers = append(b.layers, rl)
	b.sortLayers()
	b.rebuildCandidates()
	return nil
}

// UnregisterCompositeLayer removes a previously registered layer by name.
func (b *PagedBus) UnregisterCompositeLayer(name string) bool {
	for i, rl := range b.layers {
		if rl.layer.Name() == name {
			b.layers = append(b.layers[:i], b.layers[i+1:]...)
			b.rebuildCandidates()
			return true
		}
	}
	return false
}

func (b *PagedBus) sortLayers() {
	// Insertion sort: layer counts are tiny (spec §9 suggests <=4 typical)
	// and this preserves registration order as the tiebreak without
	// needing a custom less-stable sort.Slice comparator dance.
	for i := 1; i < len(b.layers); i++ {
		j := i
		for j > 0 && b.layers[j].layer.Priority() > b.layers[j-1].layer.Priority() {
			b.layers[j], b.layers[j-1] = b.layers[j-1], b.layers[j]
			j--
		}
	}
}

// rebuildCandidates recomputes, for every page, the list of layers whose
// address range overlaps it. This is the precomputed "which layers could
// intercept" cache from spec §9: the hot path walks only this short list
// instead of every registered layer.
func (b *PagedBus) rebuildCandidates() {
	for i := range b.candidates {
		b.candidates[i] = b.candidates[i][:0]
	}
	for _, rl := range b.layers {
		base, size := rl.layer.AddressRange()
		if size == 0 {
			continue
		}
		firstPage := uint32(base) >> addr.PageShift
		lastAddr := uint32(base) + size - 1
		lastPage := lastAddr >> addr.PageShift
		for p := firstPage; p <= lastPage && p < uint32(len(b.candidates)); p++ {
			b.candidates[p] = append(b.candidates[p], rl.layer)
		}
	}
}

// resolveLayer walks the candidate list for a's page in priority order and
// returns the first active layer's Resolution, if any.
func (b *PagedBus) resolveLayer(a addr.Addr, intent addr.Intent) (Resolution, bool) {
	page := a.Page()
	if int(page) >= len(b.candidates) {
		return Resolution{}, false
	}
	for _, l := range b.candidates[page] {
		if !l.IsActive() {
			continue
		}
		if res, ok := l.Resolve(a, intent); ok {
			return res, true
		}
	}
	return Resolution{}, false
}
