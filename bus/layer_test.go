package bus

import (
	"testing"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/stretchr/testify/require"
)

type fixedLayer struct {
	name     string
	priority int32
	active   bool
	base     addr.Addr
	size     uint32
	target   Target
}

func (l *fixedLayer) Name() string                        { return l.name }
func (l *fixedLayer) Priority() int32                      { return l.priority }
func (l *fixedLayer) IsActive() bool                       { return l.active }
func (l *fixedLayer) AddressRange() (addr.Addr, uint32)    { return l.base, l.size }
func (l *fixedLayer) Resolve(a addr.Addr, intent addr.Intent) (Resolution, bool) {
	if !l.active {
		return Resolution{}, false
	}
	return Resolution{Target: l.target, PhysBase: 0, Perms: addr.PermRead | addr.PermWrite, RegionTag: addr.RegionRam, Caps: l.target.Caps()}, true
}

// TestLayerPriorityOrderingAndTiebreak covers spec invariant §8.5: two
// layers covering the same address resolve deterministically by priority,
// then by registration order.
func TestLayerPriorityOrderingAndTiebreak(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)

	lowTarget := NewRam("low", newFakeBlock(0x1000))
	highTarget := NewRam("high", newFakeBlock(0x1000))

	low := &fixedLayer{name: "low", priority: 1, active: true, base: 0, size: addr.PageSize, target: lowTarget}
	high := &fixedLayer{name: "high", priority: 5, active: true, base: 0, size: addr.PageSize, target: highTarget}

	require.NoError(t, b.RegisterCompositeLayer(low))
	require.NoError(t, b.RegisterCompositeLayer(high))

	v, fault := b.Read8(addr.Access{Address: 0, Intent: addr.IntentDataRead})
	require.Nil(t, fault)
	_ = v

	e, _ := b.EntryAt(0)
	require.Equal(t, addr.RegionUnmapped, e.Region) // page table itself stays unmapped; layer overrides per-access

	resolved := b.resolve(0, addr.IntentDataRead)
	require.Equal(t, highTarget, resolved.target, "higher priority layer must win regardless of registration order")

	tie := &fixedLayer{name: "tie", priority: 5, active: true, base: 0, size: addr.PageSize, target: NewRam("tie", newFakeBlock(0x1000))}
	require.NoError(t, b.RegisterCompositeLayer(tie))
	resolved = b.resolve(0, addr.IntentDataRead)
	require.Equal(t, highTarget, resolved.target, "equal priority resolves to the earlier-registered layer")
}

func TestInactiveLayerFallsThroughToNextCandidate(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	fallbackTarget := NewRam("fallback", newFakeBlock(0x1000))

	inactive := &fixedLayer{name: "inactive", priority: 9, active: false, base: 0, size: addr.PageSize, target: NewRam("unused", newFakeBlock(0x1000))}
	fallback := &fixedLayer{name: "fallback", priority: 1, active: true, base: 0, size: addr.PageSize, target: fallbackTarget}

	require.NoError(t, b.RegisterCompositeLayer(inactive))
	require.NoError(t, b.RegisterCompositeLayer(fallback))

	resolved := b.resolve(0, addr.IntentDataRead)
	require.Equal(t, fallbackTarget, resolved.target)
}

func TestUnregisterCompositeLayer(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	l := &fixedLayer{name: "l", priority: 1, active: true, base: 0, size: addr.PageSize, target: NewRam("t", newFakeBlock(0x1000))}
	require.NoError(t, b.RegisterCompositeLayer(l))
	require.True(t, b.UnregisterCompositeLayer("l"))
	require.False(t, b.UnregisterCompositeLayer("l"))

	resolved := b.resolve(0, addr.IntentDataRead)
	require.Nil(t, resolved.target)
}
