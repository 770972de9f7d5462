package bus

import (
	"testing"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/stretchr/testify/require"
)

// TestAux80StoreSpecialPageReadWriteAsymmetry covers spec scenario S2:
// with 80STORE and PAGE2 both set, a read of text page 1 ($0400-$07FF)
// follows PAGE2 (reads aux), but a write to the same address still
// follows RAMWRT rather than PAGE2.
func TestAux80StoreSpecialPageReadWriteAsymmetry(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)

	main := NewRam("main", newFakeBlock(0xC000))
	aux := NewRam("aux", newFakeBlock(0xC000))
	main.block.WriteByte(uint32(textPage1Base), 'M')
	aux.block.WriteByte(uint32(textPage1Base), 'A')

	layer := NewAux80Layer(10, main, aux)
	require.NoError(t, b.RegisterCompositeLayer(layer))

	layer.Set80Store(true)
	layer.SetPage2(true)
	layer.SetRamwrt(false) // RAMWRT clear -> writes should land in main

	v, fault := b.Read8(addr.Access{Address: textPage1Base, Intent: addr.IntentDataRead})
	require.Nil(t, fault)
	require.Equal(t, uint8('A'), v, "80STORE+PAGE2 special page read must follow PAGE2 into aux")

	fault = b.Write8(addr.Access{Address: textPage1Base, Intent: addr.IntentDataWrite}, 'X')
	require.Nil(t, fault)
	require.Equal(t, byte('X'), main.block.ReadByte(uint32(textPage1Base)), "special page write must still follow RAMWRT, not PAGE2")
	require.Equal(t, byte('A'), aux.block.ReadByte(uint32(textPage1Base)), "aux must be untouched by the RAMWRT-routed write")
}

func TestAux80NonSpecialPageFollowsRamrdRamwrt(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	main := NewRam("main", newFakeBlock(0xC000))
	aux := NewRam("aux", newFakeBlock(0xC000))
	layer := NewAux80Layer(10, main, aux)
	require.NoError(t, b.RegisterCompositeLayer(layer))

	layer.SetRamrd(true)
	layer.SetRamwrt(true)

	const outsideSpecial = addr.Addr(0x1000)
	require.Nil(t, b.Write8(addr.Access{Address: outsideSpecial, Intent: addr.IntentDataWrite}, 0x7A))
	require.Equal(t, byte(0x7A), aux.block.ReadByte(uint32(outsideSpecial)))
	require.Equal(t, byte(0), main.block.ReadByte(uint32(outsideSpecial)))
}

func TestAux80OutOfRangeDoesNotIntercept(t *testing.T) {
	layer := NewAux80Layer(10, NewRam("main", newFakeBlock(0xC000)), NewRam("aux", newFakeBlock(0xC000)))
	_, ok := layer.Resolve(0xC100, addr.IntentDataRead)
	require.False(t, ok)
}
