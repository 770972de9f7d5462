package bus

import (
	"testing"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/otleyzayn/apple2core/device"
	"github.com/stretchr/testify/require"
)

type fakeBlock struct {
	data []byte
}

func newFakeBlock(size int) *fakeBlock { return &fakeBlock{data: make([]byte, size)} }

func (f *fakeBlock) ReadByte(offset uint32) byte     { return f.data[offset] }
func (f *fakeBlock) WriteByte(offset uint32, v byte) { f.data[offset] = v }
func (f *fakeBlock) Size() int                       { return len(f.data) }

func TestNewRejectsOutOfRangeBits(t *testing.T) {
	_, err := New(11)
	require.Error(t, err)
	_, err = New(33)
	require.Error(t, err)
}

func TestMapPageAndRoundTripRAM(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)

	ram := NewRam("ram", newFakeBlock(0x10000))
	err = b.MapPageRange(0, 16, func(pageIndex uint32) Entry {
		return Entry{
			DeviceID: device.ID(1),
			Region:   addr.RegionRam,
			Perms:    addr.PermRead | addr.PermWrite,
			Caps:     ram.Caps(),
			Target:   ram,
			PhysBase: pageIndex * addr.PageSize,
		}
	})
	require.NoError(t, err)

	a := addr.Access{Address: 0x1234, Intent: addr.IntentDataWrite}
	require.Nil(t, b.Write8(a, 0x42))
	v, fault := b.Read8(addr.Access{Address: 0x1234, Intent: addr.IntentDataRead})
	require.Nil(t, fault)
	require.Equal(t, uint8(0x42), v)
}

func TestUnmappedAccessFaults(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	_, fault := b.Read8(addr.Access{Address: 0x2000, Intent: addr.IntentDataRead})
	require.NotNil(t, fault)
	require.Equal(t, addr.FaultUnmapped, fault.Kind)
}

func TestPermissionEnforcement(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	rom := NewRom("rom", newFakeBlock(0x1000))
	err = b.MapPage(0, Entry{
		DeviceID: device.ID(2),
		Region:   addr.RegionRom,
		Perms:    addr.PermRead | addr.PermExecute,
		Caps:     rom.Caps(),
		Target:   rom,
		PhysBase: 0,
	})
	require.NoError(t, err)

	fault := b.Write8(addr.Access{Address: 0x10, Intent: addr.IntentDataWrite}, 0x99)
	require.NotNil(t, fault)
	require.Equal(t, addr.FaultPermission, fault.Kind)

	_, fault = b.Read8(addr.Access{Address: 0x10, Intent: addr.IntentDataRead})
	require.Nil(t, fault)
}

func TestPeekPurityDoesNotRequirePermission(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	rom := NewRom("rom", newFakeBlock(0x1000))
	rom.block.WriteByte(0x50, 0xAB)
	require.NoError(t, b.MapPage(0, Entry{
		DeviceID: device.ID(3),
		Region:   addr.RegionRom,
		Perms:    addr.PermExecute, // deliberately no PermRead
		Caps:     rom.Caps(),
		Target:   rom,
		PhysBase: 0,
	}))

	v, ok := b.Peek8(0x50)
	require.True(t, ok)
	require.Equal(t, uint8(0xAB), v)

	_, fault := b.Read8(addr.Access{Address: 0x50, Intent: addr.IntentDataRead})
	require.NotNil(t, fault)
}

func TestWideAccessDecomposesAcrossTargetBoundary(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	ram1 := NewRam("ram1", newFakeBlock(0x1000))
	ram2 := NewRam("ram2", newFakeBlock(0x1000))

	require.NoError(t, b.MapPage(0, Entry{DeviceID: 1, Region: addr.RegionRam, Perms: addr.PermRead | addr.PermWrite, Caps: ram1.Caps(), Target: ram1, PhysBase: 0}))
	require.NoError(t, b.MapPage(1, Entry{DeviceID: 2, Region: addr.RegionRam, Perms: addr.PermRead | addr.PermWrite, Caps: ram2.Caps(), Target: ram2, PhysBase: 0}))

	err2 := b.Write16(addr.Access{Address: 0xFFF, Intent: addr.IntentDataWrite}, 0xBEEF)
	require.Nil(t, err2)

	v, fault := b.Read16(addr.Access{Address: 0xFFF, Intent: addr.IntentDataRead})
	require.Nil(t, fault)
	require.Equal(t, uint16(0xBEEF), v)
}
