package ioport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSoftSwitchDispatch(t *testing.T) {
	p := NewIOPage("io", nil)
	var written byte
	p.RegisterSoftSwitch(0x30, func(uint32) byte { return 0x99 }, func(_ uint32, v byte) { written = v })

	require.Equal(t, byte(0x99), p.Read8(0x30))
	p.Write8(0x30, 0x55)
	require.Equal(t, byte(0x55), written)
}

func TestUnregisteredSoftSwitchReadsFloatingBus(t *testing.T) {
	p := NewIOPage("io", nil)
	require.Equal(t, FloatingBus, p.Read8(0x05))
}

// TestSlotROMSelectionSideEffect covers spec scenario S3: reading a
// slot's $CN00-$CNFF ROM window selects that slot for subsequent
// $C800-$CFFF expansion accesses.
func TestSlotROMSelectionSideEffect(t *testing.T) {
	p := NewIOPage("io", nil)
	romData := make([]byte, 256)
	romData[0] = 0xAA
	p.InstallSlotROM(6, romData)

	v := p.Read8(0x600)
	require.Equal(t, byte(0xAA), v)
	require.Equal(t, 6, p.SelectedSlot())
}

func TestExpansionROMFollowsSelectedSlot(t *testing.T) {
	p := NewIOPage("io", nil)
	p.InstallSlotROM(6, make([]byte, 256))
	exp := make([]byte, 0x800)
	exp[0] = 0xCC
	p.InstallExpansionROM(6, exp)

	p.Read8(0x600) // select slot 6
	require.Equal(t, byte(0xCC), p.Read8(expRomStart))
}

func TestCFFFSentinelDeselectsSlot(t *testing.T) {
	p := NewIOPage("io", nil)
	p.InstallSlotROM(6, make([]byte, 256))
	p.Read8(0x600)
	require.Equal(t, 6, p.SelectedSlot())

	p.Read8(sentinel)
	require.Equal(t, 0, p.SelectedSlot())
}

func TestIntCxRomOverridesWholeSlotWindowAndSuppressesSelection(t *testing.T) {
	internal := make([]byte, 0x700)
	internal[0x500] = 0xEE // offset for slot 6: (0x600-0x100) = 0x500
	p := NewIOPage("io", internal)
	p.SetIntCxRom(true)
	p.InstallSlotROM(6, []byte{0xAA})

	v := p.Read8(0x600)
	require.Equal(t, byte(0xEE), v)
	require.Equal(t, 0, p.SelectedSlot(), "INTCXROM suppresses the slot-selection side effect")
}

func TestIntC3RomOnlyOverridesSlotThree(t *testing.T) {
	internal := make([]byte, 0x700)
	internal[0x200] = 0xDD // offset for slot 3: (0x300-0x100) = 0x200
	p := NewIOPage("io", internal)
	p.SetIntC3Rom(true)
	p.InstallSlotROM(3, []byte{0x11})
	p.InstallSlotROM(6, []byte{0x22})

	require.Equal(t, byte(0xDD), p.Read8(0x300))
	require.Equal(t, byte(0x22), p.Read8(0x600))
	require.Equal(t, 6, p.SelectedSlot(), "slot-3 override still performs the selection side effect")
}
