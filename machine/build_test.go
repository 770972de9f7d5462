package machine

import (
	"testing"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/otleyzayn/apple2core/ioport"
	"github.com/otleyzayn/apple2core/profile"
	"github.com/otleyzayn/apple2core/trap"
	"github.com/stretchr/testify/require"
)

func buildableProfile() *profile.Profile {
	return &profile.Profile{
		Name: "test",
		CPU:  profile.CPU{Type: "65C02", ClockSpeedHz: 1020484},
		Memory: profile.Memory{
			AddressSpaceBits: 16,
			Physical: []profile.PhysicalBlock{
				{Name: "mainram", SizeKiB: 48},
				{Name: "auxram", SizeKiB: 48},
				{Name: "lcbank1", SizeKiB: 4},
				{Name: "lcbank2", SizeKiB: 4},
				{Name: "lcupper", SizeKiB: 8},
			},
			Regions: []profile.Region{
				{Name: "lomem", Base: 0, SizeKiB: 48, Block: "mainram", Offset: 0, Perms: "rw", RegionTag: "ram"},
			},
		},
		Devices: profile.Devices{
			Motherboard: []profile.MotherboardDevice{
				{Name: "lc", Type: "languagecard", Enabled: true, Config: map[string]string{
					"bank1": "lcbank1", "bank2": "lcbank2", "upper": "lcupper",
				}},
				{Name: "aux", Type: "extended80column", Enabled: true, Config: map[string]string{
					"main": "mainram", "aux": "auxram",
				}},
			},
		},
	}
}

// TestBuildWiresLanguageCardAndAux80Layers covers scenario S7: the
// language-card RAM trap must stay silent until the soft switch that
// enables language-card RAM read is actually hit, and the composite
// layers/devices named in the motherboard section must be reachable from
// the one real assembly path, not just their own package tests.
func TestBuildWiresLanguageCardAndAux80Layers(t *testing.T) {
	p := buildableProfile()
	io := ioport.NewIOPage("c000io", nil)

	m, err := Build(p, &fakeCPU{}, io)
	require.NoError(t, err)

	paths := map[string]bool{}
	for _, info := range m.Devices().All() {
		paths[info.WiringPath] = true
	}
	require.True(t, paths["motherboard/languagecard/lc/layer"])
	require.True(t, paths["motherboard/extended80column/aux/layer"])

	called := false
	m.Traps().RegisterLanguageCardRAM("test", 0xD000, trap.OpExecute, func(addr.Addr, trap.Operation, byte) trap.Result {
		called = true
		return trap.Result{Handled: true}
	})

	_, handled := m.Traps().TryExecute(0xD000, trap.OpExecute, trap.ContextAny, 0)
	require.False(t, handled, "must not fire before the language-card RAM read soft switch is hit")

	io.Write8(0x80, 0) // offset 0 (mode 0, bank 1): enable RAM read
	_, handled = m.Traps().TryExecute(0xD000, trap.OpExecute, trap.ContextAny, 0)
	require.True(t, handled)
	require.True(t, called)
}

func TestBuildSkipsDisabledMotherboardDevices(t *testing.T) {
	p := buildableProfile()
	p.Devices.Motherboard[0].Enabled = false
	io := ioport.NewIOPage("c000io", nil)

	m, err := Build(p, &fakeCPU{}, io)
	require.NoError(t, err)

	for _, info := range m.Devices().All() {
		require.NotEqual(t, "motherboard/languagecard/lc/layer", info.WiringPath)
	}
}

func TestBuildAppliesInternalRomSoftSwitchesFromProfile(t *testing.T) {
	p := buildableProfile()
	p.Devices.Slots.InternalCxRom = true
	io := ioport.NewIOPage("c000io", nil)

	_, err := Build(p, &fakeCPU{}, io)
	require.NoError(t, err)
	require.True(t, io.IntCxRom())
}
