// Package profile holds the decoded machine-profile structures consumed
// by machine.Build (spec §6). Decoding itself (JSON/YAML source format)
// is left to callers; this package only defines the shape and does light
// structural validation.
//
// Grounded on IntuitionEngine's config.go, which separates "what a config
// file says" (plain structs) from "how it's loaded" (a loader in a
// different file) the same way.
package profile

import "fmt"

// CPU describes the processor the profile wants instantiated.
type CPU struct {
	Type         string `json:"type"`
	ClockSpeedHz uint64 `json:"clock_speed_hz"`
}

// RomImage names a ROM file to be loaded into a named physical block.
type RomImage struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// PhysicalBlock describes one backing store: RAM or a loaded ROM image.
type PhysicalBlock struct {
	Name     string `json:"name"`
	SizeKiB  uint32 `json:"size_kib"`
	ROMImage string `json:"rom_image,omitempty"`
}

// Region describes one page-table mapping to install at build time.
type Region struct {
	Name      string `json:"name"`
	Base      uint32 `json:"base"`
	SizeKiB   uint32 `json:"size_kib"`
	Block     string `json:"block"`
	Offset    uint32 `json:"offset"`
	Perms     string `json:"perms"` // e.g. "rwx", "r", "rw"
	RegionTag string `json:"region_tag"`
}

// Memory groups the memory-related sections of a profile.
type Memory struct {
	AddressSpaceBits int             `json:"address_space_bits"`
	RomImages        []RomImage      `json:"rom_images"`
	Physical         []PhysicalBlock `json:"physical"`
	Regions          []Region        `json:"regions"`
}

// MotherboardDevice names one fixed onboard device to instantiate. Config
// carries device-specific parameters, e.g. which named physical blocks a
// languagecard device's banks back onto.
type MotherboardDevice struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Enabled bool              `json:"enabled"`
	Config  map[string]string `json:"config,omitempty"`
}

// SlotCard names a peripheral-card device plugged into a numbered slot
// (1-7).
type SlotCard struct {
	Slot   int               `json:"slot"`
	Type   string            `json:"type"`
	Config map[string]string `json:"config,omitempty"`
}

// SlotsConfig describes the $C000-$CFFF I/O page as a whole: which region
// backs it, whether it is present at all, the two internal-ROM soft
// switches, and the cards plugged into it.
type SlotsConfig struct {
	IORegionName  string     `json:"io_region_name"`
	Enabled       bool       `json:"enabled"`
	InternalC3Rom bool       `json:"internal_c3_rom"`
	InternalCxRom bool       `json:"internal_cx_rom"`
	Cards         []SlotCard `json:"cards,omitempty"`
}

// Devices groups the device sections of a profile.
type Devices struct {
	Motherboard []MotherboardDevice `json:"motherboard"`
	Slots       SlotsConfig         `json:"slots"`
}

// Boot describes where and how execution starts.
type Boot struct {
	ResetVectorOverride *uint32 `json:"reset_vector_override,omitempty"`
	AutoStart           bool    `json:"auto_start"`
	AutoVideoWindowOpen bool    `json:"auto_video_window_open"`
	StartupSlot         *int    `json:"startup_slot,omitempty"`
}

// Profile is the fully decoded description of one machine configuration.
type Profile struct {
	Name    string  `json:"name"`
	CPU     CPU     `json:"cpu"`
	Memory  Memory  `json:"memory"`
	Devices Devices `json:"devices"`
	Boot    Boot    `json:"boot"`
}

// Validate performs the structural checks machine.Build relies on before
// attempting to wire anything: every region must reference a declared
// physical block, and the address space must be wide enough for every
// region it places.
func (p *Profile) Validate() error {
	if p.Memory.AddressSpaceBits <= 0 || p.Memory.AddressSpaceBits > 32 {
		return fmt.Errorf("profile %q: address_space_bits %d out of range", p.Name, p.Memory.AddressSpaceBits)
	}
	blocks := make(map[string]PhysicalBlock, len(p.Memory.Physical))
	for _, b := range p.Memory.Physical {
		if _, dup := blocks[b.Name]; dup {
			return fmt.Errorf("profile %q: duplicate physical block %q", p.Name, b.Name)
		}
		blocks[b.Name] = b
	}
	limit := uint64(1) << uint(p.Memory.AddressSpaceBits)
	for _, r := range p.Memory.Regions {
		blk, ok := blocks[r.Block]
		if !ok {
			return fmt.Errorf("profile %q: region %q references unknown block %q", p.Name, r.Name, r.Block)
		}
		if uint64(r.Base)+uint64(r.SizeKiB)*1024 > limit {
			return fmt.Errorf("profile %q: region %q exceeds address space", p.Name, r.Name)
		}
		if uint64(r.Offset)+uint64(r.SizeKiB)*1024 > uint64(blk.SizeKiB)*1024 {
			return fmt.Errorf("profile %q: region %q exceeds block %q bounds", p.Name, r.Name, r.Block)
		}
	}
	for _, c := range p.Devices.Slots.Cards {
		if c.Slot < 1 || c.Slot > 7 {
			return fmt.Errorf("profile %q: slot card %q has out-of-range slot %d", p.Name, c.Type, c.Slot)
		}
	}
	if p.Boot.StartupSlot != nil && (*p.Boot.StartupSlot < 1 || *p.Boot.StartupSlot > 7) {
		return fmt.Errorf("profile %q: boot.startup_slot %d out of range", p.Name, *p.Boot.StartupSlot)
	}
	return nil
}
