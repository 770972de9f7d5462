package machine

import (
	"fmt"
	"os"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/otleyzayn/apple2core/bus"
	"github.com/otleyzayn/apple2core/device"
	"github.com/otleyzayn/apple2core/devices"
	"github.com/otleyzayn/apple2core/ioport"
	"github.com/otleyzayn/apple2core/physmem"
	"github.com/otleyzayn/apple2core/profile"
	"github.com/otleyzayn/apple2core/scheduler"
	"github.com/otleyzayn/apple2core/signal"
	"github.com/otleyzayn/apple2core/trap"
)

// compositeLayerPriority is the fixed priority every built-in composite
// layer registers at. Both layers cover disjoint address ranges ($D000+
// vs $0200-$BFFF), so registration order never needs to break a tie.
const compositeLayerPriority = 100

// Build assembles a Machine from a decoded profile (spec §6): constructs
// the bus at the requested width, loads and maps every physical block,
// installs the $C000-$CFFF I/O page, wires any language-card/extended-80-
// column composite layers the profile's motherboard section names, and
// registers a device.Registry entry for each configured device. The CPU
// core itself is supplied by the caller since this package defines no
// concrete cores.
//
// Grounded on IntuitionEngine's NewVM (vm.go), which walks a Config and
// builds each subsystem in the same dependency order: address space,
// then memory regions, then devices.
func Build(p *profile.Profile, cpu ICpu, io *ioport.IOPage) (*Machine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b, err := bus.New(p.Memory.AddressSpaceBits)
	if err != nil {
		return nil, err
	}

	blocks := make(map[string]*physmem.Block, len(p.Memory.Physical))
	for _, pb := range p.Memory.Physical {
		blk := physmem.NewBlock(pb.Name, int(pb.SizeKiB)*1024, 0)
		if pb.ROMImage != "" {
			img := findROMImage(p, pb.ROMImage)
			if img == "" {
				return nil, fmt.Errorf("machine: block %q references unknown rom_image %q", pb.Name, pb.ROMImage)
			}
			data, rerr := os.ReadFile(img)
			if rerr != nil {
				return nil, fmt.Errorf("machine: loading rom image %q: %w", img, rerr)
			}
			if err := blk.LoadImage(physmem.ImageSource{Name: pb.ROMImage, Offset: 0, Data: data}); err != nil {
				return nil, fmt.Errorf("machine: block %q: %w", pb.Name, err)
			}
		}
		blocks[pb.Name] = blk
	}

	devReg := device.NewRegistry()

	for _, r := range p.Memory.Regions {
		blk, ok := blocks[r.Block]
		if !ok {
			return nil, fmt.Errorf("machine: region %q references unknown block %q", r.Name, r.Block)
		}
		perms := parsePerms(r.Perms)
		region := parseRegionTag(r.RegionTag)
		info := devReg.Register("", device.PageID{Class: device.ClassMemory}, "region", r.Name)

		var target bus.Target
		if region == addr.RegionRom {
			target = bus.NewRom(r.Name, blk)
		} else {
			target = bus.NewRam(r.Name, blk)
		}

		firstPage := (r.Base) >> addr.PageShift
		pageCount := (r.SizeKiB * 1024) / addr.PageSize
		if err := b.MapPageRange(firstPage, pageCount, func(idx uint32) bus.Entry {
			offsetIntoRegion := (idx - firstPage) * addr.PageSize
			return bus.Entry{
				DeviceID: info.ID,
				Region:   region,
				Perms:    perms,
				Caps:     target.Caps(),
				Target:   target,
				PhysBase: r.Offset + offsetIntoRegion,
			}
		}); err != nil {
			return nil, err
		}
	}

	if err := mapIOPage(b, devReg, io); err != nil {
		return nil, err
	}
	io.SetIntCxRom(p.Devices.Slots.InternalCxRom)
	io.SetIntC3Rom(p.Devices.Slots.InternalC3Rom)

	sched := scheduler.New()
	sig := signal.New()
	traps := trap.New(io)

	for _, md := range p.Devices.Motherboard {
		if !md.Enabled {
			continue
		}
		info := devReg.Register("motherboard", device.PageID{Class: classFromString(md.Type)}, md.Type, md.Name)
		switch md.Type {
		case "languagecard":
			layer, lcDev, err := buildLanguageCard(blocks, md.Config)
			if err != nil {
				return nil, fmt.Errorf("machine: device %q: %w", md.Name, err)
			}
			if err := b.RegisterCompositeLayer(layer); err != nil {
				return nil, fmt.Errorf("machine: device %q: %w", md.Name, err)
			}
			lcDev.InstallSoftSwitches(io, 0x80)
			traps.SetLangCardState(layer)
			devReg.Register("motherboard/languagecard", device.PageID{Class: device.ClassLanguageCard}, "layer", info.Name+"/layer")
		case "extended80column":
			layer, auxDev, err := buildAux80(blocks, md.Config)
			if err != nil {
				return nil, fmt.Errorf("machine: device %q: %w", md.Name, err)
			}
			if err := b.RegisterCompositeLayer(layer); err != nil {
				return nil, fmt.Errorf("machine: device %q: %w", md.Name, err)
			}
			auxDev.InstallSoftSwitches(io)
			devReg.Register("motherboard/extended80column", device.PageID{Class: device.ClassExtended80Column}, "layer", info.Name+"/layer")
		}
	}
	for _, sc := range p.Devices.Slots.Cards {
		devReg.Register("motherboard/slots", device.PageID{Class: device.ClassSlotCard, Subclass: sc.Slot}, sc.Type, fmt.Sprintf("slot%d", sc.Slot))
	}

	return New(cpu, b, sched, sig, devReg, traps), nil
}

// mapIOPage installs io as the page-table target for the $C000-$CFFF page.
func mapIOPage(b *bus.PagedBus, devReg *device.Registry, io *ioport.IOPage) error {
	info := devReg.Register("motherboard", device.PageID{Class: device.ClassSystem}, "ioport", io.Name())
	return b.MapPage(uint32(addr.Addr(0xC000).Page()), bus.Entry{
		DeviceID: info.ID,
		Region:   addr.RegionIo,
		Perms:    addr.PermRead | addr.PermWrite,
		Caps:     io.Caps(),
		Target:   io,
		PhysBase: 0,
	})
}

// buildLanguageCard constructs a bank-switched $D000-$FFFF composite layer
// from the named physical blocks in config ("bank1", "bank2", "upper"),
// wrapping it in a devices.LanguageCard soft-switch decoder.
func buildLanguageCard(blocks map[string]*physmem.Block, config map[string]string) (*bus.LanguageCardLayer, *devices.LanguageCard, error) {
	bank1, err := namedBlock(blocks, config, "bank1")
	if err != nil {
		return nil, nil, err
	}
	bank2, err := namedBlock(blocks, config, "bank2")
	if err != nil {
		return nil, nil, err
	}
	upper, err := namedBlock(blocks, config, "upper")
	if err != nil {
		return nil, nil, err
	}
	layer := bus.NewLanguageCardLayer(compositeLayerPriority,
		bus.NewRam("lcbank1", bank1), bus.NewRam("lcbank2", bank2), bus.NewRam("lcupper", upper))
	return layer, devices.NewLanguageCard(layer), nil
}

// buildAux80 constructs the $0200-$BFFF auxiliary-memory composite layer
// from the named physical blocks in config ("main", "aux").
func buildAux80(blocks map[string]*physmem.Block, config map[string]string) (*bus.Aux80Layer, *devices.Extended80Column, error) {
	main, err := namedBlock(blocks, config, "main")
	if err != nil {
		return nil, nil, err
	}
	aux, err := namedBlock(blocks, config, "aux")
	if err != nil {
		return nil, nil, err
	}
	layer := bus.NewAux80Layer(compositeLayerPriority, bus.NewRam("mainram80", main), bus.NewRam("auxram80", aux))
	return layer, devices.NewExtended80Column(layer), nil
}

func namedBlock(blocks map[string]*physmem.Block, config map[string]string, key string) (*physmem.Block, error) {
	name, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("config missing %q", key)
	}
	blk, ok := blocks[name]
	if !ok {
		return nil, fmt.Errorf("config %q references unknown physical block %q", key, name)
	}
	return blk, nil
}

func findROMImage(p *profile.Profile, name string) string {
	for _, ri := range p.Memory.RomImages {
		if ri.Name == name {
			return ri.Path
		}
	}
	return ""
}

func parsePerms(s string) addr.Perm {
	var p addr.Perm
	for _, c := range s {
		switch c {
		case 'r':
			p |= addr.PermRead
		case 'w':
			p |= addr.PermWrite
		case 'x':
			p |= addr.PermExecute
		}
	}
	return p
}

func parseRegionTag(s string) addr.RegionTag {
	switch s {
	case "ram":
		return addr.RegionRam
	case "rom":
		return addr.RegionRom
	case "io":
		return addr.RegionIo
	case "slot":
		return addr.RegionSlot
	default:
		return addr.RegionUnmapped
	}
}

func classFromString(s string) device.Class {
	switch s {
	case "keyboard":
		return device.ClassKeyboard
	case "video":
		return device.ClassVideo
	case "speaker":
		return device.ClassSpeaker
	case "disk":
		return device.ClassDisk
	case "languagecard":
		return device.ClassLanguageCard
	case "extended80column":
		return device.ClassExtended80Column
	case "slotcard":
		return device.ClassSlotCard
	case "system":
		return device.ClassSystem
	default:
		return device.ClassUnknown
	}
}
