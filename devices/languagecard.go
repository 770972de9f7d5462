package devices

import "github.com/otleyzayn/apple2core/ioport"

// langCardLayer is the subset of *bus.LanguageCardLayer this device drives.
// Kept narrow so devices does not need to import bus for anything but this
// shape.
type langCardLayer interface {
	SetReadEnabled(bool)
	SetWriteEnabled(bool)
	ReadEnabled() bool
	WriteEnabled() bool
	SelectBank(int)
	SelectedBank() int
}

// LanguageCard decodes the $C080-$C08F soft switches onto a bank-switched
// $D000-$FFFF layer. It owns no memory itself; bank1/bank2/upper are backed
// by whatever physical blocks the profile wired into the layer at
// construction.
//
// Grounded on Keyboard/Speaker in this package: a thin decoder that turns
// soft-switch offsets into method calls on a layer it does not own, the
// same shape as ReadC000/ReadC010 turning an offset into a latch read.
type LanguageCard struct {
	layer langCardLayer

	// writeArmed records a first odd-offset read in mode 1 or 3; a second
	// such read enables RAM write. A write to one of these offsets, or any
	// mode 0/2 access, clears it. Accesses outside $C080-$C08F are not seen
	// here and do not clear it.
	writeArmed bool
}

// NewLanguageCard wraps layer for soft-switch decoding.
func NewLanguageCard(layer langCardLayer) *LanguageCard {
	return &LanguageCard{layer: layer}
}

// Access decodes one access to offset (0x80-0x8F) relative to $C080,
// applying the classic bank1/bank2 and read/write-enable soft-switch table,
// and returns the byte a read of this offset should see.
func (c *LanguageCard) Access(offset uint32, isWrite bool) byte {
	if offset > 0x0F {
		return 0
	}
	bank := 1
	if offset&0x08 != 0 {
		bank = 2
	}
	c.layer.SelectBank(bank)

	mode := offset & 0x03
	odd := offset&0x01 != 0

	switch mode {
	case 0x00: // read RAM, write disabled
		c.layer.SetReadEnabled(true)
		c.layer.SetWriteEnabled(false)
		c.writeArmed = false
	case 0x01: // read ROM; write enabled after arming on an odd read
		c.layer.SetReadEnabled(false)
		if isWrite {
			c.writeArmed = false
		} else if odd {
			if c.writeArmed {
				c.layer.SetWriteEnabled(true)
			}
			c.writeArmed = true
		}
	case 0x02: // read ROM, write disabled
		c.layer.SetReadEnabled(false)
		c.layer.SetWriteEnabled(false)
		c.writeArmed = false
	case 0x03: // read RAM; write enabled after arming on an odd read
		c.layer.SetReadEnabled(true)
		if isWrite {
			c.writeArmed = false
		} else if odd {
			if c.writeArmed {
				c.layer.SetWriteEnabled(true)
			}
			c.writeArmed = true
		}
	}
	return 0
}

// InstallSoftSwitches registers all 16 $C080-$C08F offsets on io, relative
// to base (0x80 on a standard IIe I/O page layout).
func (c *LanguageCard) InstallSoftSwitches(io *ioport.IOPage, base uint32) {
	for i := uint32(0); i < 16; i++ {
		offset := i
		io.RegisterSoftSwitch(base+offset,
			func(uint32) byte { return c.Access(offset, false) },
			func(uint32, byte) { c.Access(offset, true) },
		)
	}
}
