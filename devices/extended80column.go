package devices

import "github.com/otleyzayn/apple2core/ioport"

// aux80Layer is the subset of *bus.Aux80Layer this device drives.
type aux80Layer interface {
	Set80Store(bool)
	SetPage2(bool)
	SetRamrd(bool)
	SetRamwrt(bool)
	Store80() bool
	Page2() bool
	Ramrd() bool
	Ramwrt() bool
}

// Extended80Column decodes the 80STORE/PAGE2/RAMRD/RAMWRT soft switches
// onto an auxiliary-memory layer covering $0200-$BFFF. Like LanguageCard it
// owns no memory of its own.
type Extended80Column struct {
	layer aux80Layer
}

// NewExtended80Column wraps layer for soft-switch decoding.
func NewExtended80Column(layer aux80Layer) *Extended80Column {
	return &Extended80Column{layer: layer}
}

// InstallSoftSwitches registers the four even/odd soft-switch pairs on io:
// $C000/$C001 (80STORE), $C002/$C003 (RAMRD), $C004/$C005 (RAMWRT) and
// $C054/$C055 (PAGE2).
func (e *Extended80Column) InstallSoftSwitches(io *ioport.IOPage) {
	io.RegisterSoftSwitch(0x00, nil, func(uint32, byte) { e.layer.Set80Store(false) })
	io.RegisterSoftSwitch(0x01, nil, func(uint32, byte) { e.layer.Set80Store(true) })
	io.RegisterSoftSwitch(0x02, nil, func(uint32, byte) { e.layer.SetRamrd(false) })
	io.RegisterSoftSwitch(0x03, nil, func(uint32, byte) { e.layer.SetRamrd(true) })
	io.RegisterSoftSwitch(0x04, nil, func(uint32, byte) { e.layer.SetRamwrt(false) })
	io.RegisterSoftSwitch(0x05, nil, func(uint32, byte) { e.layer.SetRamwrt(true) })
	io.RegisterSoftSwitch(0x54, nil, func(uint32, byte) { e.layer.SetPage2(false) })
	io.RegisterSoftSwitch(0x55, nil, func(uint32, byte) { e.layer.SetPage2(true) })

	status := func(read func() bool) ioport.ReadFunc {
		return func(uint32) byte {
			if read() {
				return 0x80
			}
			return 0x00
		}
	}
	io.RegisterSoftSwitch(0x18, status(e.layer.Store80), nil)
	io.RegisterSoftSwitch(0x13, status(e.layer.Ramrd), nil)
	io.RegisterSoftSwitch(0x14, status(e.layer.Ramwrt), nil)
	io.RegisterSoftSwitch(0x1C, status(e.layer.Page2), nil)
}
