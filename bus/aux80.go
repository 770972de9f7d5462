package bus

import "github.com/otleyzayn/apple2core/addr"

// Aux80Base/Size cover the range the auxiliary-memory layer can intercept:
// $0200-$BFFF (spec §4.2 "Auxiliary-memory / 80-STORE layer").
const (
	Aux80Base      addr.Addr = 0x0200
	Aux80Size      uint32    = 0xC000 - 0x0200
	textPage1Base  addr.Addr = 0x0400
	textPage1End   addr.Addr = 0x07FF
	hiresPage1Base addr.Addr = 0x2000
	hiresPage1End  addr.Addr = 0x3FFF
)

// Aux80Layer resolves main vs. auxiliary RAM for $0200-$BFFF according to
// 80STORE, PAGE2, RAMRD and RAMWRT. Text page 1 and hi-res page 1 get the
// 80STORE+PAGE2 special case on reads; writes to those same ranges always
// follow RAMWRT regardless of 80STORE, matching the read/write asymmetry
// spelled out in the worked example for this layer: 80STORE only steals
// the *read* path for the special pages, leaving the generic RAMWRT write
// path in control so a running program's stores stay predictable while
// PAGE2 flips what the display hardware (and any same-cycle read) sees.
//
// Grounded on the same Resolve-is-a-pure-function contract as
// LanguageCardLayer; main/aux are modeled as two Targets covering the same
// address layout rather than one Target with a bit of extra indexing,
// mirroring how IntuitionEngine keeps distinct named memory regions
// (registers.go) rather than packing everything into one array with a mode
// flag.
type Aux80Layer struct {
	priority int32

	store80 bool
	page2   bool
	ramrd   bool
	ramwrt  bool

	main Target
	aux  Target
}

// NewAux80Layer builds an auxiliary-memory layer. main and aux must each
// cover at least Aux80Base+Aux80Size bytes, addressed as if they started
// at address 0.
func NewAux80Layer(priority int32, main, aux Target) *Aux80Layer {
	return &Aux80Layer{priority: priority, main: main, aux: aux}
}

func (l *Aux80Layer) Name() string    { return "aux80" }
func (l *Aux80Layer) Priority() int32 { return l.priority }
func (l *Aux80Layer) IsActive() bool  { return true }

func (l *Aux80Layer) AddressRange() (addr.Addr, uint32) { return Aux80Base, Aux80Size }

func (l *Aux80Layer) Set80Store(v bool) { l.store80 = v }
func (l *Aux80Layer) SetPage2(v bool)   { l.page2 = v }
func (l *Aux80Layer) SetRamrd(v bool)   { l.ramrd = v }
func (l *Aux80Layer) SetRamwrt(v bool)  { l.ramwrt = v }

func (l *Aux80Layer) Store80() bool { return l.store80 }
func (l *Aux80Layer) Page2() bool   { return l.page2 }
func (l *Aux80Layer) Ramrd() bool   { return l.ramrd }
func (l *Aux80Layer) Ramwrt() bool  { return l.ramwrt }

func (l *Aux80Layer) isSpecialPage(a addr.Addr) bool {
	return (a >= textPage1Base && a <= textPage1End) || (a >= hiresPage1Base && a <= hiresPage1End)
}

func (l *Aux80Layer) Resolve(a addr.Addr, intent addr.Intent) (Resolution, bool) {
	if a < Aux80Base || a >= Aux80Base+addr.Addr(Aux80Size) {
		return Resolution{}, false
	}

	isWrite := intent.IsWrite()
	var useAux bool
	switch {
	case l.isSpecialPage(a) && l.store80 && !isWrite:
		useAux = l.page2
	case isWrite:
		useAux = l.ramwrt
	default:
		useAux = l.ramrd
	}

	target := l.main
	if useAux {
		target = l.aux
	}
	pageBase := uint32(a) &^ (addr.PageSize - 1)
	return Resolution{
		Target:    target,
		PhysBase:  pageBase,
		Perms:     addr.PermRead | addr.PermWrite | addr.PermExecute,
		RegionTag: addr.RegionRam,
		Caps:      target.Caps(),
	}, true
}
