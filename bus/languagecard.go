package bus

import "github.com/otleyzayn/apple2core/addr"

// LanguageCardBase/Size are the fixed addresses the language-card layer
// covers: $D000-$FFFF, split into a bank-switched 4KiB window and a shared
// 8KiB upper window (spec §4.2 "Language-card layer").
const (
	LanguageCardBase     addr.Addr = 0xD000
	LanguageCardBankBase addr.Addr = 0xD000
	LanguageCardBankSize uint32    = 0x1000
	LanguageCardUpBase   addr.Addr = 0xE000
	LanguageCardUpSize   uint32    = 0x2000
	LanguageCardSize     uint32    = LanguageCardBankSize + LanguageCardUpSize
)

// LanguageCardLayer implements the canonical "bank-switch the upper 16K"
// composite layer described in spec §4.2. It is active whenever RAM read
// or RAM write is enabled; when both are disabled the underlying page
// table (system ROM) shows through unmodified.
//
// Grounded on IntuitionEngine's IORegion-style side-effect dispatch
// (memory_bus.go MapIO/Read32/Write32): a soft switch here is just a
// boolean flipped by a write, consulted by Resolve instead of by a bus
// mapping lookup.
type LanguageCardLayer struct {
	priority int32

	readEnabled  bool
	writeEnabled bool
	bankSelect   int // 1 or 2

	bank1 Target // 4KiB, offset [0, 0x1000)
	bank2 Target // 4KiB, offset [0, 0x1000)
	upper Target // 8KiB, offset [0, 0x2000)
}

// NewLanguageCardLayer builds a language-card layer over the given bank
// targets. bank1/bank2 must each be at least LanguageCardBankSize bytes;
// upper must be at least LanguageCardUpSize bytes.
func NewLanguageCardLayer(priority int32, bank1, bank2, upper Target) *LanguageCardLayer {
	return &LanguageCardLayer{priority: priority, bankSelect: 1, bank1: bank1, bank2: bank2, upper: upper}
}

func (l *LanguageCardLayer) Name() string   { return "languagecard" }
func (l *LanguageCardLayer) Priority() int32 { return l.priority }
func (l *LanguageCardLayer) IsActive() bool { return l.readEnabled || l.writeEnabled }

func (l *LanguageCardLayer) AddressRange() (addr.Addr, uint32) {
	return LanguageCardBase, LanguageCardSize
}

// SetReadEnabled toggles the RAM-read-enable soft switch.
func (l *LanguageCardLayer) SetReadEnabled(v bool) { l.readEnabled = v }

// SetWriteEnabled toggles the RAM-write-enable soft switch.
func (l *LanguageCardLayer) SetWriteEnabled(v bool) { l.writeEnabled = v }

// ReadEnabled reports the current RAM-read-enable state.
func (l *LanguageCardLayer) ReadEnabled() bool { return l.readEnabled }

// WriteEnabled reports the current RAM-write-enable state.
func (l *LanguageCardLayer) WriteEnabled() bool { return l.writeEnabled }

// SelectBank chooses bank 1 or 2 for the $D000-$DFFF window. Any other
// value is ignored.
func (l *LanguageCardLayer) SelectBank(bank int) {
	if bank == 1 || bank == 2 {
		l.bankSelect = bank
	}
}

// SelectedBank returns 1 or 2.
func (l *LanguageCardLayer) SelectedBank() int { return l.bankSelect }

func (l *LanguageCardLayer) Resolve(a addr.Addr, intent addr.Intent) (Resolution, bool) {
	if !l.IsActive() {
		return Resolution{}, false
	}

	var perms addr.Perm
	if l.readEnabled {
		perms |= addr.PermRead | addr.PermExecute
	}
	if l.writeEnabled {
		perms |= addr.PermWrite
	}

	if a >= LanguageCardBankBase && a < LanguageCardBankBase+addr.Addr(LanguageCardBankSize) {
		target := l.bank1
		if l.bankSelect == 2 {
			target = l.bank2
		}
		return Resolution{
			Target:    target,
			PhysBase:  uint32(a-LanguageCardBankBase) &^ (addr.PageSize - 1),
			Perms:     perms,
			RegionTag: addr.RegionRam,
			Caps:      target.Caps(),
		}, true
	}
	if a >= LanguageCardUpBase && a < LanguageCardUpBase+addr.Addr(LanguageCardUpSize) {
		return Resolution{
			Target:    l.upper,
			PhysBase:  uint32(a-LanguageCardUpBase) &^ (addr.PageSize - 1),
			Perms:     perms,
			RegionTag: addr.RegionRam,
			Caps:      l.upper.Caps(),
		}, true
	}
	return Resolution{}, false
}
