// Package device implements the stable integer + class-tagged device
// registry (spec §3 "Device info", §4.8 C10). Every bus target, composite
// layer and swap-group variant that wants to appear in trace events or own
// a page registers itself here first.
//
// Grounded on IntuitionEngine's registers.go address-range table: a single
// source of truth for "what lives where", rendered as a slash-delimited
// wiring path the way registers.go documents each region's owning file.
package device

import "fmt"

// ID is a device's stable identity, assigned sequentially at registration.
type ID int32

// None is the sentinel used by unmapped page-table entries and by accesses
// with no attributable device (e.g. the page table itself).
const None ID = -1

// Class groups devices by kind for trace filtering and debugger display.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassMemory
	ClassCPU
	ClassKeyboard
	ClassVideo
	ClassSpeaker
	ClassDisk
	ClassLanguageCard
	ClassExtended80Column
	ClassSlotCard
	ClassSystem
)

func (c Class) String() string {
	switch c {
	case ClassMemory:
		return "memory"
	case ClassCPU:
		return "cpu"
	case ClassKeyboard:
		return "keyboard"
	case ClassVideo:
		return "video"
	case ClassSpeaker:
		return "speaker"
	case ClassDisk:
		return "disk"
	case ClassLanguageCard:
		return "languagecard"
	case ClassExtended80Column:
		return "extended80column"
	case ClassSlotCard:
		return "slotcard"
	case ClassSystem:
		return "system"
	default:
		return "unknown"
	}
}

// PageID locates a device within its class: a subclass discriminator (e.g.
// slot number for ClassSlotCard) plus an index for multiple instances of
// the same subclass.
type PageID struct {
	Class    Class
	Subclass int
	Index    int
}

// Info is the registry's record for one device.
type Info struct {
	ID         ID
	PageID     PageID
	Kind       string // concrete device type name, e.g. "languagecard"
	Name       string // human-readable instance name
	WiringPath string // slash-delimited motherboard location
}

// Registry assigns and looks up device IDs. It is populated at machine
// build time and is read-only thereafter from the emulator thread's point
// of view; debugger threads may safely call Lookup/All concurrently once
// construction completes because no mutation happens after build.
type Registry struct {
	infos []Info
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register assigns the next sequential ID to a device and records its
// metadata. wiringPath is built as parent + "/" + name when parent is
// non-empty, matching spec §3's "slash-delimited string locating the
// device in the motherboard tree".
func (r *Registry) Register(parent string, pageID PageID, kind, name string) Info {
	path := name
	if parent != "" {
		path = parent + "/" + name
	}
	info := Info{
		ID:         ID(len(r.infos)),
		PageID:     pageID,
		Kind:       kind,
		Name:       name,
		WiringPath: path,
	}
	r.infos = append(r.infos, info)
	return info
}

// Lookup returns the Info for id, or false if id is out of range.
func (r *Registry) Lookup(id ID) (Info, bool) {
	if id < 0 || int(id) >= len(r.infos) {
		return Info{}, false
	}
	return r.infos[id], true
}

// All returns every registered device, in registration order. The returned
// slice is a copy; callers may not mutate the registry through it.
func (r *Registry) All() []Info {
	out := make([]Info, len(r.infos))
	copy(out, r.infos)
	return out
}

// MustLookup panics if id is not registered; used by internal invariants
// where an unregistered ID indicates a programmer error, not a runtime
// fault.
func (r *Registry) MustLookup(id ID) Info {
	info, ok := r.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("device: id %d not registered", id))
	}
	return info
}
