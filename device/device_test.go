package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsSequentialIDsAndWiringPath(t *testing.T) {
	r := NewRegistry()
	a := r.Register("motherboard", PageID{Class: ClassKeyboard}, "keyboard", "kb0")
	b := r.Register("motherboard/slots", PageID{Class: ClassSlotCard, Subclass: 6}, "disk2", "disk2-s6")

	require.Equal(t, ID(0), a.ID)
	require.Equal(t, ID(1), b.ID)
	require.Equal(t, "motherboard/kb0", a.WiringPath)
	require.Equal(t, "motherboard/slots/disk2-s6", b.WiringPath)
}

func TestLookupOutOfRange(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(ID(5))
	require.False(t, ok)
}

func TestMustLookupPanicsOnUnregistered(t *testing.T) {
	r := NewRegistry()
	require.Panics(t, func() { r.MustLookup(ID(3)) })
}

func TestAllReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Register("", PageID{}, "x", "x0")
	all := r.All()
	all[0].Name = "mutated"
	again := r.All()
	require.Equal(t, "x0", again[0].Name)
}
