package devices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLatchSetsStrobeAndC000ReflectsIt(t *testing.T) {
	k := NewKeyboard()
	k.latch('a' | 0x80)

	v := k.ReadC000()
	require.Equal(t, byte('a')|0x80, v)
}

func TestReadC000DoesNotClearStrobe(t *testing.T) {
	k := NewKeyboard()
	k.latch('b' | 0x80)

	_ = k.ReadC000()
	require.Equal(t, byte(0x80), k.ReadC000()&0x80)
}

func TestReadC010ClearsStrobe(t *testing.T) {
	k := NewKeyboard()
	k.latch('c' | 0x80)

	first := k.ReadC010()
	require.Equal(t, byte(0x80), first&0x80)

	second := k.ReadC000()
	require.Equal(t, byte(0), second&0x80)
	require.Equal(t, byte('c'), second&0x7F)
}

func TestNoKeyLatchedReadsZeroWithoutStrobe(t *testing.T) {
	k := NewKeyboard()
	require.Equal(t, byte(0), k.ReadC000())
}
