package trace

import (
	"testing"

	"github.com/otleyzayn/apple2core/addr"
	"github.com/stretchr/testify/require"
)

func TestNewBufferRoundsCapacityToPowerOfTwo(t *testing.T) {
	b := NewBuffer(5)
	require.Equal(t, 8, b.Capacity())
}

func TestPushAndSnapshotOrdering(t *testing.T) {
	b := NewBuffer(4)
	for i := 0; i < 3; i++ {
		b.Push(Record{Address: addr.Addr(i)})
	}
	recs := b.Snapshot()
	require.Len(t, recs, 3)
	require.Equal(t, addr.Addr(0), recs[0].Address)
	require.Equal(t, addr.Addr(2), recs[2].Address)
}

func TestOverwriteTracksOverflowCount(t *testing.T) {
	b := NewBuffer(2)
	for i := 0; i < 5; i++ {
		b.Push(Record{Address: addr.Addr(i)})
	}
	require.Equal(t, uint64(5), b.TotalWritten())
	require.Equal(t, uint64(3), b.Overwritten())
	recs := b.Snapshot()
	require.Len(t, recs, 2)
	require.Equal(t, addr.Addr(3), recs[0].Address)
	require.Equal(t, addr.Addr(4), recs[1].Address)
}

func TestSetEnabledSuppressesPush(t *testing.T) {
	b := NewBuffer(4)
	b.SetEnabled(false)
	b.Push(Record{Address: 1})
	require.Equal(t, uint64(0), b.TotalWritten())
}
