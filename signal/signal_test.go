package signal

import (
	"testing"

	"github.com/otleyzayn/apple2core/device"
	"github.com/stretchr/testify/require"
)

func TestAssertClearRefcounting(t *testing.T) {
	b := New()
	devA, devB := device.ID(1), device.ID(2)

	b.Assert(LineIRQ, devA, 0)
	require.Equal(t, Asserted, b.Sample(LineIRQ))

	b.Assert(LineIRQ, devB, 0)
	b.Clear(LineIRQ, devA, 0)
	require.Equal(t, Asserted, b.Sample(LineIRQ), "line must stay asserted while any device still asserts it")

	b.Clear(LineIRQ, devB, 0)
	require.Equal(t, Clear, b.Sample(LineIRQ))
}

func TestNMIEdgeLatchSurvivesAssertionClear(t *testing.T) {
	b := New()
	dev := device.ID(1)

	b.Assert(LineNMI, dev, 0)
	b.Clear(LineNMI, dev, 0)
	require.Equal(t, Asserted, b.Sample(LineNMI), "NMI edge latch must stay set after the asserting device clears")

	b.AcknowledgeNMI(0)
	require.Equal(t, Clear, b.Sample(LineNMI))
}

func TestNMIReassertAfterAcknowledgeRelatchesOnNextEdge(t *testing.T) {
	b := New()
	dev := device.ID(1)
	b.Assert(LineNMI, dev, 0)
	b.AcknowledgeNMI(0)
	require.Equal(t, Asserted, b.Sample(LineNMI), "ack while still asserted clears the latch, not the assertion")

	b.Clear(LineNMI, dev, 0)
	b.Assert(LineNMI, dev, 1)
	require.Equal(t, Asserted, b.Sample(LineNMI))
}

func TestResetClearsAssertionsAndLatchNotCounters(t *testing.T) {
	b := New()
	dev := device.ID(1)
	b.Assert(LineIRQ, dev, 0)
	b.Assert(LineNMI, dev, 0)
	b.SignalInstructionFetched(10)
	b.SignalInstructionExecuted(5)

	b.Reset()

	require.Equal(t, Clear, b.Sample(LineIRQ))
	require.Equal(t, Clear, b.Sample(LineNMI))
	require.Equal(t, uint64(15), b.TotalCPUCycles(), "instrumentation counters must survive Reset")
}

func TestAssertingDevicesSnapshot(t *testing.T) {
	b := New()
	b.Assert(LineIRQ, device.ID(1), 0)
	b.Assert(LineIRQ, device.ID(2), 0)
	devs := b.AssertingDevices(LineIRQ)
	require.Len(t, devs, 2)
}

func TestResetCycleCountersZeroesBoth(t *testing.T) {
	b := New()
	b.SignalInstructionFetched(3)
	b.SignalInstructionExecuted(4)
	b.ResetCycleCounters()
	require.Equal(t, uint64(0), b.TotalCPUCycles())
}
