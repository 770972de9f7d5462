// Command apple2emu boots a profile-described machine and runs it,
// wiring the real keyboard/speaker host devices into the soft-switch
// dispatch table. It is a thin demonstration harness over the
// machine/bus/ioport packages, not a full frontend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/otleyzayn/apple2core/devices"
	"github.com/otleyzayn/apple2core/ioport"
	"github.com/otleyzayn/apple2core/machine"
	"github.com/otleyzayn/apple2core/profile"
	"github.com/otleyzayn/apple2core/trace"
)

func main() {
	profilePath := flag.String("profile", "", "Path to a machine profile JSON file")
	traceFlag := flag.Bool("trace", false, "Enable bus trace recording")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: apple2emu -profile machine.json\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *profilePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading profile: %v\n", err)
		os.Exit(1)
	}

	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		fmt.Fprintf(os.Stderr, "error: parsing profile: %v\n", err)
		os.Exit(1)
	}

	ioPage := ioport.NewIOPage("c000io", nil)
	cpu := newStubCPU(0)

	m, err := machine.Build(&p, cpu, ioPage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: building machine: %v\n", err)
		os.Exit(1)
	}

	if *traceFlag {
		m.Bus().EnableTrace(trace.NewBuffer(4096))
	}

	kb := devices.NewKeyboard()
	if err := kb.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: keyboard unavailable: %v\n", err)
	} else {
		defer kb.Stop()
		ioPage.RegisterSoftSwitch(0x00, func(uint32) byte { return kb.ReadC000() }, nil)
		ioPage.RegisterSoftSwitch(0x10, func(uint32) byte { return kb.ReadC010() }, nil)
	}

	spk, err := devices.NewSpeaker()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: speaker unavailable: %v\n", err)
	} else {
		spk.Start()
		defer spk.Stop()
		ioPage.RegisterSoftSwitch(0x30, func(uint32) byte { spk.Toggle(); return 0 }, func(uint32, byte) { spk.Toggle() })
	}

	m.Reset()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wait := m.RunAsync(ctx)
	if err := wait(); err != nil {
		fmt.Fprintf(os.Stderr, "machine stopped: %v\n", err)
		os.Exit(1)
	}
}
