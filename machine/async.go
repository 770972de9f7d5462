package machine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAsync starts Run on a background goroutine managed by an errgroup, so
// callers (notably cmd/apple2emu) can wait on it alongside other
// concurrently-running goroutines (input polling, audio draining) and have
// a cancelled context propagate into a coordinated shutdown.
//
// Grounded on IntuitionEngine's vm.go RunAsync, which spins a bare
// goroutine and a done channel; this generalizes that into an errgroup so
// a CPU error and a sibling goroutine's error both surface through the
// same Wait call instead of needing two channels.
func (m *Machine) RunAsync(ctx context.Context) (wait func() error) {
	if m.State() == StateRunning {
		return func() error { return ErrAlreadyRunning }
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		m.Stop()
		return nil
	})
	return g.Wait
}
