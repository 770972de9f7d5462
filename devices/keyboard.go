// Package devices implements the concrete motherboard/peripheral clients
// that sit on the other side of the bus from a profile-built Machine:
// keyboard, speaker, video, language card and extended-80-column glue.
// None of them touch page tables directly. Keyboard, speaker and video
// expose a small method surface that the soft-switch wiring
// (ioport.RegisterSoftSwitch) calls into; LanguageCard and
// Extended80Column register their own soft switches on an ioport.IOPage.
package devices

import (
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/term"
)

// Keyboard models the $C000/$C010 keyboard soft switches: a one-byte
// latch with a high-bit-set "strobe" flag that $C010 clears on any
// access.
//
// Grounded on IntuitionEngine's TerminalHost (terminal_host.go): a
// goroutine putting stdin into raw, non-blocking mode and feeding bytes
// into a small synchronized latch, adapted here from a line-buffered
// terminal device into the Apple II's single-byte last-key latch.
type Keyboard struct {
	mu       sync.Mutex
	lastKey  byte
	strobed  atomic.Bool

	fd           int
	oldState     *term.State
	nonblockSet  bool
	stopCh       chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
}

// NewKeyboard returns an unstarted keyboard with no key latched.
func NewKeyboard() *Keyboard {
	return &Keyboard{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin into raw, non-blocking mode and begins polling it on a
// background goroutine. Call Stop to restore the terminal.
func (k *Keyboard) Start() error {
	k.fd = int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(k.fd)
	if err != nil {
		close(k.done)
		return err
	}
	k.oldState = oldState

	if err := syscall.SetNonblock(k.fd, true); err != nil {
		_ = term.Restore(k.fd, k.oldState)
		k.oldState = nil
		close(k.done)
		return err
	}
	k.nonblockSet = true

	go k.pollLoop()
	return nil
}

func (k *Keyboard) pollLoop() {
	defer close(k.done)
	buf := make([]byte, 1)
	for {
		select {
		case <-k.stopCh:
			return
		default:
		}
		n, err := syscall.Read(k.fd, buf)
		if n > 0 {
			k.latch(buf[0] | 0x80) // Apple II keyboard data has bit 7 set
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func (k *Keyboard) latch(b byte) {
	k.mu.Lock()
	k.lastKey = b
	k.mu.Unlock()
	k.strobed.Store(true)
}

// ReadC000 is the $C000 soft switch: returns the latched key with bit 7
// reflecting strobe state, without clearing the strobe.
func (k *Keyboard) ReadC000() byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	v := k.lastKey & 0x7F
	if k.strobed.Load() {
		v |= 0x80
	}
	return v
}

// ReadC010 is the $C010 soft switch: any access clears the strobe flag
// and returns the same byte shape as $C000.
func (k *Keyboard) ReadC010() byte {
	v := k.ReadC000()
	k.strobed.Store(false)
	return v
}

// Stop terminates the polling goroutine and restores the terminal.
func (k *Keyboard) Stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
	<-k.done
	if k.nonblockSet {
		_ = syscall.SetNonblock(k.fd, false)
	}
	if k.oldState != nil {
		_ = term.Restore(k.fd, k.oldState)
	}
}
