//go:build !headless

package devices

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

const speakerSampleRate = 44100

// Speaker models the Apple II's one-bit click speaker driven by any
// access to $C030: each toggle flips the output level, which at audio
// rate sounds like whatever waveform the program's access timing
// produces. It renders that square wave through oto.
//
// Grounded on IntuitionEngine's OtoPlayer (audio_backend_oto.go): an
// oto.Context/Player pair reading samples from an atomically-swapped
// source, adapted here from a multi-channel SoundChip ring buffer to a
// single toggling bit level sampled at the output rate.
type Speaker struct {
	ctx    *oto.Context
	player *oto.Player

	mu      sync.Mutex
	level   float32
	ticksSinceToggle int

	started atomic.Bool
}

// NewSpeaker creates an oto context at speakerSampleRate (44.1 kHz, mono
// float32) and wires a Speaker as its sample source. The returned Speaker is not
// yet producing sound until Start is called.
func NewSpeaker() (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   speakerSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	s := &Speaker{ctx: ctx, level: 0}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

// Read implements io.Reader for oto's player: every sample just reflects
// the speaker's current held level, since the "waveform" here is entirely
// a function of how often the emulated CPU toggles $C030.
func (s *Speaker) Read(p []byte) (int, error) {
	s.mu.Lock()
	level := s.level
	s.mu.Unlock()
	bits := math.Float32bits(level)
	for i := 0; i+4 <= len(p); i += 4 {
		p[i] = byte(bits)
		p[i+1] = byte(bits >> 8)
		p[i+2] = byte(bits >> 16)
		p[i+3] = byte(bits >> 24)
	}
	return len(p), nil
}

// Toggle flips the speaker's output level. Called on every $C030 access
// regardless of read or write (spec-adjacent hardware behavior: the
// access itself is the side effect, not its direction or data).
func (s *Speaker) Toggle() {
	s.mu.Lock()
	if s.level == 0 {
		s.level = 0.3
	} else {
		s.level = -s.level
	}
	s.mu.Unlock()
}

// Start begins playback.
func (s *Speaker) Start() {
	if s.started.CompareAndSwap(false, true) {
		s.player.Play()
	}
}

// Stop pauses playback; the oto player stays allocated and Start resumes it.
func (s *Speaker) Stop() {
	if s.started.CompareAndSwap(true, false) {
		s.player.Pause()
	}
}
