// Package synth renders MIDI through a SoundFont on the shared audio context.
package synth

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"professore/audio"
	"professore/debug"
	"professore/midi"

	"github.com/ebitengine/oto/v3"
	"github.com/ezmidi/go-meltysynth/meltysynth"
	gomidi "gitlab.com/gomidi/midi/v2"
)

const (
	blockSize        = 512
	maximumPolyphony = 64
	frameBytes       = 4 // stereo int16
)

// engine is the part of meltysynth the receiver drives
type engine interface {
	ProcessMidiMessage(channel, command, data1, data2 int32)
	NoteOffAll(immediate bool)
	Render(left, right []float32)
}

// Synth is a midi.Receiver that plays through a SoundFont. It doubles as
// the io.Reader its oto player pulls from.
type Synth struct {
	mu          sync.Mutex
	engine      engine
	left, right []float32
	sampleRate  int
	player      *oto.Player
	closed      bool
}

// Load reads an .sf2 file and builds a synth at sampleRate.
func Load(path string, sampleRate int) (*Synth, error) {
	sf, err := LoadSoundFont(path)
	if err != nil {
		return nil, err
	}
	return New(sf, sampleRate)
}

// LoadSoundFont parses an .sf2 file. One SoundFont can back many synths.
func LoadSoundFont(path string) (*meltysynth.SoundFont, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}
	defer f.Close()

	sf, err := meltysynth.NewSoundFont(f)
	if err != nil {
		return nil, fmt.Errorf("synth: read %s: %w", path, err)
	}
	debug.Info("synth", "soundfont %s loaded", path)
	return sf, nil
}

func New(sf *meltysynth.SoundFont, sampleRate int) (*Synth, error) {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	settings.BlockSize = blockSize
	settings.MaximumPolyphony = maximumPolyphony
	settings.EnableReverbAndChorus = false

	s, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}
	return newSynth(s, sampleRate), nil
}

func newSynth(e engine, sampleRate int) *Synth {
	return &Synth{engine: e, sampleRate: sampleRate}
}

// Start begins pulling audio. The shared context is created at the
// synth's rate if nothing opened it yet.
func (s *Synth) Start() error {
	ctx, err := audio.Context(s.sampleRate)
	if err != nil {
		return fmt.Errorf("synth: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil || s.closed {
		return nil
	}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return nil
}

func (s *Synth) SampleRate() int {
	return s.sampleRate
}

// Send implements midi.Receiver. Only channel voice messages reach the
// engine.
func (s *Synth) Send(msg gomidi.Message, _ int64) {
	if !midi.IsChannelMessage(msg) || len(msg) < 2 {
		return
	}
	var data2 int32
	if len(msg) > 2 {
		data2 = int32(msg[2])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.engine.ProcessMidiMessage(int32(msg[0]&0x0F), int32(msg[0]&0xF0), int32(msg[1]), data2)
}

// Read renders stereo int16 frames into p.
func (s *Synth) Read(p []byte) (int, error) {
	frames := len(p) / frameBytes

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left, right := s.left[:frames], s.right[:frames]
	s.engine.Render(left, right)
	encode(p, left, right)
	return frames * frameBytes, nil
}

// Close silences the engine and stops the player.
func (s *Synth) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.engine.NoteOffAll(true)
	player := s.player
	s.mu.Unlock()

	if player != nil {
		return player.Close()
	}
	return nil
}

// encode interleaves two float channels as little-endian int16
func encode(dst []byte, left, right []float32) {
	for i := range left {
		binary.LittleEndian.PutUint16(dst[i*frameBytes:], uint16(toInt16(left[i])))
		binary.LittleEndian.PutUint16(dst[i*frameBytes+2:], uint16(toInt16(right[i])))
	}
}

func toInt16(v float32) int16 {
	return int16(math.Max(-1, math.Min(1, float64(v))) * math.MaxInt16)
}

var _ midi.Receiver = (*Synth)(nil)
