package voice

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"professore/audio"
	"professore/debug"
	"professore/note"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// ErrNoSamples is returned when no pitch class has a sample
var ErrNoSamples = errors.New("voice: no samples loaded")

const (
	sampleExt       = ".wav"
	resampleQuality = 4
	decodeFrames    = 512
)

// Bank holds one PCM sample per pitch class, all in the same format
type Bank struct {
	format  audio.Format
	samples map[note.PitchClass][]byte
}

// NewBank returns an empty bank that accepts PCM in f
func NewBank(f audio.Format) *Bank {
	return &Bank{format: f, samples: make(map[note.PitchClass][]byte)}
}

// Add stores raw PCM for pc, replacing any previous sample
func (b *Bank) Add(pc note.PitchClass, pcm []byte) {
	b.samples[pc] = pcm
}

func (b *Bank) Format() audio.Format {
	return b.format
}

func (b *Bank) Sample(pc note.PitchClass) ([]byte, bool) {
	if b == nil {
		return nil, false
	}
	pcm, ok := b.samples[pc]
	return pcm, ok
}

func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.samples)
}

// SampleName is the file a pitch class is loaded from, e.g. "sol#.wav"
func SampleName(pc note.PitchClass) string {
	return strings.ToLower(pc.ItalianName()) + sampleExt
}

// LoadSamples reads dir/<italian name>.wav for every pitch class.
// Missing files are skipped. The bank takes the format of the first
// sample found; later samples are converted to it.
func LoadSamples(fsys fs.FS, dir string) (*Bank, error) {
	var bank *Bank
	for _, pc := range note.PitchClasses() {
		name := path.Join(dir, SampleName(pc))
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			debug.Info("voice", "no sample for %s (%s)", pc, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("voice: read %s: %w", name, err)
		}

		pcm, format, err := decode(data, bank)
		if err != nil {
			return nil, fmt.Errorf("voice: decode %s: %w", name, err)
		}
		if bank == nil {
			bank = NewBank(format)
			debug.Log("voice", "sample format %s from %s", format, name)
		}
		bank.Add(pc, pcm)
	}
	if bank.Len() == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, dir)
	}
	return bank, nil
}

// decode converts a WAV file to 16 bit PCM in the bank's format, or in
// the file's own layout when there is no bank yet.
func decode(data []byte, bank *Bank) ([]byte, audio.Format, error) {
	s, src, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, audio.Format{}, err
	}
	defer s.Close()

	target := audio.Format{
		SampleRate: int(src.SampleRate),
		Channels:   src.NumChannels,
		Precision:  2,
	}
	if bank != nil {
		target = bank.format
	}
	if err := target.Validate(); err != nil {
		return nil, audio.Format{}, err
	}

	var stream beep.Streamer = s
	if int(src.SampleRate) != target.SampleRate {
		stream = beep.Resample(resampleQuality, src.SampleRate, beep.SampleRate(target.SampleRate), s)
	}

	out := beep.Format{
		SampleRate:  beep.SampleRate(target.SampleRate),
		NumChannels: target.Channels,
		Precision:   target.Precision,
	}
	frame := make([]byte, target.FrameSize())
	buf := make([][2]float64, decodeFrames)
	pcm := make([]byte, 0, s.Len()*target.FrameSize())
	for {
		n, ok := stream.Stream(buf)
		for _, sample := range buf[:n] {
			out.EncodeSigned(frame, sample)
			pcm = append(pcm, frame...)
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, audio.Format{}, err
	}
	return pcm, target, nil
}
