// Package audio plays PCM through a shared oto context.
package audio

import "fmt"

const (
	DefaultSampleRate = 44100
	// oto always runs stereo, 16 bit
	outputChannels  = 2
	outputPrecision = 2
)

// Format describes interleaved signed little-endian PCM frames
type Format struct {
	SampleRate int
	Channels   int
	Precision  int // bytes per sample
}

// FrameSize is the byte length of one frame across all channels
func (f Format) FrameSize() int {
	return f.Channels * f.Precision
}

// Validate reports formats a Line cannot play
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("audio: bad sample rate %d", f.SampleRate)
	case f.Channels != 1 && f.Channels != 2:
		return fmt.Errorf("audio: %d channels not supported", f.Channels)
	case f.Precision != outputPrecision:
		return fmt.Errorf("audio: %d bit samples not supported", f.Precision*8)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %dbit", f.SampleRate, f.Channels, f.Precision*8)
}
