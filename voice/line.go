package voice

import (
	"math"

	"professore/audio"
)

// Line receives PCM from the voice worker. Write may block while the
// device drains.
type Line interface {
	Write(p []byte) (int, error)
	Close() error
}

// Optional controls a Line may implement. Volume wins over gain.
type (
	VolumeControl interface{ SetVolume(linear float64) }
	GainControl   interface{ SetGain(db float64) }
	MuteControl   interface{ SetMute(muted bool) }
)

// LineOpener opens a line for PCM in the given format
type LineOpener func(audio.Format) (Line, error)

// OpenAudioLine opens a line on the shared oto context
func OpenAudioLine(f audio.Format) (Line, error) {
	l, err := audio.OpenLine(f)
	if err != nil {
		return nil, err
	}
	return l, nil
}

const minGain = -80.0

// applyVolume pushes v (0..100) to whichever controls the line has
func applyVolume(line Line, v uint8) {
	level := float64(v) / 100
	switch c := line.(type) {
	case VolumeControl:
		c.SetVolume(level)
	case GainControl:
		c.SetGain(gainDB(level))
	}
	if m, ok := line.(MuteControl); ok {
		m.SetMute(v == 0)
	}
}

func gainDB(level float64) float64 {
	if level <= 0 {
		return minGain
	}
	return max(minGain, 20*math.Log10(level))
}
