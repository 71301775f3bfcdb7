package audio

import (
	"math"
	"sync"

	"professore/debug"

	"github.com/ebitengine/oto/v3"
)

// bytes of PCM queued ahead of the device
const lineBuffer = 16 * 1024

// Line is a blocking PCM sink on the shared context. Mono input is
// duplicated to both output channels.
type Line struct {
	format Format
	buf    *pcmBuffer
	player *oto.Player

	mu     sync.Mutex
	volume float64
	muted  bool

	closeOnce sync.Once
	closeErr  error
}

// OpenLine starts a player for f on the shared context.
func OpenLine(f Format) (*Line, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	ctx, err := Context(f.SampleRate)
	if err != nil {
		return nil, err
	}

	l := &Line{
		format: f,
		buf:    newPCMBuffer(lineBuffer),
		volume: 1,
	}
	l.player = ctx.NewPlayer(l.buf)
	l.player.Play()
	debug.Log("audio", "line opened: %s", f)
	return l, nil
}

func (l *Line) Format() Format {
	return l.format
}

// Write queues PCM in the line's format, blocking while the device catches up.
func (l *Line) Write(p []byte) (int, error) {
	if l.format.Channels == outputChannels {
		return l.buf.Write(p)
	}

	n, err := l.buf.Write(upmix(make([]byte, 0, len(p)*2), p))
	return n / 2, err
}

// SetVolume sets linear gain, 0 to 1.
func (l *Line) SetVolume(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volume = math.Max(0, math.Min(1, v))
	l.apply()
}

func (l *Line) Volume() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.volume
}

// SetMute silences the line without touching its volume.
func (l *Line) SetMute(muted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.muted = muted
	l.apply()
}

func (l *Line) apply() {
	if l.muted {
		l.player.SetVolume(0)
		return
	}
	l.player.SetVolume(l.volume)
}

// Close stops the player. Pending writes fail with ErrClosed.
func (l *Line) Close() error {
	l.closeOnce.Do(func() {
		l.buf.Close()
		l.closeErr = l.player.Close()
		debug.Log("audio", "line closed")
	})
	return l.closeErr
}

// upmix duplicates each 16 bit mono sample into a stereo frame
func upmix(dst, mono []byte) []byte {
	for i := 0; i+1 < len(mono); i += 2 {
		dst = append(dst, mono[i], mono[i+1], mono[i], mono[i+1])
	}
	return dst
}
