package voice

import (
	"bytes"
	"encoding/binary"
	"slices"
	"sync"
	"testing"
	"time"

	"professore/audio"
	"professore/note"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 1, Precision: 2}

// baseLine counts writes. When gated, the first Write blocks until release.
type baseLine struct {
	mu      sync.Mutex
	bytes   int
	closed  bool
	err     error
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func newBaseLine(gated bool) *baseLine {
	l := &baseLine{entered: make(chan struct{})}
	if gated {
		l.gate = make(chan struct{})
	}
	return l
}

func (l *baseLine) Write(p []byte) (int, error) {
	first := false
	l.once.Do(func() {
		first = true
		close(l.entered)
	})
	if first && l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	l.bytes += len(p)
	return len(p), nil
}

func (l *baseLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *baseLine) release() { close(l.gate) }

func (l *baseLine) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *baseLine) written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bytes
}

type volumeLine struct {
	*baseLine
	volume float64
	muted  bool
}

func (l *volumeLine) SetVolume(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volume = v
}

func (l *volumeLine) SetMute(m bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.muted = m
}

func (l *volumeLine) state() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.volume, l.muted
}

type gainLine struct {
	*baseLine
	gain  float64
	muted bool
}

func (l *gainLine) SetGain(db float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gain = db
}

func (l *gainLine) SetMute(m bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.muted = m
}

func (l *gainLine) state() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gain, l.muted
}

// played records OnPlay callbacks
type played struct {
	mu  sync.Mutex
	pcs []note.PitchClass
}

func (r *played) add(pc note.PitchClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pcs = append(r.pcs, pc)
}

func (r *played) snapshot() []note.PitchClass {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pcs)
}

// testBank has a three chunk sample for every natural note
func testBank() *Bank {
	b := NewBank(testFormat)
	for _, pc := range note.PitchClasses() {
		if !pc.IsSharp() {
			b.Add(pc, make([]byte, 3*chunkSize))
		}
	}
	return b
}

func newTestPlayer(t *testing.T, lines ...Line) (*Player, *played) {
	t.Helper()
	rec := &played{}
	var mu sync.Mutex
	p := NewPlayer(Options{
		Bank: testBank(),
		OpenLine: func(f audio.Format) (Line, error) {
			mu.Lock()
			defer mu.Unlock()
			if f != testFormat {
				t.Errorf("line opened with %v", f)
			}
			l := lines[0]
			if len(lines) > 1 {
				lines = lines[1:]
			}
			return l, nil
		},
		OnPlay:       rec.add,
		PollInterval: 20 * time.Millisecond,
	})
	t.Cleanup(p.Close)
	return p, rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitClosed(t *testing.T, what string, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// wavFile builds a 16 bit PCM RIFF file with a ramp of frames
func wavFile(rate, channels, frames int) []byte {
	data := make([]byte, frames*channels*2)
	for i := 0; i+1 < len(data); i += 2 {
		binary.LittleEndian.PutUint16(data[i:], uint16(i*31))
	}

	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("RIFF")
	binary.Write(&b, le, uint32(36+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, le, uint32(16))
	binary.Write(&b, le, uint16(1))
	binary.Write(&b, le, uint16(channels))
	binary.Write(&b, le, uint32(rate))
	binary.Write(&b, le, uint32(rate*channels*2))
	binary.Write(&b, le, uint16(channels*2))
	binary.Write(&b, le, uint16(16))
	b.WriteString("data")
	binary.Write(&b, le, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}
