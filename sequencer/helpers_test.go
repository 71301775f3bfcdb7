package sequencer

import (
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"professore/midi"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// melody builds a one-track sequence playing keys in turn on channel 0
func melody(keys ...uint8) *smf.SMF {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	for _, k := range keys {
		tr.Add(0, gomidi.NoteOn(0, k, 100))
		tr.Add(4, gomidi.NoteOff(0, k))
	}
	tr.Close(0)
	s.Add(tr)
	return s
}

func writeMelody(t *testing.T, name string, keys ...uint8) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := melody(keys...).WriteFile(path); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// fakeSequencer runs until finishCurrent is called, or for playFor when set
type fakeSequencer struct {
	mu      sync.Mutex
	open    bool
	running bool
	loaded  []*smf.SMF
	starts  int
	stops   int
	bpm     float64
	recv    midi.Receiver
	playFor time.Duration
	timer   *time.Timer
	loadErr error
}

func (f *fakeSequencer) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	return nil
}

func (f *fakeSequencer) Close() error {
	f.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeSequencer) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeSequencer) SetSequence(s *smf.SMF) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = append(f.loaded, s)
	return nil
}

func (f *fakeSequencer) SetTempoInBPM(bpm float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bpm = bpm
}

func (f *fakeSequencer) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
	if f.playFor > 0 {
		f.timer = time.AfterFunc(f.playFor, f.finishCurrent)
	}
}

func (f *fakeSequencer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		f.stops++
	}
	f.running = false
	if f.timer != nil {
		f.timer.Stop()
	}
}

func (f *fakeSequencer) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeSequencer) MicrosecondPosition() int64 { return 0 }

func (f *fakeSequencer) SetReceiver(r midi.Receiver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recv = r
}

func (f *fakeSequencer) SetMetaListener(func(smf.Message)) {}

func (f *fakeSequencer) finishCurrent() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeSequencer) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loaded)
}

// events records listener callbacks on a channel
type events struct {
	ch chan string
}

func newEvents() *events {
	return &events{ch: make(chan string, 256)}
}

func (e *events) listener() Listener {
	return ListenerFuncs{
		OnPlaying: func(_ *Player, title string, _ *smf.SMF) { e.ch <- "playing " + title },
		OnPaused:  func(*Player) { e.ch <- "paused" },
		OnResumed: func(*Player) { e.ch <- "resumed" },
		OnStopped: func(*Player) { e.ch <- "stopped" },
	}
}

// expect waits for the next event and fails unless it is want
func (e *events) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-e.ch:
		if got != want {
			t.Fatalf("event = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

// expectAll waits for len(want) events in any order
func (e *events) expectAll(t *testing.T, want ...string) {
	t.Helper()
	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < len(want) {
		select {
		case ev := <-e.ch:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out: got %v, want %v", got, want)
		}
	}
	slices.Sort(got)
	sorted := slices.Clone(want)
	slices.Sort(sorted)
	if !slices.Equal(got, sorted) {
		t.Fatalf("events = %v, want %v", got, sorted)
	}
}

// expectNone fails if an event arrives within d
func (e *events) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case got := <-e.ch:
		t.Fatalf("unexpected event %q", got)
	case <-time.After(d):
	}
}

func newTestPlayer(f *fakeSequencer, ev *events) *Player {
	return NewPlayer(Options{
		NewSequencer:  func() (Sequencer, error) { return f, nil },
		Listener:      ev.listener(),
		PollInterval:  30 * time.Millisecond,
		CheckInterval: 5 * time.Millisecond,
		CloseTimeout:  time.Second,
	})
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
