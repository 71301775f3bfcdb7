package sequencer

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"professore/midi"
	"professore/note"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestPlaysInFIFOOrder(t *testing.T) {
	f := &fakeSequencer{playFor: 10 * time.Millisecond}
	ev := newEvents()
	p := newTestPlayer(f, ev)
	defer p.Close()

	if err := p.EnqueueSequence("a", melody(60)); err != nil {
		t.Fatal(err)
	}
	if err := p.EnqueueSequence("b", melody(62)); err != nil {
		t.Fatal(err)
	}

	ev.expect(t, "playing a")
	ev.expect(t, "playing b")
	ev.expect(t, "stopped")
	waitFor(t, "idle", func() bool { return p.State() == StateIdle })
}

func TestResetReplaysCurrentBeforeNext(t *testing.T) {
	f := &fakeSequencer{}
	ev := newEvents()
	p := newTestPlayer(f, ev)
	defer p.Close()

	p.EnqueueSequence("a", melody(60))
	p.EnqueueSequence("b", melody(62))
	ev.expect(t, "playing a")

	p.Reset()
	ev.expectAll(t, "paused", "playing a")
	if f.loads() != 2 {
		t.Fatalf("loads = %d, want a loaded twice", f.loads())
	}
	if !p.IsPaused() || f.IsRunning() {
		t.Fatal("reloaded sequence must wait for Resume")
	}
	if title, _ := p.Current(); title != "a" {
		t.Fatalf("current = %q, want a", title)
	}

	p.Resume()
	ev.expect(t, "resumed")
	waitFor(t, "a running", f.IsRunning)

	f.finishCurrent()
	ev.expect(t, "playing b")
	waitFor(t, "b running", f.IsRunning)
	f.finishCurrent()
	ev.expect(t, "stopped")
}

func TestResetWithoutCurrentOnlyPauses(t *testing.T) {
	ev := newEvents()
	p := newTestPlayer(&fakeSequencer{}, ev)
	defer p.Close()

	p.Reset()
	ev.expect(t, "paused")
	if p.PlaylistSize() != 0 || p.State() != StateIdle {
		t.Errorf("size=%d state=%v, want empty idle player", p.PlaylistSize(), p.State())
	}
}

func TestStopMovesToNextEntry(t *testing.T) {
	f := &fakeSequencer{}
	ev := newEvents()
	p := newTestPlayer(f, ev)
	defer p.Close()

	p.EnqueueSequence("a", melody(60))
	p.EnqueueSequence("b", melody(62))
	ev.expect(t, "playing a")

	p.Stop()
	ev.expectAll(t, "stopped", "playing b")
	if n := p.PlaylistSize(); n != 0 {
		t.Errorf("playlist size = %d, want 0", n)
	}

	waitFor(t, "b running", f.IsRunning)
	f.finishCurrent()
	ev.expect(t, "stopped")
}

func TestPauseResume(t *testing.T) {
	f := &fakeSequencer{}
	ev := newEvents()
	p := newTestPlayer(f, ev)
	defer p.Close()

	p.EnqueueSequence("a", melody(60))
	ev.expect(t, "playing a")
	waitFor(t, "running", p.IsPlaying)

	p.Pause()
	ev.expect(t, "paused")
	if !p.IsPaused() || p.IsPlaying() {
		t.Fatal("pause did not stop the sequencer")
	}

	p.Pause()
	ev.expectNone(t, 30*time.Millisecond)
	if p.State() != StatePlaying {
		t.Errorf("state while paused = %v, want playing", p.State())
	}

	p.Resume()
	ev.expect(t, "resumed")
	waitFor(t, "running again", p.IsPlaying)

	f.finishCurrent()
	ev.expect(t, "stopped")
	f.mu.Lock()
	starts := f.starts
	f.mu.Unlock()
	if starts != 2 {
		t.Errorf("starts = %d, want 2", starts)
	}
}

func TestSequencerUnavailable(t *testing.T) {
	ev := newEvents()
	p := NewPlayer(Options{
		NewSequencer: func() (Sequencer, error) { return nil, errors.New("no synth") },
		Listener:     ev.listener(),
		PollInterval: 10 * time.Millisecond,
	})
	defer p.Close()

	if err := p.EnqueueSequence("a", melody(60)); err != nil {
		t.Fatalf("enqueue should succeed, got %v", err)
	}
	ev.expect(t, "stopped")
	waitFor(t, "idle", func() bool { return p.State() == StateIdle })
}

func TestDeviceUnavailable(t *testing.T) {
	f := &fakeSequencer{}
	ev := newEvents()
	p := NewPlayer(Options{
		NewSequencer:  func() (Sequencer, error) { return f, nil },
		OpenDevice:    func() (midi.Receiver, error) { return nil, errors.New("unplugged") },
		ConnectDevice: true,
		Listener:      ev.listener(),
	})
	defer p.Close()

	p.EnqueueSequence("a", melody(60))
	ev.expect(t, "stopped")
	if f.IsOpen() {
		t.Error("sequencer left open after device failure")
	}
}

func TestDeviceSkippedWhenNotConnecting(t *testing.T) {
	f := &fakeSequencer{playFor: time.Millisecond}
	ev := newEvents()
	p := NewPlayer(Options{
		NewSequencer: func() (Sequencer, error) { return f, nil },
		OpenDevice: func() (midi.Receiver, error) {
			t.Error("device opened with ConnectDevice off")
			return nil, errors.New("unexpected")
		},
		Listener:      ev.listener(),
		PollInterval:  10 * time.Millisecond,
		CheckInterval: time.Millisecond,
	})
	defer p.Close()

	p.EnqueueSequence("a", melody(60))
	ev.expect(t, "playing a")
	ev.expect(t, "stopped")
}

func TestMalformedSequenceStopsWorker(t *testing.T) {
	f := &fakeSequencer{loadErr: errors.New("bad header")}
	ev := newEvents()
	p := newTestPlayer(f, ev)
	defer p.Close()

	p.EnqueueSequence("a", melody(60))
	ev.expect(t, "stopped")
	waitFor(t, "idle", func() bool { return p.State() == StateIdle })
}

func TestCloseIsBoundedAndIdempotent(t *testing.T) {
	f := &fakeSequencer{}
	ev := newEvents()
	p := newTestPlayer(f, ev)

	p.EnqueueSequence("a", melody(60))
	p.EnqueueSequence("b", melody(62))
	ev.expect(t, "playing a")

	start := time.Now()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("Close took %v", d)
	}
	ev.expect(t, "stopped")

	if p.State() != StateClosing {
		t.Errorf("state = %v, want closing", p.State())
	}
	if err := p.EnqueueSequence("c", melody(64)); !errors.Is(err, ErrClosed) {
		t.Errorf("enqueue after close = %v, want ErrClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestCloseWithoutWorker(t *testing.T) {
	p := NewPlayer(Options{})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Play(); !errors.Is(err, ErrClosed) {
		t.Errorf("Play after close = %v", err)
	}
}

func TestBPM(t *testing.T) {
	f := &fakeSequencer{}
	ev := newEvents()
	p := newTestPlayer(f, ev)
	defer p.Close()

	if p.BPM() != DefaultBPM {
		t.Fatalf("default bpm = %v", p.BPM())
	}
	p.SetBPM(-3)
	if p.BPM() != DefaultBPM {
		t.Errorf("SetBPM(-3) = %v, want %v", p.BPM(), DefaultBPM)
	}

	p.SetBPM(120)
	p.EnqueueSequence("a", melody(60))
	ev.expect(t, "playing a")
	f.mu.Lock()
	bpm := f.bpm
	f.mu.Unlock()
	if bpm != 120 {
		t.Errorf("sequencer bpm = %v, want 120", bpm)
	}

	p.SetBPM(90)
	f.mu.Lock()
	bpm = f.bpm
	f.mu.Unlock()
	if bpm != 90 {
		t.Errorf("live bpm = %v, want 90", bpm)
	}
}

// Submissions racing with the worker retiring must all be played.
func TestEnqueueWhileWorkerRetires(t *testing.T) {
	f := &fakeSequencer{playFor: time.Millisecond}
	played := make(chan string, 128)
	p := NewPlayer(Options{
		NewSequencer: func() (Sequencer, error) { return f, nil },
		Listener: ListenerFuncs{
			OnPlaying: func(_ *Player, title string, _ *smf.SMF) { played <- title },
		},
		PollInterval:  time.Millisecond,
		CheckInterval: time.Millisecond,
	})
	defer p.Close()

	const n = 40
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < n; i++ {
		if err := p.EnqueueSequence(fmt.Sprintf("t%d", i), melody(60)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
	}

	seen := make(map[string]bool)
	timeout := time.After(5 * time.Second)
	for len(seen) < n {
		select {
		case title := <-played:
			seen[title] = true
		case <-timeout:
			t.Fatalf("played %d of %d", len(seen), n)
		}
	}
}

func TestEnqueueFile(t *testing.T) {
	f := &fakeSequencer{playFor: time.Millisecond}
	ev := newEvents()
	p := newTestPlayer(f, ev)
	defer p.Close()

	path := writeMelody(t, "scale.mid", 60, 62, 64)
	if err := p.Enqueue(path); err != nil {
		t.Fatal(err)
	}
	ev.expect(t, "playing scale.mid")

	err := p.Enqueue(filepath.Join(t.TempDir(), "missing.mid"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}

	garbage := filepath.Join(t.TempDir(), "junk.mid")
	os.WriteFile(garbage, []byte("not a midi file"), 0644)
	if err := p.Enqueue(garbage); !errors.Is(err, ErrMalformedSequence) {
		t.Errorf("garbage file error = %v", err)
	}
}

type recordingReceiver struct {
	mu   sync.Mutex
	msgs []gomidi.Message
}

func (r *recordingReceiver) Send(msg gomidi.Message, _ int64) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recordingReceiver) Close() error { return nil }

func (r *recordingReceiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestPlaysThroughClockSequencer(t *testing.T) {
	var mu sync.Mutex
	var notes []string
	pool := note.NewPool(note.Options{PrefillCount: 8})
	adapter := midi.NewAdapter(pool, func(n *note.Note) {
		mu.Lock()
		notes = append(notes, fmt.Sprintf("%d:%v", n.Key, n.Pressed))
		mu.Unlock()
	})
	device := &recordingReceiver{}
	ev := newEvents()

	p := NewPlayer(Options{
		Pool:          pool,
		Controller:    adapter,
		OpenDevice:    func() (midi.Receiver, error) { return device, nil },
		ConnectDevice: true,
		Forward:       true,
		BPM:           600,
		Listener:      ev.listener(),
		PollInterval:  20 * time.Millisecond,
		CheckInterval: 2 * time.Millisecond,
	})
	defer p.Close()

	p.EnqueueSequence("duo", melody(60, 62))
	ev.expect(t, "playing duo")
	ev.expect(t, "stopped")

	mu.Lock()
	got := slices.Clone(notes)
	mu.Unlock()
	want := []string{"60:true", "60:false", "62:true", "62:false"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("notes = %v, want %v", got, want)
	}
	if device.count() < 4 {
		t.Errorf("device received %d messages, want at least 4", device.count())
	}
}
