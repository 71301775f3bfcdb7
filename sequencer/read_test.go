package sequencer

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"professore/note"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestReadNumbersTracks(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var right, left smf.Track
	right.Add(0, gomidi.NoteOn(0, 72, 80))
	right.Add(0, gomidi.ControlChange(0, 64, 127))
	right.Add(10, gomidi.NoteOff(0, 72))
	right.Close(0)
	left.Add(0, gomidi.NoteOn(1, 48, 80))
	left.Add(10, gomidi.NoteOff(1, 48))
	left.Close(0)
	s.Add(right)
	s.Add(left)

	path := filepath.Join(t.TempDir(), "hands.mid")
	if err := s.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	pool := note.NewPool(note.Options{PrefillCount: 4})
	notes, err := Read(path, pool)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		for _, n := range notes {
			pool.Release(n)
		}
	}()

	if len(notes) != 4 {
		t.Fatalf("got %d notes, want 4", len(notes))
	}
	wantTracks := []uint8{1, 1, 2, 2}
	for i, n := range notes {
		if n.Track != wantTracks[i] {
			t.Errorf("note %d (%v) track = %d, want %d", i, n, n.Track, wantTracks[i])
		}
	}
	if notes[0].PitchClass != note.C || notes[0].Octave != 5 || !notes[0].Pressed {
		t.Errorf("first note = %v, want pressed C5", notes[0])
	}
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.mid"), nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file = %v", err)
	}
}

func TestIsMidiFile(t *testing.T) {
	for path, want := range map[string]bool{
		"song.mid":  true,
		"SONG.MID":  true,
		"song.midi": false,
		"song.wav":  false,
	} {
		if got := IsMidiFile(path); got != want {
			t.Errorf("IsMidiFile(%q) = %v", path, got)
		}
	}
}
