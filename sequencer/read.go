package sequencer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"professore/debug"
	"professore/midi"
	"professore/note"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// IsMidiFile reports whether path has the standard MIDI file extension
func IsMidiFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), midi.MidExtension)
}

// Load parses a standard MIDI file. Open failures are returned wrapped;
// parse failures wrap ErrMalformedSequence.
func Load(path string) (*smf.SMF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sequence: %w", err)
	}
	defer f.Close()

	seq, err := smf.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSequence, filepath.Base(path), err)
	}
	return seq, nil
}

// Read decodes every note of the file at path. Track holds the 1-based
// track number. Callers release the notes to pool when done.
func Read(path string, pool *note.Pool) ([]*note.Note, error) {
	seq, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Notes(seq, pool)
}

// Notes decodes every note of seq in track order
func Notes(seq *smf.SMF, pool *note.Pool) ([]*note.Note, error) {
	if pool == nil {
		pool = note.DefaultPool()
	}
	var notes []*note.Note
	for i, track := range seq.Tracks {
		for _, ev := range track {
			if ev.Message.IsMeta() {
				continue
			}
			msg := gomidi.Message(ev.Message)
			if !midi.IsChannelMessage(msg) {
				debug.Log("read", "track %d: skipping %s", i+1, msg)
				continue
			}
			n, err := pool.BorrowMessage(msg)
			if err != nil {
				for _, done := range notes {
					pool.Release(done)
				}
				return nil, err
			}
			if n == nil {
				continue
			}
			n.Track = uint8(i + 1)
			notes = append(notes, n)
		}
	}
	return notes, nil
}
