package sequencer

import (
	"errors"

	"professore/midi"

	"gitlab.com/gomidi/midi/v2/smf"
)

var (
	// ErrDeviceUnavailable means no sequencer or output device could be opened
	ErrDeviceUnavailable = errors.New("midi device unavailable")
	// ErrMalformedSequence means a sequence could not be parsed or loaded
	ErrMalformedSequence = errors.New("malformed midi sequence")
	// ErrPlaylistFull means the playlist already holds PlaylistCapacity entries
	ErrPlaylistFull = errors.New("playlist full")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("player closed")
)

// DefaultBPM is used when no positive tempo is set
const DefaultBPM = 80.0

// Sequencer plays one sequence at a time into a Receiver. Receivers must
// not call back into Stop or Close.
type Sequencer interface {
	Open() error
	Close() error
	IsOpen() bool

	// SetSequence loads s and rewinds to its start
	SetSequence(s *smf.SMF) error
	SetTempoInBPM(bpm float64)

	Start()
	Stop()
	IsRunning() bool
	MicrosecondPosition() int64

	SetReceiver(r midi.Receiver)
	SetMetaListener(fn func(smf.Message))
}
