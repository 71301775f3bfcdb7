package tui

import (
	"fmt"
	"sync"
	"sync/atomic"

	"professore/midi"
	"professore/note"
	"professore/sequencer"
	"professore/voice"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Host bundles what the console drives. Voice and Devices may be nil.
type Host struct {
	Player  *sequencer.Player
	Voice   *voice.Player
	Live    *midi.Adapter
	Devices *midi.DeviceManager
	Filter  midi.NoteFilter // applied when filtering is toggled on
	Output  string          // render target, for the header
	SaveDir string          // where "w" writes the playlist

	// HandleInput receives every message from a connected keyboard
	HandleInput func(midi.InputEvent)

	Updates chan struct{}

	voiced atomic.Int32

	mu     sync.Mutex
	status string
	title  string
}

func NewHost() *Host {
	h := &Host{Updates: make(chan struct{}, 1)}
	h.voiced.Store(int32(note.NoPitch))
	return h
}

// Notify asks the console to redraw
func (h *Host) Notify() {
	select {
	case h.Updates <- struct{}{}:
	default:
	}
}

// Voiced records the pitch the voice player just started
func (h *Host) Voiced(pc note.PitchClass) {
	h.voiced.Store(int32(pc))
	h.Notify()
}

func (h *Host) LastVoiced() note.PitchClass {
	return note.PitchClass(h.voiced.Load())
}

func (h *Host) SetStatus(format string, args ...any) {
	h.mu.Lock()
	h.status = fmt.Sprintf(format, args...)
	h.mu.Unlock()
	h.Notify()
}

func (h *Host) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Host) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

// Listener reports player transitions in the status line
func (h *Host) Listener() sequencer.Listener {
	return sequencer.ListenerFuncs{
		OnPlaying: func(_ *sequencer.Player, title string, _ *smf.SMF) {
			h.mu.Lock()
			h.title = title
			h.mu.Unlock()
			h.SetStatus("playing %s", title)
		},
		OnPaused:  func(*sequencer.Player) { h.SetStatus("paused") },
		OnResumed: func(*sequencer.Player) { h.SetStatus("resumed") },
		OnStopped: func(*sequencer.Player) {
			h.mu.Lock()
			h.title = ""
			h.mu.Unlock()
			h.SetStatus("stopped")
		},
	}
}

// Held returns the keys sounding from the sequence or the live keyboard
func (h *Host) Held() map[uint8]bool {
	held := make(map[uint8]bool)
	if a, ok := h.Player.SoundController().(*midi.Adapter); ok {
		for _, k := range a.Held() {
			held[k] = true
		}
	}
	if h.Live != nil {
		for _, k := range h.Live.Held() {
			held[k] = true
		}
	}
	return held
}

// SetFiltering installs or removes Filter on both note sources
func (h *Host) SetFiltering(on bool) {
	var f midi.NoteFilter
	if on {
		f = h.Filter
	}
	h.Player.SoundController().SetFilter(f)
	if h.Live != nil {
		h.Live.SetFilter(f)
	}
}

func (h *Host) Filtering() bool {
	return h.Player.SoundController().Filter() != nil
}
