package sequencer

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"professore/debug"
	"professore/midi"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// timedEvent is a track event at its absolute tick
type timedEvent struct {
	tick  int64
	track int
	msg   smf.Message
}

// ClockSequencer plays a standard MIDI file against the wall clock.
// Tempo meta events in the file change the tempo as they are reached;
// SetTempoInBPM sets it directly.
type ClockSequencer struct {
	mu       sync.Mutex
	sendMu   sync.Mutex // held while dispatching
	open     bool
	running  bool
	gen      int
	stopChan chan struct{}

	events []timedEvent
	ppq    int64
	bpm    float64

	next    int           // index of the next event
	tick    int64         // tick of the last dispatched event
	micros  int64         // microseconds elapsed up to tick
	anchor  time.Time     // wall time at tick
	elapsed time.Duration // time past tick while stopped

	receiver midi.Receiver
	onMeta   func(smf.Message)
	active   map[uint8]bool // channels with sounding notes
}

// NewClockSequencer creates a closed sequencer
func NewClockSequencer() *ClockSequencer {
	return &ClockSequencer{
		bpm:    DefaultBPM,
		active: make(map[uint8]bool),
	}
}

func (s *ClockSequencer) Open() error {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return nil
}

// Close stops playback; the receiver is left open for its owner
func (s *ClockSequencer) Close() error {
	s.Stop()
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}

func (s *ClockSequencer) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *ClockSequencer) SetReceiver(r midi.Receiver) {
	s.mu.Lock()
	s.receiver = r
	s.mu.Unlock()
}

func (s *ClockSequencer) SetMetaListener(fn func(smf.Message)) {
	s.mu.Lock()
	s.onMeta = fn
	s.mu.Unlock()
}

// SetSequence flattens every track into one tick-ordered list
func (s *ClockSequencer) SetSequence(seq *smf.SMF) error {
	if seq == nil {
		return fmt.Errorf("nil sequence")
	}
	mt, ok := seq.TimeFormat.(smf.MetricTicks)
	if !ok || mt == 0 {
		return fmt.Errorf("unsupported time format %v", seq.TimeFormat)
	}

	var events []timedEvent
	for i, track := range seq.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			events = append(events, timedEvent{tick: abs, track: i, msg: ev.Message})
		}
	}
	slices.SortStableFunc(events, func(a, b timedEvent) int {
		switch {
		case a.tick < b.tick:
			return -1
		case a.tick > b.tick:
			return 1
		}
		return 0
	})

	s.Stop()

	s.mu.Lock()
	s.events = events
	s.ppq = int64(mt)
	s.next = 0
	s.tick = 0
	s.micros = 0
	s.elapsed = 0
	s.mu.Unlock()

	debug.Log("clock", "loaded %d events, %d tracks, ppq=%d", len(events), len(seq.Tracks), mt)
	return nil
}

func (s *ClockSequencer) SetTempoInBPM(bpm float64) {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	s.mu.Lock()
	s.bpm = bpm
	s.mu.Unlock()
}

// TempoInBPM returns the current tempo
func (s *ClockSequencer) TempoInBPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// ticksToDuration converts ticks at the current tempo. Caller holds mu.
func (s *ClockSequencer) ticksToDuration(ticks int64) time.Duration {
	if s.ppq == 0 || s.bpm <= 0 {
		return 0
	}
	return time.Duration(float64(ticks) * float64(time.Minute) / (s.bpm * float64(s.ppq)))
}

// Start continues from the current position
func (s *ClockSequencer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || s.running || s.next >= len(s.events) {
		return
	}
	s.running = true
	s.gen++
	s.stopChan = make(chan struct{})
	s.anchor = time.Now().Add(-s.elapsed)
	s.elapsed = 0
	go s.run(s.gen, s.stopChan)
}

// Stop halts playback, keeping the position, and silences sounding channels
func (s *ClockSequencer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.gen++
	close(s.stopChan)
	s.elapsed = time.Since(s.anchor)
	s.mu.Unlock()

	s.sendMu.Lock()
	s.silence()
	s.sendMu.Unlock()
}

func (s *ClockSequencer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ClockSequencer) MicrosecondPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	past := s.elapsed
	if s.running {
		past = time.Since(s.anchor)
	}
	return s.micros + past.Microseconds()
}

func (s *ClockSequencer) run(gen int, stop <-chan struct{}) {
	for {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		if s.next >= len(s.events) {
			s.running = false
			s.elapsed = 0
			s.mu.Unlock()
			debug.Log("clock", "sequence finished")
			return
		}
		ev := s.events[s.next]
		due := s.anchor.Add(s.ticksToDuration(ev.tick - s.tick))
		s.mu.Unlock()

		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		s.sendMu.Lock()
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			s.sendMu.Unlock()
			return
		}
		step := s.ticksToDuration(ev.tick - s.tick)
		s.micros += step.Microseconds()
		s.anchor = s.anchor.Add(step)
		s.tick = ev.tick
		s.next++
		recv, onMeta := s.receiver, s.onMeta
		s.mu.Unlock()

		s.dispatch(ev, recv, onMeta)
		s.sendMu.Unlock()
	}
}

// dispatch delivers one event. Caller holds sendMu.
func (s *ClockSequencer) dispatch(ev timedEvent, recv midi.Receiver, onMeta func(smf.Message)) {
	if ev.msg.IsMeta() {
		var bpm float64
		if ev.msg.GetMetaTempo(&bpm) && bpm > 0 {
			s.mu.Lock()
			s.bpm = bpm
			s.mu.Unlock()
		}
		if onMeta != nil {
			onMeta(ev.msg)
		}
		return
	}

	msg := gomidi.Message(ev.msg)
	if !midi.IsChannelMessage(msg) {
		return
	}
	var ch, key, vel uint8
	if msg.GetNoteOn(&ch, &key, &vel) && vel > 0 {
		s.mu.Lock()
		s.active[ch] = true
		s.mu.Unlock()
	}
	if recv != nil {
		recv.Send(msg, s.MicrosecondPosition())
	}
}

// silence sends all-notes-off on every channel that played a note.
// Caller holds sendMu.
func (s *ClockSequencer) silence() {
	s.mu.Lock()
	recv := s.receiver
	chans := make([]uint8, 0, len(s.active))
	for ch := range s.active {
		chans = append(chans, ch)
	}
	clear(s.active)
	pos := s.micros + s.elapsed.Microseconds()
	s.mu.Unlock()

	if recv == nil {
		return
	}
	slices.Sort(chans)
	for _, msg := range midi.AllNotesOff(chans...) {
		recv.Send(msg, pos)
	}
}
