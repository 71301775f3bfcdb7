package sequencer

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"professore/debug"
	"professore/midi"
	"professore/note"

	"gitlab.com/gomidi/midi/v2/smf"
)

// State is the player's lifecycle stage
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateWaiting
	StatePlaying
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateWaiting:
		return "waiting"
	case StatePlaying:
		return "playing"
	case StateClosing:
		return "closing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	defaultPollInterval  = time.Second
	defaultCheckInterval = 500 * time.Millisecond
	defaultCloseTimeout  = 3 * time.Second
)

// Options configures a Player. Zero values take the defaults.
type Options struct {
	Pool       *note.Pool
	Controller midi.SoundController // default: an Adapter with no handler

	NewSequencer  func() (Sequencer, error)     // default: NewClockSequencer
	OpenDevice    func() (midi.Receiver, error) // output device, used when ConnectDevice
	ConnectDevice bool
	Forward       bool // pass sequencer output on to the device

	BPM      float64
	Listener Listener

	PollInterval  time.Duration // playlist wait, default 1s
	CheckInterval time.Duration // running check while playing, default 500ms
	CloseTimeout  time.Duration // default 3s
}

// Player plays a playlist of sequences on one worker goroutine
type Player struct {
	pool          *note.Pool
	controller    midi.SoundController
	newSequencer  func() (Sequencer, error)
	openDevice    func() (midi.Receiver, error)
	forward       bool
	pollInterval  time.Duration
	checkInterval time.Duration
	closeTimeout  time.Duration

	playlist *playlist
	wake     chan struct{}

	mu            sync.Mutex
	state         State
	running       bool
	done          chan struct{}
	seq           Sequencer
	current       *entry
	paused        bool
	rewind        bool
	closed        bool
	bpm           float64
	connectDevice bool
	listener      Listener
}

// NewPlayer creates an idle player
func NewPlayer(opts Options) *Player {
	if opts.Pool == nil {
		opts.Pool = note.DefaultPool()
	}
	if opts.Controller == nil {
		opts.Controller = midi.NewAdapter(opts.Pool, nil)
	}
	if opts.NewSequencer == nil {
		opts.NewSequencer = func() (Sequencer, error) { return NewClockSequencer(), nil }
	}
	if opts.BPM <= 0 {
		opts.BPM = DefaultBPM
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = defaultCheckInterval
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = defaultCloseTimeout
	}
	return &Player{
		pool:          opts.Pool,
		controller:    opts.Controller,
		newSequencer:  opts.NewSequencer,
		openDevice:    opts.OpenDevice,
		forward:       opts.Forward,
		pollInterval:  opts.PollInterval,
		checkInterval: opts.CheckInterval,
		closeTimeout:  opts.CloseTimeout,
		playlist:      newPlaylist(PlaylistCapacity),
		wake:          make(chan struct{}, 1),
		bpm:           opts.BPM,
		connectDevice: opts.ConnectDevice,
		listener:      opts.Listener,
	}
}

// Enqueue parses the file at path and appends it to the playlist
func (p *Player) Enqueue(path string) error {
	seq, err := Load(path)
	if err != nil {
		return err
	}
	return p.push(entry{title: filepath.Base(path), path: path, seq: seq})
}

// EnqueueSequence appends an in-memory sequence to the playlist
func (p *Player) EnqueueSequence(title string, seq *smf.SMF) error {
	return p.push(entry{title: title, seq: seq})
}

func (p *Player) push(e entry) error {
	if e.seq == nil {
		return fmt.Errorf("%w: %s: nil sequence", ErrMalformedSequence, e.title)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err := p.playlist.PushBack(e); err != nil {
		return err
	}
	debug.Log("player", "queued %s (%d in playlist)", e.title, p.playlist.Len())
	p.ensureWorkerLocked()
	return nil
}

// Play starts the worker if none is running
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.ensureWorkerLocked()
	return nil
}

func (p *Player) ensureWorkerLocked() {
	if p.running {
		return
	}
	p.running = true
	p.done = make(chan struct{})
	go p.run(p.done)
}

// Pause stops the sequencer and holds the current position
func (p *Player) Pause() {
	p.mu.Lock()
	was := p.paused
	p.paused = true
	seq, l := p.seq, p.listener
	p.mu.Unlock()

	stopSequencer(seq)
	if !was && l != nil {
		l.Paused(p)
	}
}

// Resume continues a paused sequence
func (p *Player) Resume() {
	p.mu.Lock()
	if p.seq != nil && p.seq.IsOpen() && p.current != nil && !p.rewind {
		p.seq.Start()
	}
	p.paused = false
	l := p.listener
	p.mu.Unlock()

	p.signal()
	if l != nil {
		l.Resumed(p)
	}
}

// Stop ends the current sequence; the worker moves on to the next entry
func (p *Player) Stop() {
	p.mu.Lock()
	p.paused = false
	seq, l := p.seq, p.listener
	p.mu.Unlock()

	stopSequencer(seq)
	p.signal()
	if l != nil {
		l.Stopped(p)
	}
}

// Reset pauses and puts the current sequence back at the head of the
// playlist so it restarts from the beginning on Resume
func (p *Player) Reset() {
	p.mu.Lock()
	was := p.paused
	p.paused = true
	if p.current != nil && !p.rewind {
		p.playlist.PushFront(*p.current)
		p.rewind = true
		debug.Log("player", "rewinding %s", p.current.title)
	}
	seq, l := p.seq, p.listener
	p.mu.Unlock()

	stopSequencer(seq)
	p.signal()
	if !was && l != nil {
		l.Paused(p)
	}
}

// Close stops playback and waits a bounded time for the worker to exit.
// It is safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.state = StateClosing
	p.paused = false
	seq := p.seq
	running, done := p.running, p.done
	if running {
		p.playlist.PushFront(entry{sentinel: true})
	}
	p.mu.Unlock()

	stopSequencer(seq)
	p.signal()
	if !running {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(p.closeTimeout):
		return fmt.Errorf("player close: worker still running after %s", p.closeTimeout)
	}
}

// stopSequencer stops seq outside the player lock, since stopping
// flushes note-offs through the sound controller
func stopSequencer(seq Sequencer) {
	if seq != nil && seq.IsOpen() {
		seq.Stop()
	}
}

// signal wakes the worker out of its running check
func (p *Player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Read decodes every note of the file at path using the player's pool
func (p *Player) Read(path string) ([]*note.Note, error) {
	return Read(path, p.pool)
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) PlaylistSize() int {
	return p.playlist.Len()
}

// Current returns the title of the loaded sequence
func (p *Player) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return "", false
	}
	return p.current.title, true
}

// Queued lists the files still to play, the current one first. A current
// entry already pushed back by Reset is not repeated.
func (p *Player) Queued() []string {
	p.mu.Lock()
	var paths []string
	if p.current != nil && p.current.path != "" && !p.rewind {
		paths = append(paths, p.current.path)
	}
	p.mu.Unlock()
	return append(paths, p.playlist.Paths()...)
}

func (p *Player) MicrosecondPosition() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq == nil {
		return 0
	}
	return p.seq.MicrosecondPosition()
}

// IsPlaying reports whether the sequencer is running
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq != nil && p.seq.IsRunning()
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) BPM() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bpm
}

// SetBPM sets the tempo; values <= 0 select DefaultBPM. A loaded
// sequence picks it up immediately.
func (p *Player) SetBPM(bpm float64) {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	p.mu.Lock()
	p.bpm = bpm
	if p.seq != nil && p.current != nil {
		p.seq.SetTempoInBPM(bpm)
	}
	p.mu.Unlock()
}

func (p *Player) SetListener(l Listener) {
	p.mu.Lock()
	p.listener = l
	p.mu.Unlock()
}

// SetConnectDevice takes effect the next time the worker starts
func (p *Player) SetConnectDevice(v bool) {
	p.mu.Lock()
	p.connectDevice = v
	p.mu.Unlock()
}

func (p *Player) ConnectDevice() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectDevice
}

func (p *Player) SoundController() midi.SoundController {
	return p.controller
}
