// Package voice plays one recorded sample per pitch class.
package voice

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"professore/debug"
	"professore/note"
)

const (
	DefaultVolume = 100

	defaultPollInterval = time.Second
	chunkSize           = 16 * 1024
)

type Options struct {
	Bank         *Bank
	OpenLine     LineOpener // OpenAudioLine when nil
	OnPlay       func(note.PitchClass)
	PollInterval time.Duration
}

type request struct {
	pitch note.PitchClass
	pcm   []byte
	stop  bool
}

// Player renders pitch classes through a line on its own goroutine.
// Requests queue without bound. Stacked players render every request in
// order; unstacked ones jump to the newest request and cut the current
// sample short.
type Player struct {
	bank     *Bank
	openLine LineOpener
	onPlay   func(note.PitchClass)
	poll     time.Duration

	mu        sync.Mutex
	queue     []request
	notify    chan struct{}
	open      bool
	interrupt chan struct{}
	done      chan struct{}

	stacked     atomic.Bool
	volume      atomic.Uint32
	volumeDirty atomic.Bool
}

func NewPlayer(opts Options) *Player {
	p := &Player{
		bank:     opts.Bank,
		openLine: opts.OpenLine,
		onPlay:   opts.OnPlay,
		poll:     opts.PollInterval,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if p.openLine == nil {
		p.openLine = OpenAudioLine
	}
	if p.poll <= 0 {
		p.poll = defaultPollInterval
	}
	close(p.done)
	p.stacked.Store(true)
	p.volume.Store(DefaultVolume)
	p.volumeDirty.Store(true)
	return p
}

// Open starts a worker on a fresh line. A worker left over from an
// earlier session is interrupted. Opening an open player does nothing.
func (p *Player) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return nil
	}
	if p.bank.Len() == 0 {
		return ErrNoSamples
	}
	line, err := p.openLine(p.bank.Format())
	if err != nil {
		return fmt.Errorf("voice: open line: %w", err)
	}

	if p.interrupt != nil {
		close(p.interrupt)
	}
	// a stop left by Close belongs to the old worker
	p.queue = slices.DeleteFunc(p.queue, func(r request) bool { return r.stop })

	p.interrupt = make(chan struct{})
	p.notify = make(chan struct{}, 1)
	p.done = make(chan struct{})
	p.open = true
	p.volumeDirty.Store(true)
	go p.run(line, worker{interrupt: p.interrupt, notify: p.notify, done: p.done})
	debug.Log("voice", "opened (%s, %d samples)", p.bank.Format(), p.bank.Len())
	return nil
}

// Close asks the worker to stop once it reaches the end of the queue.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return
	}
	p.open = false
	p.queue = append(p.queue, request{stop: true})
	p.signal()
	debug.Log("voice", "close requested")
}

// Play queues the sample of each pitch class. Pitches without a sample
// are skipped.
func (p *Player) Play(pcs ...note.PitchClass) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pc := range pcs {
		pcm, ok := p.bank.Sample(pc)
		if !ok {
			debug.Info("voice", "no sample for %s", pc)
			continue
		}
		p.queue = append(p.queue, request{pitch: pc, pcm: pcm})
	}
	p.signal()
}

// Sample returns the PCM played for pc
func (p *Player) Sample(pc note.PitchClass) ([]byte, bool) {
	return p.bank.Sample(pc)
}

func (p *Player) Bank() *Bank {
	return p.bank
}

// SetVolume sets the level from 0 (muted) to 100. It takes effect on the
// next request.
func (p *Player) SetVolume(v uint8) {
	p.volume.Store(uint32(min(v, 100)))
	p.volumeDirty.Store(true)
}

func (p *Player) Volume() uint8 {
	return uint8(p.volume.Load())
}

func (p *Player) SetStacked(stacked bool) {
	p.stacked.Store(stacked)
}

func (p *Player) IsStacked() bool {
	return p.stacked.Load()
}

func (p *Player) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Done is closed when the current worker exits
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Pending returns the number of queued requests
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// signal wakes the current worker; callers hold mu
func (p *Player) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}
