package sequencer

import (
	"errors"
	"fmt"
	"time"

	"professore/debug"
	"professore/midi"
)

// run is the player's worker. It owns one sequencer for its lifetime and
// exits when the playlist stays empty, on a sentinel, or on error.
func (p *Player) run(done chan struct{}) {
	defer close(done)

	seq, bridge, err := p.initialize()
	if err != nil {
		debug.Error("player", "initialize: %v", err)
		p.finish(nil, nil, false)
		return
	}

	retired := false
	defer func() {
		p.finish(seq, bridge, retired)
	}()

	for {
		p.setState(StateWaiting)
		e, ok := p.playlist.Poll(p.pollInterval)
		if !ok {
			if p.exitIfIdle(seq) {
				retired = true
				return
			}
			continue
		}
		if e.sentinel {
			debug.Log("player", "sentinel received")
			return
		}

		if err := p.playEntry(seq, e); err != nil {
			debug.Error("player", "%v", err)
			if errors.Is(err, ErrMalformedSequence) {
				return
			}
		}

		if p.exitIfIdle(seq) {
			retired = true
			return
		}
	}
}

// exitIfIdle retires the worker when nothing is queued. Enqueue pushes
// under the same lock, so a submission either lands before this check or
// starts a new worker.
func (p *Player) exitIfIdle(seq Sequencer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.playlist.Len() == 0 {
		p.retireLocked(seq)
		return true
	}
	return false
}

// retireLocked clears the worker's share of the player state
func (p *Player) retireLocked(seq Sequencer) {
	p.running = false
	if seq != nil && p.seq == seq {
		p.seq = nil
	}
	p.current = nil
	p.rewind = false
	p.paused = false
	if !p.closed {
		p.state = StateIdle
	}
}

func (p *Player) initialize() (Sequencer, *midi.Bridge, error) {
	p.setState(StateInitializing)
	p.mu.Lock()
	connect := p.connectDevice
	p.mu.Unlock()

	seq, err := p.newSequencer()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := seq.Open(); err != nil {
		return nil, nil, fmt.Errorf("%w: open sequencer: %v", ErrDeviceUnavailable, err)
	}

	var device midi.Receiver
	if connect && p.openDevice != nil {
		device, err = p.openDevice()
		if err != nil {
			seq.Close()
			return nil, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	}

	bridge := &midi.Bridge{
		Controller: p.controller,
		Delegate:   device,
		Forward:    p.forward,
	}
	seq.SetReceiver(bridge)
	seq.SetMetaListener(p.controller.Meta)

	p.mu.Lock()
	p.seq = seq
	p.mu.Unlock()

	debug.Log("player", "sequencer ready, device=%v forward=%v", device != nil, p.forward)
	return seq, bridge, nil
}

// playEntry loads e and waits while it plays or is paused
func (p *Player) playEntry(seq Sequencer, e entry) error {
	if err := seq.SetSequence(e.seq); err != nil {
		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()
		return fmt.Errorf("%w: %s: %v", ErrMalformedSequence, e.title, err)
	}

	p.mu.Lock()
	p.current = &e
	p.rewind = false
	p.state = StatePlaying
	seq.SetTempoInBPM(p.bpm)
	if !p.paused {
		seq.Start()
	}
	l := p.listener
	p.mu.Unlock()

	debug.Info("player", "playing %s", e.title)
	if l != nil {
		l.Playing(p, e.title, e.seq)
	}

	for {
		p.mu.Lock()
		abandon := p.closed || p.rewind
		busy := seq.IsRunning() || p.paused
		p.mu.Unlock()
		if abandon || !busy {
			break
		}

		select {
		case <-p.wake:
		case <-time.After(p.checkInterval):
		}
	}

	seq.Stop()

	p.mu.Lock()
	if !p.rewind {
		p.current = nil
	}
	p.mu.Unlock()
	return nil
}

// finish closes the worker's sequencer and device and reports Stopped
func (p *Player) finish(seq Sequencer, bridge *midi.Bridge, retired bool) {
	p.mu.Lock()
	if !retired {
		p.retireLocked(seq)
	}
	l := p.listener
	p.mu.Unlock()

	if seq != nil {
		seq.Close()
	}
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			debug.Warn("player", "close device: %v", err)
		}
	}
	debug.Log("player", "worker stopped")
	if l != nil {
		l.Stopped(p)
	}
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	if !p.closed {
		p.state = s
	}
	p.mu.Unlock()
}
