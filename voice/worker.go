package voice

import (
	"time"

	"professore/debug"
)

// worker holds the channels of one Open session
type worker struct {
	interrupt chan struct{}
	notify    chan struct{}
	done      chan struct{}
}

func (w worker) interrupted() bool {
	select {
	case <-w.interrupt:
		return true
	default:
		return false
	}
}

func (p *Player) run(line Line, w worker) {
	defer close(w.done)
	defer func() {
		if err := line.Close(); err != nil {
			debug.Warn("voice", "close line: %v", err)
		}
		p.mu.Lock()
		if p.done == w.done {
			p.open = false
		}
		p.mu.Unlock()
		debug.Log("voice", "worker stopped")
	}()

	for {
		req, ok := p.next(w)
		if !ok {
			return
		}
		if !p.stacked.Load() {
			if req, ok = p.latest(req, w); !ok {
				return
			}
		}
		if req.stop {
			return
		}

		if p.volumeDirty.Swap(false) {
			v := p.Volume()
			applyVolume(line, v)
			debug.Log("voice", "volume %d", v)
		}
		if p.onPlay != nil {
			p.onPlay(req.pitch)
		}
		if !p.stream(line, req, w) {
			return
		}
	}
}

// next waits for a request. It gives up when interrupted, or when the
// player was closed and the queue is empty.
func (p *Player) next(w worker) (request, bool) {
	timer := time.NewTimer(p.poll)
	defer timer.Stop()
	for {
		if req, ok := p.pop(w); ok {
			return req, true
		}
		select {
		case <-w.interrupt:
			return request{}, false
		case <-w.notify:
		case <-timer.C:
			if !p.IsOpen() {
				return request{}, false
			}
			timer.Reset(p.poll)
		}
	}
}

// latest drops queued requests in favour of the newest one. A stop found
// while draining ends the worker.
func (p *Player) latest(req request, w worker) (request, bool) {
	for {
		if req.stop {
			return req, false
		}
		next, ok := p.pop(w)
		if !ok {
			return req, true
		}
		req = next
	}
}

// pop takes the head of the queue unless w has been replaced. Open
// closes the interrupt under mu, so the check cannot race a new worker.
func (p *Player) pop(w worker) (request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 || w.interrupted() {
		return request{}, false
	}
	req := p.queue[0]
	p.queue[0] = request{}
	p.queue = p.queue[1:]
	return req, true
}

// stream writes the sample in chunks. Unstacked players stop as soon as
// another request is waiting. It returns false when the worker must exit.
func (p *Player) stream(line Line, req request, w worker) bool {
	for off := 0; off < len(req.pcm); off += chunkSize {
		if w.interrupted() {
			return false
		}
		if !p.stacked.Load() && p.Pending() > 0 {
			debug.Log("voice", "%s cut short", req.pitch)
			return true
		}
		end := min(off+chunkSize, len(req.pcm))
		if _, err := line.Write(req.pcm[off:end]); err != nil {
			debug.Warn("voice", "write %s: %v", req.pitch, err)
			return false
		}
	}
	return true
}
