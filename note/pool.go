package note

import (
	"fmt"
	"sync"
	"sync/atomic"

	"professore/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
)

const (
	DefaultPrefillCount = 64
	DefaultPrefillLimit = 0.10
)

// PoolError reports a failure to create a Note
type PoolError struct {
	Op  string
	Err error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("note pool %s: %v", e.Op, e.Err)
}

func (e *PoolError) Unwrap() error {
	return e.Err
}

// Options configures a Pool. Zero values take the defaults.
type Options struct {
	PrefillCount int     // idle target
	PrefillLimit float64 // refill when idle/target drops below this
	Capacity     int     // max idle slots kept, default 4x PrefillCount

	// New overrides slot creation. When nil, slots come from slabs.
	New func() (*Note, error)
}

// Pool hands out reusable Notes. Borrow is serialized; refills run on a
// background goroutine, at most one at a time.
type Pool struct {
	mu       sync.Mutex
	free     []*Note
	target   int
	limit    float64
	capacity int
	factory  func() (*Note, error)

	refilling atomic.Bool
	wg        sync.WaitGroup
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// DefaultPool returns the process-wide pool
func DefaultPool() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(Options{})
	})
	return defaultPool
}

// NewPool creates a pool and fills it up to the prefill target
func NewPool(opts Options) *Pool {
	if opts.PrefillCount <= 0 {
		opts.PrefillCount = DefaultPrefillCount
	}
	if opts.PrefillLimit <= 0 || opts.PrefillLimit > 1 {
		opts.PrefillLimit = DefaultPrefillLimit
	}
	if opts.Capacity < opts.PrefillCount {
		opts.Capacity = 4 * opts.PrefillCount
	}

	p := &Pool{
		target:   opts.PrefillCount,
		limit:    opts.PrefillLimit,
		capacity: opts.Capacity,
		factory:  opts.New,
	}
	slots, err := p.create(p.target)
	if err != nil {
		debug.Warn("pool", "initial prefill stopped after %d slots: %v", len(slots), err)
	}
	p.free = slots
	return p
}

// create allocates up to n slots, stopping at the first factory error
func (p *Pool) create(n int) ([]*Note, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]*Note, 0, n)
	if p.factory == nil {
		slab := make([]Note, n)
		for i := range slab {
			slab[i].PitchClass = NoPitch
			out = append(out, &slab[i])
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		nt, err := p.factory()
		if err != nil {
			return out, err
		}
		if nt == nil {
			return out, fmt.Errorf("factory returned nil")
		}
		nt.reset()
		out = append(out, nt)
	}
	return out, nil
}

// Borrow takes a Note from the pool, creating one when none is idle.
// The returned Note has every field at its zero state.
func (p *Pool) Borrow() (*Note, error) {
	p.mu.Lock()
	var n *Note
	var err error
	if last := len(p.free) - 1; last >= 0 {
		n = p.free[last]
		p.free[last] = nil
		p.free = p.free[:last]
	} else {
		var slots []*Note
		slots, err = p.create(1)
		if err == nil {
			n = slots[0]
		}
	}
	idle := len(p.free)
	p.mu.Unlock()

	p.maybeRefill(idle)

	if err != nil {
		return nil, &PoolError{Op: "borrow", Err: err}
	}
	n.pooled = true
	return n, nil
}

// BorrowNote borrows a Note and decodes it from explicit values
func (p *Pool) BorrowNote(channel, key uint8, pressed bool, velocity uint8) (*Note, error) {
	n, err := p.Borrow()
	if err != nil {
		return nil, err
	}
	n.decode(channel, key, pressed, velocity)
	return n, nil
}

// BorrowMessage decodes a Note-On or Note-Off message. Any other message
// yields a nil Note and a nil error.
func (p *Pool) BorrowMessage(msg gomidi.Message) (*Note, error) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return p.BorrowNote(ch, key, vel > 0, vel)
	case msg.GetNoteOff(&ch, &key, &vel):
		return p.BorrowNote(ch, key, false, vel)
	}
	debug.Log("pool", "not a note message: %s", msg)
	return nil, nil
}

// Release resets n and returns it to the pool. Releasing a Note twice,
// or one that did not come from a pool, is a no-op.
func (p *Pool) Release(n *Note) {
	if n == nil || !n.pooled {
		return
	}
	n.pooled = false
	n.reset()

	p.mu.Lock()
	if len(p.free) < p.capacity {
		p.free = append(p.free, n)
	}
	p.mu.Unlock()
}

func (p *Pool) maybeRefill(idle int) {
	p.mu.Lock()
	target, limit := p.target, p.limit
	p.mu.Unlock()

	if float64(idle)/float64(target) >= limit {
		return
	}
	if !p.refilling.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(1)
	go p.refill()
}

func (p *Pool) refill() {
	defer p.wg.Done()
	defer p.refilling.Store(false)

	p.mu.Lock()
	missing := p.target - len(p.free)
	p.mu.Unlock()

	slots, err := p.create(missing)
	if err != nil {
		debug.Warn("pool", "refill stopped after %d of %d: %v", len(slots), missing, err)
	}

	p.mu.Lock()
	room := p.capacity - len(p.free)
	if len(slots) > room {
		slots = slots[:max(room, 0)]
	}
	p.free = append(p.free, slots...)
	idle := len(p.free)
	p.mu.Unlock()

	debug.Log("pool", "refilled %d, idle=%d", len(slots), idle)
}

// Idle returns the number of idle slots
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

func (p *Pool) PrefillCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// SetPrefillCount changes the idle target. Values below 1 are ignored.
func (p *Pool) SetPrefillCount(n int) {
	if n < 1 {
		return
	}
	p.mu.Lock()
	p.target = n
	if p.capacity < n {
		p.capacity = n
	}
	p.mu.Unlock()
}

func (p *Pool) PrefillLimit() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limit
}

// SetPrefillLimit changes the refill threshold, clamped to [0, 1]
func (p *Pool) SetPrefillLimit(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	p.mu.Lock()
	p.limit = f
	p.mu.Unlock()
}

// Wait blocks until any in-flight refill has finished
func (p *Pool) Wait() {
	p.wg.Wait()
}
