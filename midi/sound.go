package midi

import (
	"slices"
	"sync"

	"professore/debug"
	"professore/note"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// SoundController receives the channel and meta events of a performance
type SoundController interface {
	ControlChange(msg gomidi.Message)
	Meta(msg smf.Message)
	Filter() NoteFilter
	SetFilter(f NoteFilter)
}

// NoteHandler is called with each accepted note. The note goes back to
// the pool when the handler returns.
type NoteHandler func(n *note.Note)

// Adapter turns channel messages into notes and tracks held keys
type Adapter struct {
	pool   *note.Pool
	onNote NoteHandler
	onMeta func(smf.Message)

	mu     sync.Mutex
	filter NoteFilter
	held   map[uint8]gomidi.Message
}

// NewAdapter creates an adapter drawing notes from pool (the default pool
// when nil)
func NewAdapter(pool *note.Pool, onNote NoteHandler) *Adapter {
	if pool == nil {
		pool = note.DefaultPool()
	}
	return &Adapter{
		pool:   pool,
		onNote: onNote,
		held:   make(map[uint8]gomidi.Message),
	}
}

// OnMeta sets the handler for meta events
func (a *Adapter) OnMeta(fn func(smf.Message)) {
	a.mu.Lock()
	a.onMeta = fn
	a.mu.Unlock()
}

func (a *Adapter) Filter() NoteFilter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filter
}

func (a *Adapter) SetFilter(f NoteFilter) {
	a.mu.Lock()
	a.filter = f
	a.mu.Unlock()
}

func (a *Adapter) Meta(msg smf.Message) {
	var bpm float64
	if msg.GetMetaTempo(&bpm) {
		debug.Log("sound", "tempo %.2f", bpm)
	}
	a.mu.Lock()
	fn := a.onMeta
	a.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// ControlChange handles one channel message
func (a *Adapter) ControlChange(msg gomidi.Message) {
	if IsChannelMode(msg) {
		a.releaseHeld()
		return
	}

	n, err := a.pool.BorrowMessage(msg)
	if err != nil {
		debug.Warn("sound", "decode %s: %v", msg, err)
		return
	}
	if n == nil {
		return
	}
	defer a.pool.Release(n)

	a.mu.Lock()
	filter := a.filter
	a.mu.Unlock()
	if filter != nil && !filter.Accept(n) {
		return
	}

	a.mu.Lock()
	if n.Pressed {
		a.held[n.Key] = msg
	} else {
		delete(a.held, n.Key)
	}
	a.mu.Unlock()

	a.emit(n)
}

// releaseHeld emits a release for every held key, lowest first
func (a *Adapter) releaseHeld() {
	a.mu.Lock()
	held := a.held
	a.held = make(map[uint8]gomidi.Message)
	a.mu.Unlock()

	keys := make([]uint8, 0, len(held))
	for k := range held {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		var ch, k, vel uint8
		held[key].GetNoteOn(&ch, &k, &vel)
		n, err := a.pool.BorrowNote(ch, key, false, 0)
		if err != nil {
			debug.Warn("sound", "release key %d: %v", key, err)
			continue
		}
		a.emit(n)
		a.pool.Release(n)
	}
	if len(keys) > 0 {
		debug.Log("sound", "released %d held keys", len(keys))
	}
}

func (a *Adapter) emit(n *note.Note) {
	if a.onNote != nil {
		a.onNote(n)
	}
}

// Held returns the currently held keys in ascending order
func (a *Adapter) Held() []uint8 {
	a.mu.Lock()
	keys := make([]uint8, 0, len(a.held))
	for k := range a.held {
		keys = append(keys, k)
	}
	a.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// Bridge sits between a sequencer and its output. Channel messages go to
// the controller; the delegate only sees them when Forward is set.
type Bridge struct {
	Controller SoundController
	Delegate   Receiver
	Forward    bool
}

func (b *Bridge) Send(msg gomidi.Message, ts int64) {
	if b.Controller != nil && IsChannelMessage(msg) {
		b.Controller.ControlChange(msg)
	}
	if b.Forward && b.Delegate != nil {
		b.Delegate.Send(msg, ts)
	}
}

func (b *Bridge) Close() error {
	if b.Delegate != nil {
		return b.Delegate.Close()
	}
	return nil
}
