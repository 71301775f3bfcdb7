package sequencer

import (
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// PlaylistCapacity is the maximum number of queued sequences
const PlaylistCapacity = 127

// entry is a queued sequence, or the worker's stop marker
type entry struct {
	title    string
	path     string // source file, empty for in-memory sequences
	seq      *smf.SMF
	sentinel bool
}

// playlist is a bounded FIFO that also accepts pushes at the front
type playlist struct {
	mu     sync.Mutex
	items  []entry
	cap    int
	notify chan struct{}
}

func newPlaylist(capacity int) *playlist {
	return &playlist{
		cap:    capacity,
		notify: make(chan struct{}, 1),
	}
}

// PushBack appends e. Sentinels are accepted even when full.
func (q *playlist) PushBack(e entry) error {
	q.mu.Lock()
	if !e.sentinel && q.countLocked() >= q.cap {
		q.mu.Unlock()
		return ErrPlaylistFull
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.signal()
	return nil
}

// PushFront inserts e ahead of everything else, ignoring capacity
func (q *playlist) PushFront(e entry) {
	q.mu.Lock()
	q.items = append(q.items, entry{})
	copy(q.items[1:], q.items)
	q.items[0] = e
	q.mu.Unlock()
	q.signal()
}

// Poll removes the head, waiting up to timeout for one to arrive
func (q *playlist) Poll(timeout time.Duration) (entry, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items[0] = entry{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-deadline.C:
			return entry{}, false
		}
	}
}

// Len counts queued sequences, not sentinels
func (q *playlist) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.countLocked()
}

func (q *playlist) countLocked() int {
	n := 0
	for _, e := range q.items {
		if !e.sentinel {
			n++
		}
	}
	return n
}

// Paths lists the source files of queued entries, head first
func (q *playlist) Paths() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var paths []string
	for _, e := range q.items {
		if !e.sentinel && e.path != "" {
			paths = append(paths, e.path)
		}
	}
	return paths
}

// Clear drops every queued entry
func (q *playlist) Clear() {
	q.mu.Lock()
	clear(q.items)
	q.items = q.items[:0]
	q.mu.Unlock()
}

func (q *playlist) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
