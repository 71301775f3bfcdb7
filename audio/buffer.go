package audio

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by writes to a closed line
var ErrClosed = errors.New("audio: line closed")

// pcmBuffer sits between a writer and the oto player. Write blocks while
// the buffer is full; Read never blocks and pads with silence.
type pcmBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   []byte
	limit  int
	closed bool
}

func newPCMBuffer(limit int) *pcmBuffer {
	b := &pcmBuffer{limit: limit, data: make([]byte, 0, limit)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pcmBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for len(p) > 0 {
		for len(b.data) >= b.limit && !b.closed {
			b.cond.Wait()
		}
		if b.closed {
			return written, ErrClosed
		}
		n := min(len(p), b.limit-len(b.data))
		b.data = append(b.data, p[:n]...)
		p = p[n:]
		written += n
	}
	return written, nil
}

func (b *pcmBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed && len(b.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.data)
	rest := copy(b.data, b.data[n:])
	b.data = b.data[:rest]
	clear(p[n:])
	b.cond.Broadcast()
	return len(p), nil
}

// Buffered returns the bytes not yet handed to the player
func (b *pcmBuffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *pcmBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
