package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"professore/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrNoPort is returned when no output port matches
var ErrNoPort = errors.New("no matching MIDI output port")

// portTimeout bounds port enumeration (CoreMIDI can hang)
const portTimeout = 3 * time.Second

// Receiver consumes timestamped MIDI messages
type Receiver interface {
	Send(msg gomidi.Message, timestampMicros int64)
	Close() error
}

// ReceiverFunc adapts a function to a Receiver with a no-op Close
type ReceiverFunc func(msg gomidi.Message, timestampMicros int64)

func (f ReceiverFunc) Send(msg gomidi.Message, ts int64) { f(msg, ts) }
func (f ReceiverFunc) Close() error                     { return nil }

// PortReceiver sends to a MIDI output port
type PortReceiver struct {
	mu   sync.Mutex
	out  drivers.Out
	send func(msg gomidi.Message) error
}

// NewPortReceiver opens out for sending
func NewPortReceiver(out drivers.Out) (*PortReceiver, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", out, err)
	}
	return &PortReceiver{out: out, send: send}, nil
}

// OpenPortReceiver opens the first output port whose name contains name
// (case-insensitive). An empty name picks the first port.
func OpenPortReceiver(name string) (*PortReceiver, error) {
	outs, err := OutPorts()
	if err != nil {
		return nil, err
	}
	for _, out := range outs {
		if name == "" || containsCI(out.String(), name) {
			debug.Info("midi", "using output port %s", out)
			return NewPortReceiver(out)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoPort, name)
}

func (r *PortReceiver) Send(msg gomidi.Message, _ int64) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send == nil {
		return
	}
	if err := send(msg); err != nil {
		debug.Warn("midi", "send %s to %s: %v", msg, r.out, err)
	}
}

// Close silences every channel and closes the port
func (r *PortReceiver) Close() error {
	r.mu.Lock()
	send := r.send
	r.send = nil
	r.mu.Unlock()
	if send == nil {
		return nil
	}
	for ch := uint8(0); ch < 16; ch++ {
		send(gomidi.ControlChange(ch, ControllerAllNotesOff, 0))
	}
	return r.out.Close()
}

// OutPorts lists output ports, giving up after portTimeout
func OutPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()
	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(portTimeout):
		return nil, fmt.Errorf("listing output ports: timed out after %s", portTimeout)
	}
}

// InPorts lists input ports, giving up after portTimeout
func InPorts() ([]drivers.In, error) {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()
	select {
	case ins := <-ch:
		return ins, nil
	case <-time.After(portTimeout):
		return nil, fmt.Errorf("listing input ports: timed out after %s", portTimeout)
	}
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// KeepOpen wraps a receiver shared between owners. Close only silences
// the output; the real owner closes r itself.
func KeepOpen(r Receiver) Receiver {
	return keepOpen{r}
}

type keepOpen struct {
	Receiver
}

func (k keepOpen) Close() error {
	for ch := uint8(0); ch < 16; ch++ {
		k.Send(gomidi.ControlChange(ch, ControllerAllNotesOff, 0), 0)
	}
	return nil
}
