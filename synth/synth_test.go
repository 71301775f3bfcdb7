package synth

import (
	"encoding/binary"
	"io"
	"slices"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

type call struct {
	channel, command, data1, data2 int32
}

type fakeEngine struct {
	calls   []call
	offAll  int
	renders int
}

func (f *fakeEngine) ProcessMidiMessage(channel, command, data1, data2 int32) {
	f.calls = append(f.calls, call{channel, command, data1, data2})
}

func (f *fakeEngine) NoteOffAll(bool) { f.offAll++ }

func (f *fakeEngine) Render(left, right []float32) {
	f.renders++
	for i := range left {
		left[i] = 0.5
		right[i] = -2
	}
}

func TestSendForwardsChannelMessages(t *testing.T) {
	e := &fakeEngine{}
	s := newSynth(e, 44100)

	s.Send(gomidi.NoteOn(3, 60, 100), 0)
	s.Send(gomidi.NoteOff(3, 60), 0)
	s.Send(gomidi.ProgramChange(1, 40), 0)
	s.Send(gomidi.SysEx([]byte{0x7e, 0x7f}), 0)

	want := []call{
		{3, 0x90, 60, 100},
		{3, 0x80, 60, 0},
		{1, 0xC0, 40, 0},
	}
	if !slices.Equal(e.calls, want) {
		t.Errorf("engine saw %v, want %v", e.calls, want)
	}
}

func TestReadRendersClampedFrames(t *testing.T) {
	e := &fakeEngine{}
	s := newSynth(e, 44100)

	p := make([]byte, 4*frameBytes+1)
	n, err := s.Read(p)
	if err != nil || n != 4*frameBytes {
		t.Fatalf("Read = %d, %v", n, err)
	}
	l := int16(binary.LittleEndian.Uint16(p[0:]))
	r := int16(binary.LittleEndian.Uint16(p[2:]))
	if l != 16383 || r != -32767 {
		t.Errorf("frame = %d, %d", l, r)
	}
}

func TestCloseSilencesOnce(t *testing.T) {
	e := &fakeEngine{}
	s := newSynth(e, 44100)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if e.offAll != 1 {
		t.Errorf("NoteOffAll called %d times", e.offAll)
	}

	s.Send(gomidi.NoteOn(0, 60, 100), 0)
	if len(e.calls) != 0 {
		t.Error("closed synth forwarded a message")
	}
	if _, err := s.Read(make([]byte, 8)); err != io.EOF {
		t.Errorf("Read after Close = %v, want EOF", err)
	}
}
