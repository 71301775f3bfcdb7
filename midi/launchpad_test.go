package midi

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func newTestLaunchpad() (*LaunchpadController, *[]gomidi.Message) {
	var sent []gomidi.Message
	lp := &LaunchpadController{
		id:     "lp",
		lit:    make(map[pad]uint8),
		events: make(chan InputEvent, 8),
		send: func(msg gomidi.Message) error {
			sent = append(sent, msg)
			return nil
		},
	}
	return lp, &sent
}

func TestLaunchpadPadsPlayKeys(t *testing.T) {
	lp, _ := newTestLaunchpad()

	lp.handle(gomidi.NoteOn(0, 11, 90), 5) // bottom left
	lp.handle(gomidi.NoteOn(0, 23, 90), 6) // row 1, col 2
	lp.handle(gomidi.NoteOn(0, 11, 0), 7)  // release
	lp.handle(gomidi.NoteOn(0, 19, 90), 8) // side button
	lp.handle(gomidi.ControlChange(0, 91, 127), 9)

	want := []gomidi.Message{
		gomidi.NoteOn(0, LaunchpadBase, 90),
		gomidi.NoteOn(0, LaunchpadBase+launchpadRowInterval+2, 90),
		gomidi.NoteOff(0, LaunchpadBase),
	}
	if len(lp.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(lp.events), len(want))
	}
	for i, w := range want {
		ev := <-lp.events
		if ev.Message.String() != w.String() {
			t.Errorf("event %d = %s, want %s", i, ev.Message, w)
		}
	}
}

func TestLaunchpadShowHeldSendsChanges(t *testing.T) {
	lp, sent := newTestLaunchpad()
	white, black := [3]uint8{255, 255, 255}, [3]uint8{0, 0, 0}

	held := func(k uint8) bool { return k == LaunchpadBase }
	lp.ShowHeld(held, white, black)
	if len(*sent) != 64 {
		t.Fatalf("first update sent %d pads, want the whole grid", len(*sent))
	}

	*sent = nil
	lp.ShowHeld(held, white, black)
	if len(*sent) != 0 {
		t.Errorf("unchanged grid resent %d pads", len(*sent))
	}

	lp.ShowHeld(func(uint8) bool { return false }, white, black)
	if len(*sent) != 1 || (*sent)[0].String() != gomidi.NoteOn(0, 11, 0).String() {
		t.Errorf("release sent %v", *sent)
	}

	*sent = nil
	lp.Close()
	if len(*sent) != 64 {
		t.Errorf("close darkened %d pads", len(*sent))
	}
	if _, open := <-lp.events; open {
		t.Error("events left open")
	}
}

func TestLaunchpadHelpers(t *testing.T) {
	if c := mapRGBToLaunchpad([3]uint8{250, 250, 250}); c != 119 {
		t.Errorf("near white = %d", c)
	}
	if c := mapRGBToLaunchpad([3]uint8{0, 0, 0}); c != 0 {
		t.Errorf("black = %d", c)
	}
	if r, c := noteToRowCol(88); r != 7 || c != 7 {
		t.Errorf("noteToRowCol(88) = %d, %d", r, c)
	}
	if r, _ := noteToRowCol(5); r != -1 {
		t.Error("note below the grid mapped")
	}
	if !isLaunchpad("Launchpad X LPX MIDI") || isLaunchpad("Keystation 49") {
		t.Error("isLaunchpad")
	}
}
