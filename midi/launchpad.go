package midi

import (
	"fmt"
	"sync"

	"professore/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	// LaunchpadBase is the key of the bottom-left pad
	LaunchpadBase = 36
	// each row starts a fourth above the one below
	launchpadRowInterval = 5
)

type pad struct{ row, col int }

// LaunchpadController plays a Novation Launchpad X grid as a keyboard and
// lights the pads of held keys
type LaunchpadController struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()

	mu  sync.Mutex
	lit map[pad]uint8 // palette color last sent per pad

	events    chan InputEvent
	closeOnce sync.Once
}

// NewLaunchpadController creates and configures a Launchpad
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:     id,
		lit:    make(map[pad]uint8),
		events: make(chan InputEvent, 64),
	}

	// Open output
	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Programmer mode: F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))

		// Brightness to maximum: F0 00 20 29 02 0C 08 <brightness> F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.handle, gomidi.HandleError(func(err error) {
			debug.Warn("launchpad", "%s: listener error: %v", id, err)
		}))
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

// handle turns grid pads into key presses on channel 0. Side and top
// buttons are ignored.
func (lp *LaunchpadController) handle(msg gomidi.Message, timestampms int32) {
	var channel, padNote, velocity uint8
	var out gomidi.Message
	switch {
	case msg.GetNoteOn(&channel, &padNote, &velocity):
		key, ok := padKey(padNote)
		if !ok {
			return
		}
		if velocity > 0 {
			out = gomidi.NoteOn(0, key, velocity)
		} else {
			out = gomidi.NoteOff(0, key)
		}
	case msg.GetNoteOff(&channel, &padNote, &velocity):
		key, ok := padKey(padNote)
		if !ok {
			return
		}
		out = gomidi.NoteOff(0, key)
	default:
		return
	}

	select {
	case lp.events <- InputEvent{Message: out, TimestampMs: timestampms}:
	default:
		debug.LogEvery(16, "launchpad", "%s: dropped %s", lp.id, out)
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Events() <-chan InputEvent {
	return lp.events
}

// PadKey returns the key played by the grid pad at row, col (0-7, bottom left)
func PadKey(row, col int) uint8 {
	return uint8(LaunchpadBase + row*launchpadRowInterval + col)
}

func padKey(padNote uint8) (uint8, bool) {
	row, col := noteToRowCol(padNote)
	if row < 0 || col > 7 {
		return 0, false
	}
	return PadKey(row, col), true
}

// ShowHeld lights every pad whose key is held. Only pads that change
// color are sent.
func (lp *LaunchpadController) ShowHeld(held func(key uint8) bool, on, off [3]uint8) {
	if lp.send == nil {
		return
	}
	onColor, offColor := mapRGBToLaunchpad(on), mapRGBToLaunchpad(off)

	lp.mu.Lock()
	defer lp.mu.Unlock()
	sent := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			color := offColor
			if held(PadKey(row, col)) {
				color = onColor
			}
			p := pad{row, col}
			if c, ok := lp.lit[p]; ok && c == color {
				continue
			}
			lp.lit[p] = color
			lp.send(gomidi.NoteOn(0, rowColToNote(row, col), color))
			sent++
		}
	}
	if sent > 0 {
		debug.LogEvery(50, "launchpad", "%s: %d pads updated", lp.id, sent)
	}
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// Launchpad X palette - approximate RGB values for key colors
	// Format: {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{5, 255, 0, 0},       // red
		{6, 255, 80, 80},     // bright red
		{7, 180, 60, 60},     // dim red
		{9, 255, 100, 0},     // orange
		{11, 180, 80, 40},    // dim orange
		{13, 255, 200, 0},    // yellow
		{17, 0, 180, 0},      // green
		{19, 0, 100, 0},      // dim green
		{21, 0, 255, 0},      // bright green
		{37, 0, 200, 200},    // cyan
		{43, 40, 60, 120},    // dim blue
		{45, 0, 100, 255},    // blue
		{47, 80, 150, 255},   // bright blue
		{49, 150, 0, 200},    // purple
		{53, 255, 80, 180},   // pink
		{78, 100, 100, 255},  // light blue
		{84, 255, 150, 50},   // bright orange
		{87, 150, 255, 100},  // lime
		{97, 180, 180, 60},   // dim yellow
		{119, 255, 255, 255}, // white
	}

	bestMatch := uint8(0)
	bestDist := 999999

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])

	for _, p := range palette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}

	return bestMatch
}

// Close darkens the grid and stops listening
func (lp *LaunchpadController) Close() error {
	lp.closeOnce.Do(func() {
		if lp.send != nil {
			lp.mu.Lock()
			for p := range lp.lit {
				lp.send(gomidi.NoteOn(0, rowColToNote(p.row, p.col), 0))
			}
			clear(lp.lit)
			lp.mu.Unlock()
		}
		if lp.stopFunc != nil {
			lp.stopFunc()
		}
		close(lp.events)
	})
	return nil
}

// Launchpad X programmer mode mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 = notes 19, 29, ... 89

func rowColToNote(row, col int) uint8 {
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

// isLaunchpad reports whether an input port belongs to a Launchpad
func isLaunchpad(name string) bool {
	return containsCI(name, "launchpad") || containsCI(name, "lpx")
}

func openLaunchpad(in drivers.In) (Controller, error) {
	outs, err := OutPorts()
	if err != nil {
		return nil, err
	}
	var out drivers.Out
	for _, o := range outs {
		if o.String() == in.String() {
			out = o
			break
		}
	}
	if out == nil {
		debug.Warn("launchpad", "%s: no matching output, LEDs disabled", in)
	}
	return NewLaunchpadController(in.String(), in, out)
}
