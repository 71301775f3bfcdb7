package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Controller numbers
const (
	ControllerPitch       uint8 = 5 // portamento time
	ControllerVolume      uint8 = 7
	ControllerAllSoundOff uint8 = 120
	ControllerAllNotesOff uint8 = 123

	// 120..127 are the channel mode messages
	channelModeFirst uint8 = 120
	channelModeLast  uint8 = 127
)

// MidExtension is the file extension of standard MIDI files
const MidExtension = ".mid"

// IsChannelMessage reports whether msg is a channel voice or mode message
func IsChannelMessage(msg gomidi.Message) bool {
	var ch uint8
	return msg.GetChannel(&ch)
}

// IsChannelMode reports whether msg is a control change on controllers
// 120 to 127 (all sound off, reset, local control, all notes off, modes)
func IsChannelMode(msg gomidi.Message) bool {
	var ch, cc, val uint8
	if !msg.GetControlChange(&ch, &cc, &val) {
		return false
	}
	return cc >= channelModeFirst && cc <= channelModeLast
}

// AllNotesOff returns the all-notes-off message for every channel in chans
func AllNotesOff(chans ...uint8) []gomidi.Message {
	out := make([]gomidi.Message, 0, len(chans))
	for _, ch := range chans {
		out = append(out, gomidi.ControlChange(ch, ControllerAllNotesOff, 0))
	}
	return out
}
