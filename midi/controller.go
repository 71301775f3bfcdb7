package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// InputEvent is a message received from a controller
type InputEvent struct {
	Message     gomidi.Message
	TimestampMs int32
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string

	// Channel messages played on the device
	Events() <-chan InputEvent

	// Lifecycle
	Close() error
}

// HeldDisplay is implemented by controllers that can show held keys
type HeldDisplay interface {
	ShowHeld(held func(key uint8) bool, on, off [3]uint8)
}
