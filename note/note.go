package note

import (
	"fmt"
	"hash/fnv"
)

// Velocity dynamics, pppp through ffff
const (
	VelocityPPPP uint8 = 8
	VelocityPPP  uint8 = 20
	VelocityPP   uint8 = 31
	VelocityP    uint8 = 42
	VelocityMP   uint8 = 53
	VelocityMF   uint8 = 64
	VelocityF    uint8 = 80
	VelocityFF   uint8 = 96
	VelocityFFF  uint8 = 112
	VelocityFFFF uint8 = 127
)

// Note is a decoded key event. Notes come from a Pool and go back to it
// with Release; holders that outlive a callback must Clone.
type Note struct {
	Channel    uint8
	Key        uint8
	PitchClass PitchClass
	Octave     int8
	Pressed    bool
	Velocity   uint8
	Track      uint8

	pooled bool
}

// Identity is the comparable part of a Note
type Identity struct {
	PitchClass PitchClass
	Octave     int8
	Pressed    bool
}

func (n *Note) Identity() Identity {
	return Identity{PitchClass: n.PitchClass, Octave: n.Octave, Pressed: n.Pressed}
}

// Equal compares pitch class, octave and pressed state only
func (n *Note) Equal(o *Note) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.Identity() == o.Identity()
}

// Hash is consistent with Equal
func (n *Note) Hash() uint64 {
	id := n.Identity()
	h := fnv.New64a()
	var pressed byte
	if id.Pressed {
		pressed = 1
	}
	h.Write([]byte{byte(id.PitchClass), byte(id.Octave), pressed})
	return h.Sum64()
}

// Name renders pitch and octave, e.g. C#4
func (n *Note) Name() string {
	if !n.PitchClass.Valid() {
		return "-"
	}
	return fmt.Sprintf("%s%d", n.PitchClass.EnglishName(), n.Octave)
}

func (n *Note) String() string {
	state := "off"
	if n.Pressed {
		state = "on"
	}
	return fmt.Sprintf("%s ch=%d key=%d vel=%d %s", n.Name(), n.Channel, n.Key, n.Velocity, state)
}

// Clone returns an unpooled copy
func (n *Note) Clone() *Note {
	c := *n
	c.pooled = false
	return &c
}

// decode fills the pitch fields from a MIDI key number
func (n *Note) decode(channel, key uint8, pressed bool, velocity uint8) {
	n.Channel = channel
	n.Key = key
	n.Velocity = velocity
	n.Pressed = pressed
	if key == 0 {
		n.Octave = 0
		n.PitchClass = NoPitch
		return
	}
	n.Octave = int8(key/12) - 1
	n.PitchClass = PitchClass(key % 12)
}

func (n *Note) reset() {
	n.Channel = 0
	n.Key = 0
	n.PitchClass = NoPitch
	n.Octave = 0
	n.Pressed = false
	n.Velocity = 0
	n.Track = 0
}
