package note

import "strings"

// PitchClass is one of the twelve chromatic pitch classes
type PitchClass int8

const (
	NoPitch PitchClass = iota - 1
	C
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

type pitchInfo struct {
	english    string
	italian    string
	alteration bool
}

var pitches = [12]pitchInfo{
	{"C", "Do", false},
	{"C#", "Do#", true},
	{"D", "Re", false},
	{"D#", "Re#", true},
	{"E", "Mi", false},
	{"F", "Fa", false},
	{"F#", "Fa#", true},
	{"G", "Sol", false},
	{"G#", "Sol#", true},
	{"A", "La", false},
	{"A#", "La#", true},
	{"B", "Si", false},
}

// flat spellings resolve to the sharp of the lower neighbour
var flats = map[string]PitchClass{
	"d♭": CSharp, "re♭": CSharp, "db": CSharp, "reb": CSharp,
	"e♭": DSharp, "mi♭": DSharp, "eb": DSharp, "mib": DSharp,
	"g♭": FSharp, "sol♭": FSharp, "gb": FSharp, "solb": FSharp,
	"a♭": GSharp, "la♭": GSharp, "ab": GSharp, "lab": GSharp,
	"b♭": ASharp, "si♭": ASharp, "bb": ASharp, "sib": ASharp,
}

// PitchClasses returns the twelve pitch classes in chromatic order
func PitchClasses() []PitchClass {
	out := make([]PitchClass, 12)
	for i := range out {
		out[i] = PitchClass(i)
	}
	return out
}

// Valid reports whether p is one of C..B
func (p PitchClass) Valid() bool {
	return p >= C && p <= B
}

// IsSharp reports whether p is an altered (black key) pitch
func (p PitchClass) IsSharp() bool {
	return p.Valid() && pitches[p].alteration
}

// IsAlteration is an alias of IsSharp
func (p PitchClass) IsAlteration() bool {
	return p.IsSharp()
}

func (p PitchClass) EnglishName() string {
	if !p.Valid() {
		return ""
	}
	return pitches[p].english
}

func (p PitchClass) ItalianName() string {
	if !p.Valid() {
		return ""
	}
	return pitches[p].italian
}

func (p PitchClass) String() string {
	if !p.Valid() {
		return "-"
	}
	return pitches[p].italian
}

// Next returns the following pitch class, wrapping B to C.
// Alterations are skipped unless includeAlterations is set.
func (p PitchClass) Next(includeAlterations bool) PitchClass {
	if !p.Valid() {
		return NoPitch
	}
	n := p
	for {
		n = (n + 1) % 12
		if includeAlterations || !pitches[n].alteration {
			return n
		}
	}
}

// Previous returns the preceding pitch class, wrapping C to B.
func (p PitchClass) Previous(includeAlterations bool) PitchClass {
	if !p.Valid() {
		return NoPitch
	}
	n := p
	for {
		n = (n + 11) % 12
		if includeAlterations || !pitches[n].alteration {
			return n
		}
	}
}

// ParsePitchClass resolves an English or Italian name, or a flat alias,
// case-insensitively.
func ParsePitchClass(s string) (PitchClass, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NoPitch, false
	}
	for i, info := range pitches {
		if s == strings.ToLower(info.english) || s == strings.ToLower(info.italian) {
			return PitchClass(i), true
		}
	}
	if p, ok := flats[s]; ok {
		return p, true
	}
	return NoPitch, false
}
