package midi

import "professore/note"

// NoteFilter decides which notes reach the note handler
type NoteFilter interface {
	Accept(n *note.Note) bool
}

// NoteFilterFunc adapts a function to a NoteFilter
type NoteFilterFunc func(n *note.Note) bool

func (f NoteFilterFunc) Accept(n *note.Note) bool {
	return n != nil && f(n)
}

// KeyRangeFilter keeps one side of a split keyboard. Acute keeps keys at
// or below Key, otherwise keys at or above it.
type KeyRangeFilter struct {
	Acute bool
	Key   uint8
}

func (f KeyRangeFilter) Accept(n *note.Note) bool {
	if n == nil {
		return false
	}
	if f.Acute {
		return n.Key <= f.Key
	}
	return n.Key >= f.Key
}
