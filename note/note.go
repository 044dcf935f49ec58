package note

import (
	"fmt"
	"sort"
	"strings"
)

// Note is one of the 12 chromatic scale degrees measured from a tonic
type Note int

const (
	One Note = iota
	FlatTwo
	Two
	FlatThree
	Three
	Four
	SharpFour
	Five
	FlatSix
	Six
	FlatSeven
	Seven
	noteCount
)

// Count is the number of scale degrees in an octave
const Count = int(noteCount)

var labels = [noteCount]string{"1", "b2", "2", "b3", "3", "4", "#4", "5", "b6", "6", "b7", "7"}

// All returns every scale degree in keyboard order
func All() []Note {
	notes := make([]Note, Count)
	for i := range notes {
		notes[i] = Note(i)
	}
	return notes
}

// Valid reports whether n is one of the 12 defined degrees
func (n Note) Valid() bool {
	return n >= One && n < noteCount
}

// Index returns the keyboard offset of the degree, 0-11
func (n Note) Index() int {
	return int(n)
}

// KeyboardNote returns the 1-based position of the degree within the octave
func (n Note) KeyboardNote() int {
	return int(n) + 1
}

// Key returns the voice sample key recorded for this degree, 1-12
func (n Note) Key() int {
	return n.KeyboardNote()
}

// String returns the display label
func (n Note) String() string {
	if !n.Valid() {
		return fmt.Sprintf("Note(%d)", int(n))
	}
	return labels[n]
}

// FromIndex maps a keyboard offset back to its degree
// Panics on input outside 0-11
func FromIndex(i int) Note {
	if i < 0 || i >= Count {
		panic(fmt.Sprintf("note: index %d out of range [0,%d)", i, Count))
	}
	return Note(i)
}

// Parse resolves a display label ("b3", "#4", "7") to its degree
func Parse(label string) (Note, error) {
	label = strings.TrimSpace(label)
	for i, l := range labels {
		if l == label {
			return Note(i), nil
		}
	}
	return 0, fmt.Errorf("unknown note label %q", label)
}

// RelativeToAbsolute expresses the relative degree as an interval measured from root
func RelativeToAbsolute(root, relative Note) Note {
	return FromIndex((relative.Index() - root.Index() + Count) % Count)
}

// Set is an unordered collection of distinct degrees
type Set map[Note]struct{}

// NewSet builds a set from the given degrees
func NewSet(notes ...Note) Set {
	s := make(Set, len(notes))
	for _, n := range notes {
		s[n] = struct{}{}
	}
	return s
}

// ParseSet builds a set from display labels
func ParseSet(labels []string) (Set, error) {
	s := make(Set, len(labels))
	for _, l := range labels {
		n, err := Parse(l)
		if err != nil {
			return nil, err
		}
		s[n] = struct{}{}
	}
	return s, nil
}

// Contains reports membership
func (s Set) Contains(n Note) bool {
	_, ok := s[n]
	return ok
}

// Sorted returns the members in keyboard order
func (s Set) Sorted() []Note {
	notes := make([]Note, 0, len(s))
	for n := range s {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
	return notes
}

// Labels returns the members' display labels in keyboard order
func (s Set) Labels() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, n := range sorted {
		out[i] = n.String()
	}
	return out
}
