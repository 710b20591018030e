package note

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type PitchClass int

const (
	C PitchClass = iota
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

var classNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var classOffsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

func (c PitchClass) String() string {
	return classNames[floorMod(int(c), 12)]
}

// ParsePitchClass accepts names like "C", "c#", "Eb".
func ParsePitchClass(s string) (PitchClass, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty pitch class")
	}
	off, ok := classOffsets[lower(s[0])]
	if !ok {
		return 0, fmt.Errorf("invalid pitch class %q", s)
	}
	for _, ch := range s[1:] {
		switch ch {
		case '#', '+':
			off++
		case 'b', '-':
			off--
		default:
			return 0, fmt.Errorf("invalid accidental in %q", s)
		}
	}
	return PitchClass(floorMod(off, 12)), nil
}

// Pitch is an octave and pitch class. A at octave 3 is 440 Hz.
type Pitch struct {
	Octave int
	Class  PitchClass
}

func NewPitch(octave int, class PitchClass) Pitch {
	return Pitch{Octave: octave, Class: class}
}

func (p Pitch) Semitones() int {
	return p.Octave*12 + int(p.Class)
}

func FromSemitones(semitones int) Pitch {
	class := floorMod(semitones, 12)
	return Pitch{Octave: (semitones - class) / 12, Class: PitchClass(class)}
}

func (p Pitch) Shift(semitones int) Pitch {
	return FromSemitones(p.Semitones() + semitones)
}

func (p Pitch) Frequency() float64 {
	const a3 = 440.0
	offset := (p.Octave-3)*12 + int(p.Class) - int(A)
	return a3 * math.Pow(2, float64(offset)/12)
}

// MIDIKey maps A3 to 69 so that frequencies agree with MIDI tuning.
func (p Pitch) MIDIKey() int {
	return p.Semitones() + 24
}

func (p Pitch) String() string {
	return p.Class.String() + strconv.Itoa(p.Octave)
}

// ParsePitch parses "C3", "F#4", "Bb2" or "A-1".
func ParsePitch(s string) (Pitch, error) {
	s = strings.TrimSpace(s)
	i := 1
	for i < len(s) && (s[i] == '#' || s[i] == 'b' || s[i] == '+') {
		i++
	}
	if i >= len(s) {
		return Pitch{}, fmt.Errorf("pitch %q has no octave", s)
	}
	class, err := ParsePitchClass(s[:i])
	if err != nil {
		return Pitch{}, err
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return Pitch{}, fmt.Errorf("invalid octave in %q: %w", s, err)
	}
	// Accidentals may cross the octave boundary ("Cb3" is B2).
	shift := 0
	for _, ch := range s[1:i] {
		if ch == 'b' {
			shift--
		} else {
			shift++
		}
	}
	natural := int(class) - shift
	return FromSemitones(octave*12 + floorMod(natural, 12) + shift), nil
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
