package noteeffect

import (
	"fmt"
	"strings"

	"github.com/amenocturne/infinite-echoes/internal/note"
)

type Mode int

const (
	Major Mode = iota
	Minor
	Dorian
	Phrygian
	Lydian
	Mixolydian
	Locrian
	HarmonicMinor
	MelodicMinor
	Pentatonic
	Blues
	WholeTone
	Chromatic
)

// Intervals from the root, within one octave.
var modeIntervals = map[Mode][]int{
	Major:         {0, 2, 4, 5, 7, 9, 11},
	Minor:         {0, 2, 3, 5, 7, 8, 10},
	Dorian:        {0, 2, 3, 5, 7, 9, 10},
	Phrygian:      {0, 1, 3, 5, 7, 8, 10},
	Lydian:        {0, 2, 4, 6, 7, 9, 11},
	Mixolydian:    {0, 2, 4, 5, 7, 9, 10},
	Locrian:       {0, 1, 3, 5, 6, 8, 10},
	HarmonicMinor: {0, 2, 3, 5, 7, 8, 11},
	MelodicMinor:  {0, 2, 3, 5, 7, 9, 11},
	Pentatonic:    {0, 2, 4, 7, 9},
	Blues:         {0, 3, 5, 6, 7, 10},
	WholeTone:     {0, 2, 4, 6, 8, 10},
	Chromatic:     {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

var modeNames = map[Mode]string{
	Major:         "major",
	Minor:         "minor",
	Dorian:        "dorian",
	Phrygian:      "phrygian",
	Lydian:        "lydian",
	Mixolydian:    "mixolydian",
	Locrian:       "locrian",
	HarmonicMinor: "harmonic-minor",
	MelodicMinor:  "melodic-minor",
	Pentatonic:    "pentatonic",
	Blues:         "blues",
	WholeTone:     "whole-tone",
	Chromatic:     "chromatic",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(name string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "-")
	key = strings.ReplaceAll(key, " ", "-")
	for m, n := range modeNames {
		if n == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown scale mode %q", name)
}

type Scale struct {
	Root note.PitchClass
	Mode Mode
}

func NewScale(root note.PitchClass, mode Mode) Scale {
	return Scale{Root: root, Mode: mode}
}

func (s Scale) String() string {
	return s.Root.String() + " " + s.Mode.String()
}

func (s Scale) intervals() []int {
	if iv, ok := modeIntervals[s.Mode]; ok {
		return iv
	}
	return modeIntervals[Chromatic]
}

// degree returns the scale index and octave of an in-scale pitch.
func (s Scale) degree(p note.Pitch) (int, int, bool) {
	rel := p.Semitones() - int(s.Root)
	octave := floorDiv(rel, 12)
	pc := rel - octave*12
	for i, iv := range s.intervals() {
		if iv == pc {
			return i, octave, true
		}
	}
	return 0, 0, false
}

func (s Scale) Contains(p note.Pitch) bool {
	_, _, ok := s.degree(p)
	return ok
}

// Nearest snaps p to the closest scale tone. Equidistant candidates resolve
// downward.
func (s Scale) Nearest(p note.Pitch) note.Pitch {
	for d := 0; d <= 6; d++ {
		if down := p.Shift(-d); s.Contains(down) {
			return down
		}
		if up := p.Shift(d); s.Contains(up) {
			return up
		}
	}
	return p
}

// Step moves p by a number of scale degrees, snapping it first.
func (s Scale) Step(p note.Pitch, degrees int) note.Pitch {
	idx, octave, ok := s.degree(s.Nearest(p))
	if !ok {
		return p
	}
	iv := s.intervals()
	target := idx + degrees
	octave += floorDiv(target, len(iv))
	target -= floorDiv(target, len(iv)) * len(iv)
	return note.FromSemitones(int(s.Root) + octave*12 + iv[target])
}

func floorDiv(a, n int) int {
	q := a / n
	if (a%n != 0) && ((a < 0) != (n < 0)) {
		q--
	}
	return q
}
