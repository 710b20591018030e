package noteeffect

import (
	"fmt"
	"math"

	"github.com/amenocturne/infinite-echoes/internal/musictime"
	"github.com/amenocturne/infinite-echoes/internal/note"
)

// Effect is a pure transformation of a generator. The set of effects is
// closed; only this package can add variants.
type Effect interface {
	Apply(g note.Generator) note.Generator
	String() string
	isEffect()
}

var (
	DefaultChord        = []int{0, 4, 7}
	DefaultScaleDegrees = []int{0, 2, 4}
)

// Chord stacks semitone intervals on top of every note.
type Chord struct {
	Intervals []int
}

// ScaleChord snaps every note to the scale and stacks scale degrees on it.
type ScaleChord struct {
	Scale   Scale
	Degrees []int
}

// Snap moves every note to the nearest tone of the scale.
type Snap struct {
	Scale Scale
}

// TimeScale multiplies starts, durations and loop length by Num/Den.
type TimeScale struct {
	Num int
	Den int
}

func DoubleLength() TimeScale { return TimeScale{Num: 2, Den: 1} }
func HalfLength() TimeScale   { return TimeScale{Num: 1, Den: 2} }

func (Chord) isEffect()      {}
func (ScaleChord) isEffect() {}
func (Snap) isEffect()       {}
func (TimeScale) isEffect()  {}

func (c Chord) Apply(g note.Generator) note.Generator {
	intervals := c.Intervals
	if len(intervals) == 0 {
		intervals = DefaultChord
	}
	return expand(g, func(p note.Pitch) []note.Pitch {
		out := make([]note.Pitch, len(intervals))
		for i, iv := range intervals {
			out[i] = p.Shift(iv)
		}
		return out
	})
}

func (c ScaleChord) Apply(g note.Generator) note.Generator {
	degrees := c.Degrees
	if len(degrees) == 0 {
		degrees = DefaultScaleDegrees
	}
	return expand(g, func(p note.Pitch) []note.Pitch {
		root := c.Scale.Nearest(p)
		out := make([]note.Pitch, len(degrees))
		for i, d := range degrees {
			out[i] = c.Scale.Step(root, d)
		}
		return out
	})
}

func (s Snap) Apply(g note.Generator) note.Generator {
	out := g.Clone()
	for i := range out.Notes {
		out.Notes[i].Pitch = s.Scale.Nearest(out.Notes[i].Pitch)
	}
	return out
}

func (t TimeScale) Apply(g note.Generator) note.Generator {
	if t.Num <= 0 || t.Den <= 0 {
		return g.Clone()
	}
	out := g.Clone()
	out.LoopLength = t.scale(g.LoopLength)
	for i := range out.Notes {
		out.Notes[i].Start = t.scale(out.Notes[i].Start)
		out.Notes[i].Duration = t.scale(out.Notes[i].Duration)
	}
	return out
}

// scale saturates at the largest tick instead of wrapping.
func (t TimeScale) scale(v musictime.Tick) musictime.Tick {
	n := uint64(v) * uint64(t.Num) / uint64(t.Den)
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return musictime.Tick(n)
}

func expand(g note.Generator, voicing func(note.Pitch) []note.Pitch) note.Generator {
	out := note.Generator{LoopLength: g.LoopLength}
	for _, n := range g.Notes {
		for _, p := range voicing(n.Pitch) {
			out.Notes = append(out.Notes, note.NewEvent(p, n.Start, n.Duration))
		}
	}
	return out
}

func (c Chord) String() string {
	if len(c.Intervals) == 0 {
		return fmt.Sprintf("chord %v", DefaultChord)
	}
	return fmt.Sprintf("chord %v", c.Intervals)
}

func (c ScaleChord) String() string {
	return fmt.Sprintf("scale chord %s", c.Scale)
}

func (s Snap) String() string { return fmt.Sprintf("snap %s", s.Scale) }

func (t TimeScale) String() string { return fmt.Sprintf("time x%d/%d", t.Num, t.Den) }
