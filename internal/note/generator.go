package note

import "github.com/amenocturne/infinite-echoes/internal/musictime"

// Event is one note inside a generator loop.
type Event struct {
	Pitch    Pitch
	Start    musictime.Tick
	Duration musictime.Tick
}

func NewEvent(p Pitch, start, duration musictime.Tick) Event {
	return Event{Pitch: p, Start: start, Duration: duration}
}

func (e Event) Shifted(delta musictime.Tick) Event {
	e.Start += delta
	return e
}

func (e Event) End() musictime.Tick {
	return e.Start + e.Duration
}

// Generator is one repeating bar of material. Notes are expected to start
// before LoopLength; the type does not enforce it.
type Generator struct {
	LoopLength musictime.Tick
	Notes      []Event
}

func NewGenerator(loopLength musictime.Tick, notes ...Event) Generator {
	return Generator{LoopLength: loopLength, Notes: notes}
}

func (g Generator) Clone() Generator {
	out := Generator{LoopLength: g.LoopLength}
	if len(g.Notes) > 0 {
		out.Notes = make([]Event, len(g.Notes))
		copy(out.Notes, g.Notes)
	}
	return out
}

// Combine concatenates generators in order: loop lengths add up and every
// generator's notes are shifted by the total length of those before it.
func Combine(gens ...Generator) Generator {
	total := 0
	for _, g := range gens {
		total += len(g.Notes)
	}
	out := Generator{}
	if total > 0 {
		out.Notes = make([]Event, 0, total)
	}
	for _, g := range gens {
		for _, n := range g.Notes {
			out.Notes = append(out.Notes, n.Shifted(out.LoopLength))
		}
		out.LoopLength += g.LoopLength
	}
	return out
}

// Repeat concatenates n copies of g. n < 1 yields an empty generator.
func (g Generator) Repeat(n int) Generator {
	if n < 1 {
		return Generator{}
	}
	gens := make([]Generator, n)
	for i := range gens {
		gens[i] = g
	}
	return Combine(gens...)
}

// Span is the tick at which the last note ends, which can exceed LoopLength.
func (g Generator) Span() musictime.Tick {
	var end musictime.Tick
	for _, n := range g.Notes {
		if e := n.End(); e > end {
			end = e
		}
	}
	return end
}
