// Package compiler turns a playable graph into a batch of wall-clock play
// commands covering the schedule-ahead window, plus the effect wiring.
package compiler

import (
	"math"
	"time"

	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/note"
)

type Envelope struct {
	Attack  float64
	Release float64
	Gain    float64
}

// PlayCommand asks the backend to sound one voice. Start is on the
// backend's clock.
type PlayCommand struct {
	Voice     VoiceID
	Pitch     note.Pitch
	Frequency float64
	Start     time.Duration
	Duration  time.Duration
	Envelope  Envelope
}

func (p PlayCommand) End() time.Duration { return p.Start + p.Duration }

type EndpointKind int

const (
	ToneOutput EndpointKind = iota
	EffectInput
	EffectOutput
	Master
)

type Endpoint struct {
	Kind  EndpointKind
	Index int
}

type Connection struct {
	From Endpoint
	To   Endpoint
}

// Wiring routes the tone through the effects in chain order and on to the
// master output.
type Wiring struct {
	Effects     []graph.AudioEffectSpec
	Connections []Connection
}

// Batch is one atomic unit for the backend. End is where the next batch
// must start for playback to continue without a gap.
type Batch struct {
	Wave   graph.WaveShape
	Wiring Wiring
	Play   []PlayCommand
	Start  time.Duration
	End    time.Duration
}

func (b Batch) Empty() bool { return len(b.Play) == 0 }

// Plan wires the effects strictly in sequence.
func Plan(effects []graph.AudioEffectSpec) Wiring {
	w := Wiring{Effects: append([]graph.AudioEffectSpec(nil), effects...)}
	if len(effects) == 0 {
		w.Connections = []Connection{{From: Endpoint{Kind: ToneOutput}, To: Endpoint{Kind: Master}}}
		return w
	}
	w.Connections = append(w.Connections, Connection{
		From: Endpoint{Kind: ToneOutput},
		To:   Endpoint{Kind: EffectInput, Index: 0},
	})
	for i := 0; i+1 < len(effects); i++ {
		w.Connections = append(w.Connections, Connection{
			From: Endpoint{Kind: EffectOutput, Index: i},
			To:   Endpoint{Kind: EffectInput, Index: i + 1},
		})
	}
	w.Connections = append(w.Connections, Connection{
		From: Endpoint{Kind: EffectOutput, Index: len(effects) - 1},
		To:   Endpoint{Kind: Master},
	})
	return w
}

// Repeats is ceil(window / loop), at least one. A loop of zero seconds
// yields zero.
func Repeats(loopSeconds, windowSeconds float64) int {
	if loopSeconds <= 0 || math.IsNaN(loopSeconds) {
		return 0
	}
	if windowSeconds <= 0 || math.IsNaN(windowSeconds) {
		return 1
	}
	r := int(math.Ceil(windowSeconds / loopSeconds))
	if r < 1 {
		r = 1
	}
	return r
}

// Compile is pure: the same graph, config and now always give the same
// batch. Voice handles are left zero; Compiler.Compile assigns them.
func Compile(g *graph.Graph, cfg Config, now time.Duration) Batch {
	empty := Batch{Start: now, End: now}
	if g == nil {
		return empty
	}
	tb := cfg.TimeBase()
	flat := g.Flatten()
	loopSeconds := tb.Seconds(flat.LoopLength)
	r := Repeats(loopSeconds, cfg.MaxScheduleAhead)
	if r == 0 {
		return empty
	}

	b := Batch{
		Wave:   g.Tone().Wave,
		Wiring: Plan(g.AudioEffects()),
		Start:  now,
		End:    now + tb.Duration(flat.LoopLength)*time.Duration(r),
	}
	env := Envelope{Attack: cfg.Attack, Release: cfg.Release, Gain: cfg.OutputGain}
	window := flat.Repeat(r)
	if len(window.Notes) > 0 {
		b.Play = make([]PlayCommand, 0, len(window.Notes))
	}
	for _, n := range window.Notes {
		b.Play = append(b.Play, PlayCommand{
			Pitch:     n.Pitch,
			Frequency: n.Pitch.Frequency(),
			Start:     now + tb.Duration(n.Start),
			Duration:  tb.Duration(n.Duration),
			Envelope:  env,
		})
	}
	return b
}
