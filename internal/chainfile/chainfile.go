// Package chainfile reads and writes card chains as YAML documents.
package chainfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/musictime"
	"github.com/amenocturne/infinite-echoes/internal/note"
	"github.com/amenocturne/infinite-echoes/internal/noteeffect"
	"github.com/amenocturne/infinite-echoes/internal/pattern"
)

type Document struct {
	Name  string `yaml:"name,omitempty"`
	Cards []Card `yaml:"cards"`
}

// Card holds exactly one of its fields.
type Card struct {
	Generator  *Generator  `yaml:"generator,omitempty"`
	Chord      *Chord      `yaml:"chord,omitempty"`
	ScaleChord *ScaleChord `yaml:"scale_chord,omitempty"`
	Snap       *Scale      `yaml:"snap,omitempty"`
	TimeScale  *TimeScale  `yaml:"time_scale,omitempty"`
	Tone       *Tone       `yaml:"tone,omitempty"`
	Filter     *Filter     `yaml:"filter,omitempty"`
	Distortion *Distortion `yaml:"distortion,omitempty"`
	Reverb     *Reverb     `yaml:"reverb,omitempty"`
}

// Generator is either a pattern string or an explicit note list.
type Generator struct {
	Pattern    string `yaml:"pattern,omitempty"`
	LoopLength uint32 `yaml:"loop_length,omitempty"`
	Notes      []Note `yaml:"notes,omitempty"`
}

type Note struct {
	Pitch    string `yaml:"pitch"`
	Start    uint32 `yaml:"start"`
	Duration uint32 `yaml:"duration"`
}

type Chord struct {
	Intervals []int `yaml:"intervals,omitempty"`
}

type Scale struct {
	Root string `yaml:"root"`
	Mode string `yaml:"mode"`
}

type ScaleChord struct {
	Scale   `yaml:",inline"`
	Degrees []int `yaml:"degrees,omitempty"`
}

type TimeScale struct {
	Num int `yaml:"num"`
	Den int `yaml:"den"`
}

type Tone struct {
	Wave string `yaml:"wave,omitempty"`
}

type Filter struct {
	Type      string   `yaml:"type,omitempty"`
	Frequency *float64 `yaml:"frequency,omitempty"`
	Q         *float64 `yaml:"q,omitempty"`
	Gain      *float64 `yaml:"gain,omitempty"`
}

type Distortion struct {
	Amount *float64 `yaml:"amount,omitempty"`
	Curve  string   `yaml:"curve,omitempty"`
}

type Reverb struct {
	Decay *float64 `yaml:"decay,omitempty"`
	Wet   *float64 `yaml:"wet,omitempty"`
	Dry   *float64 `yaml:"dry,omitempty"`
}

var ErrEmptyCard = errors.New("card has no kind")

func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("chainfile: decode: %w", err)
	}
	return &doc, nil
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chainfile: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("chainfile: encode: %w", err)
	}
	return enc.Close()
}

func Save(path string, doc *Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("chainfile: %w", err)
	}
	return nil
}

// Nodes builds the chain. Pattern strings go through p; a nil p uses the
// default pattern configuration.
func (d *Document) Nodes(p *pattern.Parser) ([]graph.Node, error) {
	if p == nil {
		p = pattern.NewParser(pattern.DefaultConfig())
	}
	nodes := make([]graph.Node, 0, len(d.Cards))
	for i, c := range d.Cards {
		n, err := c.node(p)
		if err != nil {
			return nil, fmt.Errorf("chainfile: card %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (c Card) node(p *pattern.Parser) (graph.Node, error) {
	set := 0
	for _, ok := range []bool{
		c.Generator != nil, c.Chord != nil, c.ScaleChord != nil, c.Snap != nil, c.TimeScale != nil,
		c.Tone != nil, c.Filter != nil, c.Distortion != nil, c.Reverb != nil,
	} {
		if ok {
			set++
		}
	}
	if set == 0 {
		return nil, ErrEmptyCard
	}
	if set > 1 {
		return nil, fmt.Errorf("card sets %d kinds, want one", set)
	}

	switch {
	case c.Generator != nil:
		g, err := c.Generator.build(p)
		if err != nil {
			return nil, err
		}
		return graph.GeneratorNode{Generator: g}, nil
	case c.Chord != nil:
		return graph.EffectNode{Effect: noteeffect.Chord{Intervals: c.Chord.Intervals}}, nil
	case c.ScaleChord != nil:
		s, err := c.ScaleChord.Scale.build()
		if err != nil {
			return nil, err
		}
		return graph.EffectNode{Effect: noteeffect.ScaleChord{Scale: s, Degrees: c.ScaleChord.Degrees}}, nil
	case c.Snap != nil:
		s, err := c.Snap.build()
		if err != nil {
			return nil, err
		}
		return graph.EffectNode{Effect: noteeffect.Snap{Scale: s}}, nil
	case c.TimeScale != nil:
		return graph.EffectNode{Effect: noteeffect.TimeScale{Num: c.TimeScale.Num, Den: c.TimeScale.Den}}, nil
	case c.Tone != nil:
		w := graph.Sine
		if c.Tone.Wave != "" {
			var err error
			if w, err = graph.ParseWaveShape(c.Tone.Wave); err != nil {
				return nil, err
			}
		}
		return graph.ToneNode{Wave: w}, nil
	case c.Filter != nil:
		return c.Filter.build()
	case c.Distortion != nil:
		d := graph.DefaultDistortion()
		if c.Distortion.Curve != "" {
			curve, err := graph.ParseDistortionCurve(c.Distortion.Curve)
			if err != nil {
				return nil, err
			}
			d.Curve = curve
		}
		override(&d.Amount, c.Distortion.Amount)
		return graph.AudioEffectNode{Effect: d}, nil
	default:
		r := graph.DefaultReverb()
		override(&r.Decay, c.Reverb.Decay)
		override(&r.Wet, c.Reverb.Wet)
		override(&r.Dry, c.Reverb.Dry)
		return graph.AudioEffectNode{Effect: r}, nil
	}
}

func (g *Generator) build(p *pattern.Parser) (note.Generator, error) {
	if g.Pattern != "" && len(g.Notes) > 0 {
		return note.Generator{}, errors.New("generator sets both pattern and notes")
	}
	if g.Pattern != "" {
		out, err := p.Parse(g.Pattern)
		if err != nil {
			return note.Generator{}, err
		}
		if g.LoopLength > 0 {
			out.LoopLength = musictime.Tick(g.LoopLength)
		}
		return out, nil
	}
	out := note.Generator{LoopLength: musictime.Tick(g.LoopLength)}
	for _, n := range g.Notes {
		pitch, err := note.ParsePitch(n.Pitch)
		if err != nil {
			return note.Generator{}, err
		}
		out.Notes = append(out.Notes, note.NewEvent(pitch, musictime.Tick(n.Start), musictime.Tick(n.Duration)))
	}
	return out, nil
}

func (s Scale) build() (noteeffect.Scale, error) {
	root, err := note.ParsePitchClass(s.Root)
	if err != nil {
		return noteeffect.Scale{}, err
	}
	mode := noteeffect.Major
	if s.Mode != "" {
		if mode, err = noteeffect.ParseMode(s.Mode); err != nil {
			return noteeffect.Scale{}, err
		}
	}
	return noteeffect.NewScale(root, mode), nil
}

func (f *Filter) build() (graph.Node, error) {
	kind := graph.LowPass
	if f.Type != "" {
		var err error
		if kind, err = graph.ParseFilterType(f.Type); err != nil {
			return nil, err
		}
	}
	spec := graph.DefaultFilter(kind)
	override(&spec.Frequency, f.Frequency)
	override(&spec.Q, f.Q)
	override(&spec.Gain, f.Gain)
	return graph.AudioEffectNode{Effect: spec}, nil
}

func override(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// FromNodes describes a chain. Generators are written as explicit notes.
func FromNodes(name string, nodes []graph.Node) (*Document, error) {
	doc := &Document{Name: name}
	for i, n := range nodes {
		c, err := cardFor(n)
		if err != nil {
			return nil, fmt.Errorf("chainfile: node %d: %w", i, err)
		}
		doc.Cards = append(doc.Cards, c)
	}
	return doc, nil
}

func cardFor(n graph.Node) (Card, error) {
	switch n := n.(type) {
	case graph.GeneratorNode:
		g := &Generator{LoopLength: uint32(n.Generator.LoopLength)}
		for _, e := range n.Generator.Notes {
			g.Notes = append(g.Notes, Note{Pitch: e.Pitch.String(), Start: uint32(e.Start), Duration: uint32(e.Duration)})
		}
		return Card{Generator: g}, nil
	case graph.EffectNode:
		switch e := n.Effect.(type) {
		case noteeffect.Chord:
			return Card{Chord: &Chord{Intervals: e.Intervals}}, nil
		case noteeffect.ScaleChord:
			return Card{ScaleChord: &ScaleChord{Scale: scaleOf(e.Scale), Degrees: e.Degrees}}, nil
		case noteeffect.Snap:
			s := scaleOf(e.Scale)
			return Card{Snap: &s}, nil
		case noteeffect.TimeScale:
			return Card{TimeScale: &TimeScale{Num: e.Num, Den: e.Den}}, nil
		}
		return Card{}, fmt.Errorf("unsupported note effect %T", n.Effect)
	case graph.ToneNode:
		return Card{Tone: &Tone{Wave: n.Wave.String()}}, nil
	case graph.AudioEffectNode:
		switch e := n.Effect.(type) {
		case graph.Filter:
			return Card{Filter: &Filter{Type: e.Type.String(), Frequency: ptr(e.Frequency), Q: ptr(e.Q), Gain: ptr(e.Gain)}}, nil
		case graph.Distortion:
			return Card{Distortion: &Distortion{Amount: ptr(e.Amount), Curve: e.Curve.String()}}, nil
		case graph.Reverb:
			return Card{Reverb: &Reverb{Decay: ptr(e.Decay), Wet: ptr(e.Wet), Dry: ptr(e.Dry)}}, nil
		}
		return Card{}, fmt.Errorf("unsupported audio effect %T", n.Effect)
	}
	return Card{}, fmt.Errorf("unsupported node %T", n)
}

func scaleOf(s noteeffect.Scale) Scale {
	return Scale{Root: s.Root.String(), Mode: s.Mode.String()}
}

func ptr(v float64) *float64 { return &v }
