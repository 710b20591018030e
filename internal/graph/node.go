package graph

import (
	"fmt"
	"strings"

	"github.com/amenocturne/infinite-echoes/internal/note"
	"github.com/amenocturne/infinite-echoes/internal/noteeffect"
)

type Category int

const (
	// None marks a missing neighbor at either end of a chain.
	None Category = iota
	Generator
	NoteEffect
	Tone
	AudioEffect
)

func (c Category) String() string {
	switch c {
	case Generator:
		return "generator"
	case NoteEffect:
		return "note-effect"
	case Tone:
		return "tone"
	case AudioEffect:
		return "audio-effect"
	default:
		return "none"
	}
}

func (c Category) letter() byte {
	switch c {
	case Generator:
		return 'G'
	case NoteEffect:
		return 'N'
	case Tone:
		return 'T'
	case AudioEffect:
		return 'A'
	default:
		return '.'
	}
}

// Node is one card of a chain. The variants are GeneratorNode, EffectNode,
// ToneNode and AudioEffectNode.
type Node interface {
	Category() Category
	isNode()
}

type GeneratorNode struct {
	Generator note.Generator
}

type EffectNode struct {
	Effect noteeffect.Effect
}

type ToneNode struct {
	Wave WaveShape
}

type AudioEffectNode struct {
	Effect AudioEffectSpec
}

func (GeneratorNode) Category() Category   { return Generator }
func (EffectNode) Category() Category      { return NoteEffect }
func (ToneNode) Category() Category        { return Tone }
func (AudioEffectNode) Category() Category { return AudioEffect }

func (GeneratorNode) isNode()   {}
func (EffectNode) isNode()      {}
func (ToneNode) isNode()        {}
func (AudioEffectNode) isNode() {}

type WaveShape int

const (
	Sine WaveShape = iota
	Square
	Triangle
	Sawtooth
)

var waveNames = []string{"sine", "square", "triangle", "sawtooth"}

func (w WaveShape) String() string {
	if int(w) >= 0 && int(w) < len(waveNames) {
		return waveNames[w]
	}
	return fmt.Sprintf("wave(%d)", int(w))
}

func ParseWaveShape(s string) (WaveShape, error) {
	i, err := lookup(waveNames, s)
	if err != nil {
		return 0, fmt.Errorf("wave shape: %w", err)
	}
	return WaveShape(i), nil
}

// AudioEffectSpec variants: Filter, Distortion and Reverb. They are
// parameter bags; rendering happens in the backend.
type AudioEffectSpec interface {
	Kind() string
	isAudioEffect()
}

type FilterType int

const (
	LowPass FilterType = iota
	HighPass
	BandPass
	LowShelf
	HighShelf
)

var filterNames = []string{"lowpass", "highpass", "bandpass", "lowshelf", "highshelf"}

func (f FilterType) String() string {
	if int(f) >= 0 && int(f) < len(filterNames) {
		return filterNames[f]
	}
	return fmt.Sprintf("filter(%d)", int(f))
}

func ParseFilterType(s string) (FilterType, error) {
	i, err := lookup(filterNames, s)
	if err != nil {
		return 0, fmt.Errorf("filter type: %w", err)
	}
	return FilterType(i), nil
}

type DistortionCurve int

const (
	SoftClip DistortionCurve = iota
	HardClip
)

var curveNames = []string{"soft", "hard"}

func (c DistortionCurve) String() string {
	if int(c) >= 0 && int(c) < len(curveNames) {
		return curveNames[c]
	}
	return fmt.Sprintf("curve(%d)", int(c))
}

func ParseDistortionCurve(s string) (DistortionCurve, error) {
	i, err := lookup(curveNames, s)
	if err != nil {
		return 0, fmt.Errorf("distortion curve: %w", err)
	}
	return DistortionCurve(i), nil
}

type Filter struct {
	Type      FilterType
	Frequency float64
	Q         float64
	Gain      float64
}

type Distortion struct {
	Amount float64
	Curve  DistortionCurve
}

type Reverb struct {
	Decay float64
	Wet   float64
	Dry   float64
}

func (Filter) Kind() string     { return "filter" }
func (Distortion) Kind() string { return "distortion" }
func (Reverb) Kind() string     { return "reverb" }

func (Filter) isAudioEffect()     {}
func (Distortion) isAudioEffect() {}
func (Reverb) isAudioEffect()     {}

func DefaultFilter(t FilterType) Filter {
	return Filter{Type: t, Frequency: 1000, Q: 1, Gain: 0}
}

func DefaultDistortion() Distortion {
	return Distortion{Amount: 0.03, Curve: SoftClip}
}

func DefaultReverb() Reverb {
	return Reverb{Decay: 1, Wet: 1, Dry: 1}
}

func lookup(names []string, s string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == key {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", s)
}
