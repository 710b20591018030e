package tui

import (
	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/note"
	"github.com/amenocturne/infinite-echoes/internal/noteeffect"
	"github.com/amenocturne/infinite-echoes/internal/pattern"
)

// Card is one palette entry the user can drop into the chain.
type Card struct {
	Label string
	Node  graph.Node
}

var palettePatterns = []struct {
	label string
	src   string
}{
	{"arp", "l8 o3 a > c e < g"},
	{"bass", "l4 o2 a r e r"},
	{"bell", "l2 o4 e r"},
}

// DefaultPalette builds the stock cards, parsing the generator patterns
// with p.
func DefaultPalette(p *pattern.Parser) ([]Card, error) {
	var cards []Card
	for _, pp := range palettePatterns {
		g, err := p.Parse(pp.src)
		if err != nil {
			return nil, err
		}
		cards = append(cards, Card{Label: pp.label, Node: graph.GeneratorNode{Generator: g}})
	}
	am := noteeffect.NewScale(note.A, noteeffect.Minor)
	cards = append(cards,
		Card{Label: "chord", Node: graph.EffectNode{Effect: noteeffect.Chord{Intervals: noteeffect.DefaultChord}}},
		Card{Label: "triad", Node: graph.EffectNode{Effect: noteeffect.ScaleChord{Scale: am, Degrees: noteeffect.DefaultScaleDegrees}}},
		Card{Label: "snap", Node: graph.EffectNode{Effect: noteeffect.Snap{Scale: noteeffect.NewScale(note.A, noteeffect.Pentatonic)}}},
		Card{Label: "x2", Node: graph.EffectNode{Effect: noteeffect.DoubleLength()}},
		Card{Label: "/2", Node: graph.EffectNode{Effect: noteeffect.HalfLength()}},
		Card{Label: "sine", Node: graph.ToneNode{Wave: graph.Sine}},
		Card{Label: "square", Node: graph.ToneNode{Wave: graph.Square}},
		Card{Label: "saw", Node: graph.ToneNode{Wave: graph.Sawtooth}},
		Card{Label: "lowpass", Node: graph.AudioEffectNode{Effect: graph.DefaultFilter(graph.LowPass)}},
		Card{Label: "drive", Node: graph.AudioEffectNode{Effect: graph.DefaultDistortion()}},
		Card{Label: "reverb", Node: graph.AudioEffectNode{Effect: graph.DefaultReverb()}},
	)
	return cards, nil
}
