// Package graph holds the card chain model: node variants, the grammar that
// decides whether a chain is playable, and the flattening of its note cards
// into a single loop.
package graph

import (
	"github.com/amenocturne/infinite-echoes/internal/note"
	"github.com/amenocturne/infinite-echoes/internal/noteeffect"
)

// Graph is a playable chain. It is never modified after New.
type Graph struct {
	nodes []Node
	tone  ToneNode
}

// New validates nodes and returns a graph over a copy of them. An
// unplayable chain yields (nil, false).
func New(nodes []Node) (*Graph, bool) {
	for _, n := range nodes {
		if n == nil {
			return nil, false
		}
	}
	if !Playable(nodes) {
		return nil, false
	}
	g := &Graph{nodes: append([]Node(nil), nodes...)}
	for _, n := range nodes {
		if t, ok := n.(ToneNode); ok {
			g.tone = t
		}
	}
	return g, true
}

func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Tone() ToneNode { return g.tone }

// AudioEffects returns the effect cards in chain order.
func (g *Graph) AudioEffects() []AudioEffectSpec {
	var out []AudioEffectSpec
	for _, n := range g.nodes {
		if a, ok := n.(AudioEffectNode); ok && a.Effect != nil {
			out = append(out, a.Effect)
		}
	}
	return out
}

func (g *Graph) Flatten() note.Generator {
	return Flatten(g.nodes)
}

// Flatten folds generator and note effect cards into one loop. Generators
// gather into a block until a generator follows a note effect, or a tone or
// audio effect card is reached; each block is combined and then run through
// its effects in order. Blocks without generators contribute nothing.
func Flatten(nodes []Node) note.Generator {
	var (
		blocks    []note.Generator
		gens      []note.Generator
		effects   []noteeffect.Effect
		consuming bool
	)
	closeBlock := func() {
		if len(gens) > 0 {
			block := note.Combine(gens...)
			for _, e := range effects {
				block = e.Apply(block)
			}
			blocks = append(blocks, block)
		}
		gens, effects, consuming = nil, nil, false
	}

	for _, n := range nodes {
		switch n := n.(type) {
		case GeneratorNode:
			if consuming {
				closeBlock()
			}
			gens = append(gens, n.Generator)
		case EffectNode:
			if n.Effect != nil {
				effects = append(effects, n.Effect)
			}
			consuming = true
		case ToneNode, AudioEffectNode:
			closeBlock()
		}
	}
	closeBlock()
	return note.Combine(blocks...)
}
