// Package effects renders the audio effect cards on stereo samples.
package effects

import (
	"fmt"

	"github.com/amenocturne/infinite-echoes/internal/graph"
)

// Effector processes stereo audio in-place.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

// ProcessBlock runs interleaved stereo samples through the chain.
func (c *Chain) ProcessBlock(buf []float32) {
	if len(c.effects) == 0 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = c.Process(buf[i], buf[i+1])
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// New builds the effector for one effect card.
func New(sampleRate int, spec graph.AudioEffectSpec) (Effector, error) {
	switch s := spec.(type) {
	case graph.Filter:
		return NewFilter(sampleRate, s.Type, float32(s.Frequency), float32(s.Q), float32(s.Gain)), nil
	case graph.Distortion:
		return NewDistortion(float32(s.Amount), s.Curve), nil
	case graph.Reverb:
		return NewReverb(sampleRate, float32(s.Decay), float32(s.Wet), float32(s.Dry)), nil
	default:
		return nil, fmt.Errorf("unsupported audio effect %T", spec)
	}
}

// ChainFor builds a chain for effect cards in wiring order.
func ChainFor(sampleRate int, specs []graph.AudioEffectSpec) (*Chain, error) {
	c := NewChain()
	for i, spec := range specs {
		e, err := New(sampleRate, spec)
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		c.Add(e)
	}
	return c, nil
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
