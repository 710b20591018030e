package compiler

import (
	"fmt"
	"time"

	"github.com/amenocturne/infinite-echoes/internal/graph"
)

// VoiceID is a handle into a Compiler's voice arena. A handle goes stale
// once its voice is released; the slot may then be reused under a new
// generation.
type VoiceID struct {
	index uint32
	gen   uint32
}

func (v VoiceID) Valid() bool { return v.gen != 0 }

func (v VoiceID) String() string {
	if !v.Valid() {
		return "voice(none)"
	}
	return fmt.Sprintf("voice(%d.%d)", v.index, v.gen)
}

// Voice is one scheduled note instance owned by the arena.
type Voice struct {
	ID        VoiceID
	Frequency float64
	Start     time.Duration
	End       time.Duration
}

type slot struct {
	gen   uint32
	live  bool
	voice Voice
}

// Compiler wraps Compile with a flat arena of active voices. It is not safe
// for concurrent use.
type Compiler struct {
	cfg    Config
	slots  []slot
	free   []uint32
	active int
}

func New(cfg Config) *Compiler {
	return &Compiler{cfg: cfg}
}

func (c *Compiler) Config() Config { return c.cfg }

// Compile compiles g and registers one voice per play command.
func (c *Compiler) Compile(g *graph.Graph, now time.Duration) Batch {
	b := Compile(g, c.cfg, now)
	for i := range b.Play {
		p := &b.Play[i]
		p.Voice = c.alloc(Voice{Frequency: p.Frequency, Start: p.Start, End: p.End()})
	}
	return b
}

func (c *Compiler) alloc(v Voice) VoiceID {
	var idx uint32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		idx = uint32(len(c.slots))
		c.slots = append(c.slots, slot{})
	}
	s := &c.slots[idx]
	s.gen++
	s.live = true
	v.ID = VoiceID{index: idx, gen: s.gen}
	s.voice = v
	c.active++
	return v.ID
}

func (c *Compiler) lookup(id VoiceID) (*slot, bool) {
	if !id.Valid() || int(id.index) >= len(c.slots) {
		return nil, false
	}
	s := &c.slots[id.index]
	if !s.live || s.gen != id.gen {
		return nil, false
	}
	return s, true
}

func (c *Compiler) Voice(id VoiceID) (Voice, bool) {
	s, ok := c.lookup(id)
	if !ok {
		return Voice{}, false
	}
	return s.voice, true
}

// Release frees the voice's slot. Stale handles report false.
func (c *Compiler) Release(id VoiceID) bool {
	s, ok := c.lookup(id)
	if !ok {
		return false
	}
	s.live = false
	s.voice = Voice{}
	c.free = append(c.free, id.index)
	c.active--
	return true
}

// Sweep releases every voice that has finished by now and returns how many
// were released.
func (c *Compiler) Sweep(now time.Duration) int {
	n := 0
	for i := len(c.slots) - 1; i >= 0; i-- {
		s := &c.slots[i]
		if s.live && s.voice.End <= now {
			c.Release(s.voice.ID)
			n++
		}
	}
	return n
}

// Reset releases all voices. Outstanding handles go stale.
func (c *Compiler) Reset() {
	c.free = c.free[:0]
	for i := len(c.slots) - 1; i >= 0; i-- {
		s := &c.slots[i]
		if s.live {
			s.live = false
			s.voice = Voice{}
		}
		c.free = append(c.free, uint32(i))
	}
	c.active = 0
}

func (c *Compiler) Active() int { return c.active }

// Voices returns the live voices in slot order.
func (c *Compiler) Voices() []Voice {
	out := make([]Voice, 0, c.active)
	for _, s := range c.slots {
		if s.live {
			out = append(out, s.voice)
		}
	}
	return out
}
