package effects

import "math"

// Reverb is a Schroeder reverb: four parallel combs into two allpasses.
// Decay is the time in seconds for the tail to fall by 60 dB.
type Reverb struct {
	combs   [4]combFilter
	allpass [2]allpassFilter
	wet     float32
	dry     float32
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// Comb lengths in milliseconds, mutually prime-ish to avoid resonances.
var (
	combMillis    = [4]float64{29.7, 37.1, 41.1, 43.7}
	allpassMillis = [2]float64{5.0, 1.7}
)

func NewReverb(sampleRate int, decay, wet, dry float32) *Reverb {
	if decay <= 0 {
		decay = 0.01
	}
	r := &Reverb{wet: clamp(wet, 0, 1), dry: clamp(dry, 0, 1)}
	for i := range r.combs {
		n := maxInt(int(combMillis[i]*float64(sampleRate)/1000), 1)
		// Per-pass gain that reaches -60 dB after decay seconds.
		fb := math.Pow(10, -3*float64(n)/(float64(decay)*float64(sampleRate)))
		r.combs[i] = combFilter{buf: make([]float32, n), fb: clamp(float32(fb), 0, 0.98)}
	}
	for i := range r.allpass {
		n := maxInt(int(allpassMillis[i]*float64(sampleRate)/1000), 1)
		r.allpass[i] = allpassFilter{buf: make([]float32, n), fb: 0.5}
	}
	return r
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return l*r.dry + out*r.wet, r2*r.dry + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
