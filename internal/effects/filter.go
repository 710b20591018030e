package effects

import (
	"math"

	"github.com/amenocturne/infinite-echoes/internal/graph"
)

type onePole struct {
	alpha float32
	l, r  float32
}

func newOnePole(sampleRate int, cutoff float32) onePole {
	nyquist := float32(sampleRate) / 2
	cutoff = clamp(cutoff, 1, nyquist*0.99)
	rc := 1.0 / (2.0 * math.Pi * float64(cutoff))
	dt := 1.0 / float64(sampleRate)
	return onePole{alpha: float32(dt / (rc + dt))}
}

func (p *onePole) lowpass(l, r float32) (float32, float32) {
	p.l += p.alpha * (l - p.l)
	p.r += p.alpha * (r - p.r)
	return p.l, p.r
}

func (p *onePole) reset() { p.l, p.r = 0, 0 }

// Filter is a one-pole filter. Shelves boost or cut by Gain decibels; Q
// sets the width of the band pass.
type Filter struct {
	kind graph.FilterType
	gain float32
	lo   onePole
	hi   onePole
}

func NewFilter(sampleRate int, kind graph.FilterType, frequency, q, gainDB float32) *Filter {
	if q <= 0 {
		q = 1
	}
	f := &Filter{
		kind: kind,
		gain: float32(math.Pow(10, float64(gainDB)/20)),
	}
	switch kind {
	case graph.BandPass:
		spread := 1 + 1/(2*q)
		f.lo = newOnePole(sampleRate, frequency/spread)
		f.hi = newOnePole(sampleRate, frequency*spread)
	default:
		f.lo = newOnePole(sampleRate, frequency)
	}
	return f
}

func (f *Filter) Process(l, r float32) (float32, float32) {
	lowL, lowR := f.lo.lowpass(l, r)
	switch f.kind {
	case graph.LowPass:
		return lowL, lowR
	case graph.HighPass:
		return l - lowL, r - lowR
	case graph.BandPass:
		// Remove what sits under the lower corner, then smooth above the upper.
		return f.hi.lowpass(l-lowL, r-lowR)
	case graph.LowShelf:
		return lowL*f.gain + (l - lowL), lowR*f.gain + (r - lowR)
	case graph.HighShelf:
		return lowL + (l-lowL)*f.gain, lowR + (r-lowR)*f.gain
	}
	return l, r
}

func (f *Filter) Reset() {
	f.lo.reset()
	f.hi.reset()
}
