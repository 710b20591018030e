package synth

import (
	"math"

	"github.com/amenocturne/infinite-echoes/internal/graph"
)

const twoPi = math.Pi * 2

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// oscillate advances phase by dt and returns the next sample of the shape.
func oscillate(shape graph.WaveShape, phase *float64, dt float64) float64 {
	*phase += dt
	if *phase >= 1 {
		*phase -= math.Floor(*phase)
	}
	p := *phase
	switch shape {
	case graph.Square:
		out := -1.0
		if p < 0.5 {
			out = 1
		}
		out += polyBLEP(p, dt)
		out -= polyBLEP(math.Mod(p+0.5, 1), dt)
		return out
	case graph.Triangle:
		return 2*math.Abs(2*p-1) - 1
	case graph.Sawtooth:
		return 2*p - 1 - polyBLEP(p, dt)
	default:
		return math.Sin(twoPi * p)
	}
}

// envelope is 0 at start, ramps linearly to gain over attack, holds, and
// ramps back to 0 over the release that ends at end.
func envelope(t, start, end, attack, release int64, gain float64) float64 {
	if t < start || t >= end {
		return 0
	}
	v := gain
	if since := t - start; attack > 0 && since < attack {
		v = gain * float64(since) / float64(attack)
	}
	if left := end - t; release > 0 && left < release {
		v = math.Min(v, gain*float64(left)/float64(release))
	}
	return v
}
