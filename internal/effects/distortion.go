package effects

import (
	"math"

	"github.com/amenocturne/infinite-echoes/internal/graph"
)

// Distortion is a waveshaper. Amount drives the input and the curve; the
// output is scaled back so louder settings do not simply get louder.
type Distortion struct {
	curve    graph.DistortionCurve
	amount   float32
	preGain  float32
	postGain float32
}

func NewDistortion(amount float32, curve graph.DistortionCurve) *Distortion {
	if amount < 0 {
		amount = 0
	}
	d := &Distortion{curve: curve, amount: amount, preGain: 1 + amount*10}
	switch curve {
	case graph.HardClip:
		d.postGain = 0.3 / (1 + amount)
	default:
		d.postGain = 1 / (1 + amount*0.5)
	}
	return d
}

func (d *Distortion) shape(x float32) float32 {
	x *= d.preGain
	switch d.curve {
	case graph.HardClip:
		k := float64(d.amount) * 100
		v := (1 + k) * float64(x) / (1 + k*math.Abs(float64(x)))
		return clamp(float32(v), -1, 1)
	default:
		return float32(math.Tanh(float64(x))) * (1 + d.amount*0.5)
	}
}

func (d *Distortion) Process(l, r float32) (float32, float32) {
	return d.shape(l) * d.postGain, d.shape(r) * d.postGain
}

func (d *Distortion) Reset() {}
