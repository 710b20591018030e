// Package synth is the software backend: it turns compiled batches into
// sample-accurate voices and mixes them through the effect chain.
package synth

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/amenocturne/infinite-echoes/internal/compiler"
	"github.com/amenocturne/infinite-echoes/internal/effects"
	"github.com/amenocturne/infinite-echoes/internal/graph"
)

var (
	ErrVoiceLimit     = errors.New("synth: voice limit reached")
	ErrInvalidCommand = errors.New("synth: invalid play command")
)

type Params struct {
	MaxVoices int
	Volume    float64
}

func DefaultParams() Params {
	return Params{MaxVoices: 256, Volume: 1}
}

type voice struct {
	id      compiler.VoiceID
	wave    graph.WaveShape
	dt      float64
	phase   float64
	start   int64
	end     int64
	attack  int64
	release int64
	gain    float64
}

// Renderer keeps its own sample clock; Now reports how much audio has been
// rendered. It is safe to use from the audio thread and the frame loop.
type Renderer struct {
	mu         sync.Mutex
	sampleRate int
	params     Params
	frames     int64
	voices     []voice
	specs      []graph.AudioEffectSpec
	chain      *effects.Chain
	volume     float32
	mono       []float32
	scratch    []float32
	peak       float32
}

func New(sampleRate int, params Params) *Renderer {
	if params.MaxVoices <= 0 {
		params.MaxVoices = DefaultParams().MaxVoices
	}
	r := &Renderer{
		sampleRate: sampleRate,
		params:     params,
		chain:      effects.NewChain(),
	}
	r.SetVolume(params.Volume)
	return r
}

func (r *Renderer) SampleRate() int { return r.sampleRate }

func (r *Renderer) Now() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameTime(r.frames)
}

func (r *Renderer) frameTime(frame int64) time.Duration {
	return time.Duration(frame) * time.Second / time.Duration(r.sampleRate)
}

func (r *Renderer) frameAt(d time.Duration) int64 {
	return int64(math.Round(d.Seconds() * float64(r.sampleRate)))
}

// Execute installs the batch's wiring and queues its voices. Commands past
// the voice limit are dropped and reported.
func (r *Renderer) Execute(b compiler.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !reflect.DeepEqual(r.specs, b.Wiring.Effects) {
		chain, err := effects.ChainFor(r.sampleRate, b.Wiring.Effects)
		if err != nil {
			return fmt.Errorf("synth: build effect chain: %w", err)
		}
		r.chain = chain
		r.specs = append([]graph.AudioEffectSpec(nil), b.Wiring.Effects...)
	}

	dropped := 0
	for _, p := range b.Play {
		if p.Frequency <= 0 || math.IsNaN(p.Frequency) || math.IsInf(p.Frequency, 0) || p.Duration <= 0 {
			return fmt.Errorf("%w: %v at %v", ErrInvalidCommand, p.Frequency, p.Start)
		}
		if len(r.voices) >= r.params.MaxVoices {
			dropped++
			continue
		}
		start := r.frameAt(p.Start)
		r.voices = append(r.voices, voice{
			id:      p.Voice,
			wave:    b.Wave,
			dt:      p.Frequency / float64(r.sampleRate),
			start:   start,
			end:     start + r.frameAt(p.Duration),
			attack:  r.frameAt(time.Duration(p.Envelope.Attack * float64(time.Second))),
			release: r.frameAt(time.Duration(p.Envelope.Release * float64(time.Second))),
			gain:    p.Envelope.Gain,
		})
	}
	if dropped > 0 {
		return fmt.Errorf("%w: dropped %d of %d commands", ErrVoiceLimit, dropped, len(b.Play))
	}
	return nil
}

// StopAll silences every queued and sounding voice.
func (r *Renderer) StopAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voices = r.voices[:0]
	r.chain.Reset()
	return nil
}

// SetVolume sets the master volume. The square root gives a perceptual
// curve.
func (r *Renderer) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	r.mu.Lock()
	r.volume = float32(math.Sqrt(v))
	r.mu.Unlock()
}

func (r *Renderer) Volume() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.volume)
}

func (r *Renderer) ActiveVoices() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.voices)
}

// Peak is the largest absolute sample of the last rendered block.
func (r *Renderer) Peak() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

// Process renders interleaved stereo float32 frames into dst.
func (r *Renderer) Process(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst) / 2
	if n == 0 {
		return
	}
	r.mono = vek32.Zeros_Into(grow(r.mono, n), n)
	r.scratch = grow(r.scratch, n)
	from, to := r.frames, r.frames+int64(n)

	live := r.voices[:0]
	for _, v := range r.voices {
		if v.start < to && v.end > from {
			r.render(&v, from, r.scratch)
			vek32.Add_Inplace(r.mono, r.scratch)
		}
		if v.end > to {
			live = append(live, v)
		}
	}
	r.voices = live

	for i, s := range r.mono {
		dst[2*i] = s
		dst[2*i+1] = s
	}
	r.chain.ProcessBlock(dst[:2*n])
	vek32.MulNumber_Inplace(dst[:2*n], r.volume)
	for i := range dst[:2*n] {
		dst[i] = clamp32(dst[i])
	}
	r.peak = peak(dst[:2*n])
	r.frames = to
}

func (r *Renderer) render(v *voice, from int64, out []float32) {
	for i := range out {
		t := from + int64(i)
		if t < v.start || t >= v.end {
			out[i] = 0
			continue
		}
		s := oscillate(v.wave, &v.phase, v.dt)
		out[i] = float32(s * envelope(t, v.start, v.end, v.attack, v.release, v.gain))
	}
}

func peak(buf []float32) float32 {
	var p float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > p {
			p = s
		}
	}
	return p
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

func clamp32(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
