package echoes

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/amenocturne/infinite-echoes/internal/compiler"
	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/synth"
)

// offlineBlock is how much audio is rendered between two player frames.
const offlineBlock = 10 * time.Millisecond

// RenderSamples plays nodes through the software synth for the given number
// of seconds and returns interleaved stereo samples. The player runs on the
// synth's sample clock, so the output does not depend on wall time.
func RenderSamples(nodes []graph.Node, cfg compiler.Config, sampleRate int, seconds float64) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if _, ok := graph.New(nodes); !ok {
		return nil, ErrNotPlayable
	}
	r := synth.New(sampleRate, synth.DefaultParams())
	epoch := time.Unix(0, 0)
	p, err := NewPlayer(r,
		WithConfig(cfg),
		WithClock(func() time.Time { return epoch.Add(r.Now()) }),
	)
	if err != nil {
		return nil, err
	}
	p.SetChain(nodes)
	p.Play()

	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	block := int(int64(sampleRate) * int64(offlineBlock) / int64(time.Second))
	if block <= 0 {
		block = 1
	}
	for at := 0; at < frames; at += block {
		p.Frame()
		end := at + block
		if end > frames {
			end = frames
		}
		r.Process(out[2*at : 2*end])
	}
	return out, nil
}

// WriteWAV writes samples as a 32-bit float WAV stream.
func WriteWAV(w io.Writer, samples []float32, sampleRate, channels int) error {
	dataSize := len(samples) * 4
	var hdr [44]byte
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(36+dataSize))
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], 3)
	binary.LittleEndian.PutUint16(hdr[22:], uint16(channels))
	binary.LittleEndian.PutUint32(hdr[24:], uint32(sampleRate*channels*4))
	binary.LittleEndian.PutUint16(hdr[32:], uint16(channels*4))
	binary.LittleEndian.PutUint16(hdr[34:], 32)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], uint32(dataSize))

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}
	var b [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(s))
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteWAVFile renders samples to path.
func WriteWAVFile(path string, samples []float32, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate, channels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
