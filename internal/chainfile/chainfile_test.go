package chainfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/musictime"
	"github.com/amenocturne/infinite-echoes/internal/note"
	"github.com/amenocturne/infinite-echoes/internal/noteeffect"
)

const sample = `
name: drift
cards:
  - generator:
      pattern: "o3 l8 c e g r"
  - scale_chord:
      root: A
      mode: minor
  - time_scale: {num: 2, den: 1}
  - tone: {wave: triangle}
  - filter: {type: lowpass, frequency: 800}
  - distortion: {}
  - reverb: {wet: 0.4}
`

func TestDecodeSample(t *testing.T) {
	doc, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Name != "drift" || len(doc.Cards) != 7 {
		t.Fatalf("doc = %+v", doc)
	}
	nodes, err := doc.Nodes(nil)
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	g, ok := graph.New(nodes)
	if !ok {
		t.Fatalf("sample chain not playable")
	}
	gen := nodes[0].(graph.GeneratorNode).Generator
	if gen.LoopLength != 4*musictime.Eighth || len(gen.Notes) != 3 {
		t.Fatalf("generator = %+v", gen)
	}
	if g.Tone().Wave != graph.Triangle {
		t.Fatalf("wave = %v", g.Tone().Wave)
	}
	effects := g.AudioEffects()
	if f := effects[0].(graph.Filter); f.Frequency != 800 || f.Q != 1 {
		t.Fatalf("filter = %+v", f)
	}
	if d := effects[1].(graph.Distortion); d != graph.DefaultDistortion() {
		t.Fatalf("distortion = %+v", d)
	}
	if r := effects[2].(graph.Reverb); r.Wet != 0.4 || r.Dry != 1 || r.Decay != 1 {
		t.Fatalf("reverb = %+v", r)
	}
	if flat := g.Flatten(); flat.LoopLength != 8*musictime.Eighth || len(flat.Notes) != 9 {
		t.Fatalf("flatten = %d ticks, %d notes", flat.LoopLength, len(flat.Notes))
	}
}

func TestRoundTrip(t *testing.T) {
	scale := noteeffect.NewScale(note.D, noteeffect.Dorian)
	nodes := []graph.Node{
		graph.GeneratorNode{Generator: note.NewGenerator(musictime.Whole,
			note.NewEvent(note.NewPitch(3, note.FSharp), 0, musictime.Quarter),
			note.NewEvent(note.NewPitch(2, note.B), musictime.Half, musictime.Eighth),
		)},
		graph.EffectNode{Effect: noteeffect.Chord{Intervals: []int{0, 3, 7}}},
		graph.EffectNode{Effect: noteeffect.Snap{Scale: scale}},
		graph.GeneratorNode{Generator: note.NewGenerator(musictime.Half)},
		graph.EffectNode{Effect: noteeffect.ScaleChord{Scale: scale, Degrees: []int{0, 4}}},
		graph.EffectNode{Effect: noteeffect.HalfLength()},
		graph.ToneNode{Wave: graph.Sawtooth},
		graph.AudioEffectNode{Effect: graph.Filter{Type: graph.HighShelf, Frequency: 3000, Q: 0.7, Gain: -3}},
		graph.AudioEffectNode{Effect: graph.Distortion{Amount: 0.2, Curve: graph.HardClip}},
		graph.AudioEffectNode{Effect: graph.Reverb{Decay: 2.5, Wet: 0.3, Dry: 0.8}},
	}

	doc, err := FromNodes("round", nodes)
	if err != nil {
		t.Fatalf("from nodes: %v", err)
	}
	path := filepath.Join(t.TempDir(), "chain.yaml")
	if err := Save(path, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := loaded.Nodes(nil)
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	if !reflect.DeepEqual(got, nodes) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, nodes)
	}
}

func TestCardErrors(t *testing.T) {
	tests := map[string]string{
		"empty card":   "cards:\n  - {}\n",
		"two kinds":    "cards:\n  - tone: {}\n    reverb: {}\n",
		"bad wave":     "cards:\n  - tone: {wave: noise}\n",
		"bad pattern":  "cards:\n  - generator: {pattern: \"c0\"}\n",
		"bad mode":     "cards:\n  - snap: {root: C, mode: bebop}\n",
		"both sources": "cards:\n  - generator: {pattern: c, notes: [{pitch: C3, start: 0, duration: 1}]}\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(src))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, err := doc.Nodes(nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	doc, _ := Decode(strings.NewReader("cards:\n  - {}\n"))
	if _, err := doc.Nodes(nil); !errors.Is(err, ErrEmptyCard) {
		t.Fatalf("err = %v, want ErrEmptyCard", err)
	}
	if _, err := Decode(strings.NewReader("cards:\n  - tone: {shape: sine}\n")); err == nil {
		t.Fatalf("unknown field accepted")
	}
}

func TestEncodeIsReadable(t *testing.T) {
	doc, err := FromNodes("", []graph.Node{graph.ToneNode{Wave: graph.Square}})
	if err != nil {
		t.Fatalf("from nodes: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), "wave: square") {
		t.Fatalf("encoded = %q", buf.String())
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Cards[0].Tone == nil || back.Cards[0].Tone.Wave != "square" {
		t.Fatalf("decoded = %+v", back.Cards)
	}
}
