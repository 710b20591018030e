package pattern

import (
	"errors"
	"testing"

	"github.com/amenocturne/infinite-echoes/internal/musictime"
)

func TestParseBasicMelody(t *testing.T) {
	g, err := Parse("o3 l4 cdef g2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(g.Notes) != 5 {
		t.Fatalf("expected 5 notes, got %d", len(g.Notes))
	}
	if g.LoopLength != musictime.Whole+musictime.Half {
		t.Fatalf("loop length = %d, want %d", g.LoopLength, musictime.Whole+musictime.Half)
	}
	want := []string{"C3", "D3", "E3", "F3", "G3"}
	for i, w := range want {
		if got := g.Notes[i].Pitch.String(); got != w {
			t.Fatalf("note %d = %s, want %s", i, got, w)
		}
	}
	if g.Notes[4].Start != musictime.Whole || g.Notes[4].Duration != musictime.Half {
		t.Fatalf("last note = %+v", g.Notes[4])
	}
}

func TestParseOctavesAndAccidentals(t *testing.T) {
	g, err := Parse("o3 a > c# < b- a+")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []string{"A3", "C#4", "A#3", "A#3"}
	for i, w := range want {
		if got := g.Notes[i].Pitch.String(); got != w {
			t.Fatalf("note %d = %s, want %s", i, got, w)
		}
	}
	if f := g.Notes[0].Pitch.Frequency(); f != 440 {
		t.Fatalf("o3 a = %f Hz, want 440", f)
	}
}

func TestParseLengths(t *testing.T) {
	tests := []struct {
		src  string
		want musictime.Tick
	}{
		{"c", musictime.Quarter},
		{"c8", musictime.Eighth},
		{"c4.", musictime.Quarter + musictime.Eighth},
		{"c2..", musictime.Half + musictime.Quarter + musictime.Eighth},
		{"c12", musictime.TripletEighth},
		{"c4^8", musictime.Quarter + musictime.Eighth},
		{"l16 c", musictime.Sixteenth},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			g, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if g.Notes[0].Duration != tt.want || g.LoopLength != tt.want {
				t.Fatalf("duration = %d loop = %d, want %d", g.Notes[0].Duration, g.LoopLength, tt.want)
			}
		})
	}
}

func TestParseRestsAndGate(t *testing.T) {
	g, err := Parse("q50 c r c")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(g.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(g.Notes))
	}
	if g.Notes[1].Start != 2*musictime.Quarter {
		t.Fatalf("second note start = %d", g.Notes[1].Start)
	}
	if g.Notes[0].Duration != musictime.Eighth {
		t.Fatalf("gated duration = %d, want %d", g.Notes[0].Duration, musictime.Eighth)
	}
	if g.LoopLength != 3*musictime.Quarter {
		t.Fatalf("loop length = %d", g.LoopLength)
	}
}

func TestParseLoops(t *testing.T) {
	g, err := Parse("[c [d]3 ]2 | e")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(g.Notes) != 9 {
		t.Fatalf("expected 9 notes, got %d", len(g.Notes))
	}
	if g.Notes[8].Pitch.String() != "E3" {
		t.Fatalf("last note = %s", g.Notes[8].Pitch)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"c0", "x", "[c", "c]", "o", "o12 c", "q0 c", "[c]999"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse(%q) err = %v, want SyntaxError", src, err)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	g, err := Parse("  ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if g.LoopLength != 0 || len(g.Notes) != 0 {
		t.Fatalf("expected empty generator, got %+v", g)
	}
}
