// Package report renders a human-readable summary of a chain and the batch
// it compiles to.
package report

import (
	"embed"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amenocturne/infinite-echoes/internal/compiler"
	"github.com/amenocturne/infinite-echoes/internal/graph"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var summary = template.Must(template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl"))

// MaxRows caps the play command table.
const MaxRows = 16

type playRow struct {
	Index     int
	Note      string
	Frequency float64
	Start     float64
	Length    float64
}

type data struct {
	Title       string
	Cards       []string
	Playable    bool
	Wave        string
	LoopTicks   uint32
	LoopSeconds float64
	BPM         int
	Repeats     int
	Commands    int
	Wiring      []string
	Play        []playRow
}

// Summary describes nodes and, when they are playable, the batch compiled
// from them at time zero.
func Summary(w io.Writer, name string, nodes []graph.Node, cfg compiler.Config) error {
	caser := cases.Title(language.English)
	if name == "" {
		name = "untitled chain"
	}
	d := data{Title: caser.String(name), BPM: cfg.BPM}
	for _, n := range nodes {
		d.Cards = append(d.Cards, caser.String(cardLabel(n)))
	}

	g, ok := graph.New(nodes)
	d.Playable = ok
	if ok {
		flat := g.Flatten()
		batch := compiler.Compile(g, cfg, 0)
		d.Wave = g.Tone().Wave.String()
		d.LoopTicks = uint32(flat.LoopLength)
		d.LoopSeconds = cfg.TimeBase().Seconds(flat.LoopLength)
		d.Repeats = compiler.Repeats(d.LoopSeconds, cfg.MaxScheduleAhead)
		d.Commands = len(batch.Play)
		d.Wiring = wiringLabels(batch.Wiring)
		for i, p := range batch.Play {
			if i == MaxRows {
				break
			}
			d.Play = append(d.Play, playRow{
				Index:     i,
				Note:      p.Pitch.String(),
				Frequency: p.Frequency,
				Start:     (p.Start - batch.Start).Seconds(),
				Length:    p.Duration.Seconds(),
			})
		}
	}
	if err := summary.ExecuteTemplate(w, "summary", d); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

func cardLabel(n graph.Node) string {
	switch n := n.(type) {
	case graph.GeneratorNode:
		return fmt.Sprintf("generator %d notes", len(n.Generator.Notes))
	case graph.EffectNode:
		if n.Effect == nil {
			return "note effect"
		}
		return n.Effect.String()
	case graph.ToneNode:
		return n.Wave.String() + " tone"
	case graph.AudioEffectNode:
		return effectLabel(n.Effect)
	}
	return "unknown"
}

func effectLabel(e graph.AudioEffectSpec) string {
	switch e := e.(type) {
	case graph.Filter:
		return fmt.Sprintf("%s %g hz", e.Type, e.Frequency)
	case graph.Distortion:
		return fmt.Sprintf("%s distortion %g", e.Curve, e.Amount)
	case graph.Reverb:
		return fmt.Sprintf("reverb decay %g", e.Decay)
	case nil:
		return "audio effect"
	}
	return e.Kind()
}

func wiringLabels(w compiler.Wiring) []string {
	labels := []string{"tone"}
	for _, e := range w.Effects {
		labels = append(labels, e.Kind())
	}
	return append(labels, "master")
}

// Elapsed formats a backend clock reading.
func Elapsed(d time.Duration) string {
	return d.Truncate(time.Millisecond).String()
}
