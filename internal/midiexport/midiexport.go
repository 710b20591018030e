// Package midiexport writes a flattened loop as a Standard MIDI File.
package midiexport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/amenocturne/infinite-echoes/internal/musictime"
	"github.com/amenocturne/infinite-echoes/internal/note"
)

type Options struct {
	Name            string
	BPM             int
	TicksPerQuarter int
	Channel         uint8
	Velocity        uint8
	Repeats         int
}

func DefaultOptions() Options {
	return Options{
		BPM:             120,
		TicksPerQuarter: int(musictime.TicksPerQuarter),
		Velocity:        100,
		Repeats:         1,
	}
}

var ErrNoTempo = errors.New("midiexport: bpm must be positive")

type edge struct {
	tick uint32
	on   bool
	key  uint8
}

// Build lays the loop out Repeats times on one track after a tempo track.
func Build(g note.Generator, opt Options) (*smf.SMF, error) {
	if opt.BPM <= 0 {
		return nil, ErrNoTempo
	}
	if opt.TicksPerQuarter <= 0 || opt.TicksPerQuarter > 0x7FFF {
		return nil, fmt.Errorf("midiexport: ticks per quarter %d out of range", opt.TicksPerQuarter)
	}
	if opt.Channel > 15 {
		return nil, fmt.Errorf("midiexport: channel %d out of range", opt.Channel)
	}
	if opt.Repeats < 1 {
		opt.Repeats = 1
	}
	if opt.Velocity == 0 || opt.Velocity > 127 {
		opt.Velocity = 100
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(opt.TicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(float64(opt.BPM)))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return nil, fmt.Errorf("midiexport: tempo track: %w", err)
	}

	loop := g.Repeat(opt.Repeats)
	edges := make([]edge, 0, 2*len(loop.Notes))
	for _, n := range loop.Notes {
		if n.Duration == 0 {
			continue
		}
		key := clampKey(n.Pitch.MIDIKey())
		edges = append(edges,
			edge{tick: uint32(n.Start), on: true, key: key},
			edge{tick: uint32(n.End()), on: false, key: key},
		)
	}
	// Note-offs go first at equal ticks so repeated keys retrigger.
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].tick != edges[j].tick {
			return edges[i].tick < edges[j].tick
		}
		return !edges[i].on && edges[j].on
	})

	var track smf.Track
	if opt.Name != "" {
		track.Add(0, smf.MetaTrackSequenceName(opt.Name))
	}
	var last uint32
	for _, e := range edges {
		delta := e.tick - last
		if e.on {
			track.Add(delta, midi.NoteOn(opt.Channel, e.key, opt.Velocity))
		} else {
			track.Add(delta, midi.NoteOff(opt.Channel, e.key))
		}
		last = e.tick
	}
	end := uint32(loop.LoopLength)
	if end < last {
		end = last
	}
	track.Close(end - last)
	if err := sm.Add(track); err != nil {
		return nil, fmt.Errorf("midiexport: note track: %w", err)
	}
	return sm, nil
}

func Write(w io.Writer, g note.Generator, opt Options) error {
	sm, err := Build(g, opt)
	if err != nil {
		return err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("midiexport: write: %w", err)
	}
	return nil
}

func WriteFile(path string, g note.Generator, opt Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("midiexport: %w", err)
	}
	if err := Write(f, g, opt); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read loads the notes of every track back into one generator. Its loop
// length is the end of the longest track.
func Read(r io.Reader) (note.Generator, float64, error) {
	sm, err := smf.ReadFrom(r)
	if err != nil {
		return note.Generator{}, 0, fmt.Errorf("midiexport: read: %w", err)
	}
	var bpm float64
	if changes := sm.TempoChanges(); len(changes) > 0 {
		bpm = changes[0].BPM
	}

	var out note.Generator
	for _, tr := range sm.Tracks {
		var abs uint32
		open := map[uint8][]uint32{}
		for _, ev := range tr {
			abs += ev.Delta
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				open[key] = append(open[key], abs)
			case ev.Message.GetNoteEnd(&ch, &key):
				starts := open[key]
				if len(starts) == 0 {
					continue
				}
				start := starts[0]
				open[key] = starts[1:]
				out.Notes = append(out.Notes, note.NewEvent(
					note.FromSemitones(int(key)-24),
					musictime.Tick(start),
					musictime.Tick(abs-start),
				))
			}
		}
		if t := musictime.Tick(abs); t > out.LoopLength {
			out.LoopLength = t
		}
	}
	sort.SliceStable(out.Notes, func(i, j int) bool { return out.Notes[i].Start < out.Notes[j].Start })
	return out, bpm, nil
}

func clampKey(k int) uint8 {
	if k < 0 {
		return 0
	}
	if k > 127 {
		return 127
	}
	return uint8(k)
}
