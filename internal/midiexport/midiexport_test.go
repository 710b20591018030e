package midiexport

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/amenocturne/infinite-echoes/internal/musictime"
	"github.com/amenocturne/infinite-echoes/internal/note"
)

func loop() note.Generator {
	return note.NewGenerator(musictime.Whole,
		note.NewEvent(note.NewPitch(3, note.A), 0, musictime.Quarter),
		note.NewEvent(note.NewPitch(3, note.C), 0, musictime.Half),
		note.NewEvent(note.NewPitch(3, note.A), musictime.Quarter, musictime.Quarter),
	)
}

func TestWriteReadRoundTrip(t *testing.T) {
	opt := DefaultOptions()
	opt.Name = "loop"
	opt.BPM = 96
	var buf bytes.Buffer
	if err := Write(&buf, loop(), opt); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, bpm, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bpm != 96 {
		t.Fatalf("bpm = %v, want 96", bpm)
	}
	if got.LoopLength != musictime.Whole {
		t.Fatalf("loop length = %d, want %d", got.LoopLength, musictime.Whole)
	}
	if len(got.Notes) != 3 {
		t.Fatalf("notes = %+v", got.Notes)
	}
	// Retriggered A3 keeps both instances.
	var as []note.Event
	for _, n := range got.Notes {
		if n.Pitch == note.NewPitch(3, note.A) {
			as = append(as, n)
		}
	}
	want := []note.Event{
		note.NewEvent(note.NewPitch(3, note.A), 0, musictime.Quarter),
		note.NewEvent(note.NewPitch(3, note.A), musictime.Quarter, musictime.Quarter),
	}
	if !reflect.DeepEqual(as, want) {
		t.Fatalf("A3 notes = %+v, want %+v", as, want)
	}
}

func TestRepeatsExtendTrack(t *testing.T) {
	opt := DefaultOptions()
	opt.Repeats = 3
	path := filepath.Join(t.TempDir(), "loop.mid")
	if err := WriteFile(path, loop(), opt); err != nil {
		t.Fatalf("write: %v", err)
	}
	sm, err := Build(loop(), opt)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(sm.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(sm.Tracks))
	}
	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Notes) != 9 || got.LoopLength != 3*musictime.Whole {
		t.Fatalf("got %d notes over %d ticks", len(got.Notes), got.LoopLength)
	}
}

func TestBuildRejectsBadOptions(t *testing.T) {
	opt := DefaultOptions()
	opt.BPM = 0
	if _, err := Build(loop(), opt); !errors.Is(err, ErrNoTempo) {
		t.Fatalf("err = %v, want ErrNoTempo", err)
	}
	opt = DefaultOptions()
	opt.Channel = 16
	if _, err := Build(loop(), opt); err == nil {
		t.Fatalf("expected channel error")
	}
}

func TestMIDIKeyMapping(t *testing.T) {
	if k := clampKey(note.NewPitch(3, note.A).MIDIKey()); k != 69 {
		t.Fatalf("A3 key = %d, want 69", k)
	}
	if clampKey(-5) != 0 || clampKey(300) != 127 {
		t.Fatalf("clamp failed")
	}
}
