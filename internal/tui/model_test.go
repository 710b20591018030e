package tui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	echoes "github.com/amenocturne/infinite-echoes"
	"github.com/amenocturne/infinite-echoes/internal/chainfile"
	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/pattern"
)

type fakeTransport struct {
	chain   []graph.Node
	playing bool
	frames  int
	ch      chan echoes.Notice
}

func (f *fakeTransport) SetChain(nodes []graph.Node) { f.chain = append([]graph.Node(nil), nodes...) }
func (f *fakeTransport) Play()                       { f.playing = true }
func (f *fakeTransport) Stop() error                 { f.playing = false; return nil }
func (f *fakeTransport) Frame() int                  { f.frames++; return 0 }
func (f *fakeTransport) Playing() bool               { return f.playing }
func (f *fakeTransport) Watch() <-chan echoes.Notice {
	f.ch = make(chan echoes.Notice, 4)
	return f.ch
}

func newTestModel(t *testing.T) (Model, *fakeTransport) {
	t.Helper()
	palette, err := DefaultPalette(pattern.NewParser(pattern.DefaultConfig()))
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	ft := &fakeTransport{}
	return NewModel(ft, palette, 0, filepath.Join(t.TempDir(), "chain.yaml")), ft
}

func key(m Model, k string) Model {
	var msg tea.KeyMsg
	switch k {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func selectLabel(t *testing.T, m Model, label string) Model {
	t.Helper()
	for range m.palette {
		if m.palette[m.selected].Label == label {
			return m
		}
		m = key(m, "tab")
	}
	t.Fatalf("no palette card %q", label)
	return m
}

func TestBuildPlayableChain(t *testing.T) {
	m, ft := newTestModel(t)
	for _, label := range []string{"arp", "chord", "square", "reverb"} {
		m = selectLabel(t, m, label)
		m = key(m, "enter")
	}
	if !graph.Playable(ft.chain) {
		t.Fatalf("chain %v not playable", graph.Categories(ft.chain))
	}
	if !strings.Contains(m.View(), "playable") {
		t.Fatalf("view does not report playable chain")
	}
}

func TestInsertFindsLegalSlot(t *testing.T) {
	m, ft := newTestModel(t)
	m = selectLabel(t, m, "arp")
	m = key(m, "enter")
	m = selectLabel(t, m, "sine")
	m = key(m, "enter")
	// Cursor is on the tone; a generator cannot follow it and goes in front.
	m = selectLabel(t, m, "bass")
	m = key(m, "enter")
	cats := graph.Categories(ft.chain)
	want := []graph.Category{graph.Generator, graph.Generator, graph.Tone}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("categories = %v, want %v", cats, want)
		}
	}
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
}

func TestRemoveAndPlayToggle(t *testing.T) {
	m, ft := newTestModel(t)
	m = selectLabel(t, m, "arp")
	m = key(m, "enter")
	m = key(m, "p")
	if !ft.playing {
		t.Fatalf("play key did not start playback")
	}
	m = key(m, "x")
	if len(ft.chain) != 0 {
		t.Fatalf("chain = %d cards after remove", len(ft.chain))
	}
	m = key(m, "p")
	if ft.playing {
		t.Fatalf("play key did not stop playback")
	}
}

func TestTickDrivesFrames(t *testing.T) {
	m, ft := newTestModel(t)
	next, cmd := m.Update(tickMsg{})
	if ft.frames != 1 || cmd == nil {
		t.Fatalf("tick ran %d frames", ft.frames)
	}
	next, _ = next.Update(noticeMsg(echoes.Notice{Kind: echoes.NoticeChainRejected}))
	if got := next.(Model).status; got != "chain is not playable yet" {
		t.Fatalf("status = %q", got)
	}
}

func TestSaveWritesChainFile(t *testing.T) {
	m, _ := newTestModel(t)
	m = selectLabel(t, m, "bell")
	m = key(m, "enter")
	m = selectLabel(t, m, "saw")
	m = key(m, "enter")
	m = key(m, "s")
	doc, err := chainfile.Load(m.savePath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Cards) != 2 || doc.Cards[1].Tone == nil {
		t.Fatalf("saved doc = %+v", doc)
	}
}

func TestEmptyPaletteIsInert(t *testing.T) {
	ft := &fakeTransport{}
	m := NewModel(ft, nil, 0, "")
	for _, k := range []string{"tab", "enter", "i"} {
		m = key(m, k)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(Model)
	if len(ft.chain) != 0 || m.status != "palette is empty" {
		t.Fatalf("chain %d status %q", len(ft.chain), m.status)
	}
	if m.View() == "" {
		t.Fatalf("empty view")
	}
}
