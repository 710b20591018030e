// Package tui is a terminal card editor: the user lays out a chain from a
// palette while the player keeps the current playable chain sounding.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	echoes "github.com/amenocturne/infinite-echoes"
	"github.com/amenocturne/infinite-echoes/internal/chainfile"
	"github.com/amenocturne/infinite-echoes/internal/graph"
)

// Transport is the part of the player the editor drives.
type Transport interface {
	SetChain(nodes []graph.Node)
	Play()
	Stop() error
	Frame() int
	Playing() bool
	Watch() <-chan echoes.Notice
}

type tickMsg time.Time

type noticeMsg echoes.Notice

type Model struct {
	transport Transport
	notices   <-chan echoes.Notice
	palette   []Card
	selected  int
	chain     []graph.Node
	labels    []string
	cursor    int
	interval  time.Duration
	savePath  string
	status    string
	quitting  bool
}

func NewModel(t Transport, palette []Card, interval time.Duration, savePath string) Model {
	return Model{
		transport: t,
		notices:   t.Watch(),
		palette:   palette,
		interval:  interval,
		savePath:  savePath,
		status:    "pick a card with tab, drop it with enter",
	}
}

// WithChain preloads a chain, labelling each card by its kind.
func (m Model) WithChain(nodes []graph.Node) Model {
	m.chain = append([]graph.Node(nil), nodes...)
	m.labels = make([]string, len(nodes))
	for i, n := range nodes {
		m.labels[i] = n.Category().String()
	}
	m.cursor = max(len(nodes)-1, 0)
	m.transport.SetChain(m.chain)
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func listenForNotices(ch <-chan echoes.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), listenForNotices(m.notices))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			_ = m.transport.Stop()
			return m, tea.Quit
		case "tab":
			if len(m.palette) > 0 {
				m.selected = (m.selected + 1) % len(m.palette)
			}
		case "shift+tab":
			if len(m.palette) > 0 {
				m.selected = (m.selected + len(m.palette) - 1) % len(m.palette)
			}
		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < len(m.chain)-1 {
				m.cursor++
			}
		case "enter", "i":
			m.insert()
		case "x", "backspace":
			m.remove()
		case " ", "p":
			if m.transport.Playing() {
				if err := m.transport.Stop(); err != nil {
					m.status = err.Error()
				}
			} else {
				m.transport.Play()
			}
		case "s":
			m.save()
		}

	case tickMsg:
		m.transport.Frame()
		return m, m.tick()

	case noticeMsg:
		m.status = describe(echoes.Notice(msg))
		return m, listenForNotices(m.notices)
	}
	return m, nil
}

// insert drops the selected palette card after the cursor, or at the
// nearest legal slot when that position is taken by the grammar.
func (m *Model) insert() {
	if len(m.palette) == 0 {
		m.status = "palette is empty"
		return
	}
	card := m.palette[m.selected]
	at := 0
	if len(m.chain) > 0 {
		at = m.cursor + 1
	}
	points := graph.InsertionPoints(m.chain, card.Node.Category())
	if len(points) == 0 {
		m.status = fmt.Sprintf("%s does not fit anywhere", card.Label)
		return
	}
	if !graph.CanInsert(m.chain, at, card.Node.Category()) {
		at = nearest(points, at)
	}
	m.chain = append(m.chain[:at], append([]graph.Node{card.Node}, m.chain[at:]...)...)
	m.labels = append(m.labels[:at], append([]string{card.Label}, m.labels[at:]...)...)
	m.cursor = at
	m.transport.SetChain(m.chain)
}

func (m *Model) remove() {
	if len(m.chain) == 0 {
		return
	}
	m.chain = append(m.chain[:m.cursor], m.chain[m.cursor+1:]...)
	m.labels = append(m.labels[:m.cursor], m.labels[m.cursor+1:]...)
	if m.cursor >= len(m.chain) && m.cursor > 0 {
		m.cursor--
	}
	m.transport.SetChain(m.chain)
}

func (m *Model) save() {
	if m.savePath == "" {
		m.status = "no save path"
		return
	}
	doc, err := chainfile.FromNodes("tui", m.chain)
	if err == nil {
		err = chainfile.Save(m.savePath, doc)
	}
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = "saved " + m.savePath
}

func nearest(points []int, at int) int {
	best := points[0]
	for _, p := range points[1:] {
		if abs(p-at) < abs(best-at) {
			best = p
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func describe(n echoes.Notice) string {
	switch n.Kind {
	case echoes.NoticeBatch:
		return fmt.Sprintf("scheduled %d notes up to %v", n.Commands, n.End.Round(time.Millisecond))
	case echoes.NoticeIdle:
		return "loop is empty"
	case echoes.NoticeChainRejected:
		return "chain is not playable yet"
	case echoes.NoticeStopped:
		return "stopped"
	case echoes.NoticeBackendError:
		return "audio error: " + n.Err.Error()
	}
	return ""
}

var categoryColors = map[graph.Category]lipgloss.Color{
	graph.Generator:   lipgloss.Color("#7FB069"),
	graph.NoteEffect:  lipgloss.Color("#E6AA68"),
	graph.Tone:        lipgloss.Color("#5DA9E9"),
	graph.AudioEffect: lipgloss.Color("#CA3C25"),
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	headerStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Faint(true)
	cardStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	state := "STOP"
	if m.transport.Playing() {
		state = "PLAY"
	}
	playable := "incomplete"
	if graph.Playable(m.chain) {
		playable = "playable"
	}
	header := headerStyle.Render(fmt.Sprintf("infinite echoes  %s  %d cards  %s", state, len(m.chain), playable))

	var cards []string
	for i, n := range m.chain {
		style := cardStyle.BorderForeground(categoryColors[n.Category()])
		if i == m.cursor {
			style = style.Bold(true).BorderStyle(lipgloss.ThickBorder())
		}
		cards = append(cards, style.Render(m.labels[i]))
	}
	chain := dimStyle.Render("(empty)")
	if len(cards) > 0 {
		chain = lipgloss.JoinHorizontal(lipgloss.Center, cards...)
	}

	var pal []string
	for i, c := range m.palette {
		label := c.Label
		if i == m.selected {
			label = lipgloss.NewStyle().Reverse(true).Render(label)
		} else {
			label = lipgloss.NewStyle().Foreground(categoryColors[c.Node.Category()]).Render(label)
		}
		pal = append(pal, label)
	}

	help := dimStyle.Render("tab:card  enter:drop  x:remove  h/l:move  space:play  s:save  q:quit")
	return strings.Join([]string{
		header,
		"",
		chain,
		"",
		strings.Join(pal, " "),
		"",
		m.status,
		help,
	}, "\n")
}
