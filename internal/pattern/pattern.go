// Package pattern parses MML-style note strings into generator loops.
//
//	o3 l8 c e g > c < r4 [a b]2 c2.
//
// Notes a-g take accidentals (#, +, -), an optional length (1 = whole,
// 4 = quarter, 12 = triplet eighth), dots and ^ ties. o sets the octave,
// < and > step it, l sets the default length, q sets the gate percentage,
// r is a rest and [ ... ]n repeats a section. Spaces and | are ignored.
package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/amenocturne/infinite-echoes/internal/musictime"
	"github.com/amenocturne/infinite-echoes/internal/note"
)

type Config struct {
	TicksPerQuarter int
	DefaultOctave   int
	DefaultLength   int
	MinOctave       int
	MaxOctave       int
	MaxRepeat       int
}

func DefaultConfig() Config {
	return Config{
		TicksPerQuarter: int(musictime.TicksPerQuarter),
		DefaultOctave:   3,
		DefaultLength:   4,
		MinOctave:       -1,
		MaxOctave:       8,
		MaxRepeat:       64,
	}
}

// SyntaxError points at the byte offset where parsing failed.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern: %s at offset %d", e.Msg, e.Pos)
}

var noteOffsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

type Parser struct {
	cfg Config
}

func NewParser(cfg Config) *Parser {
	if cfg.TicksPerQuarter <= 0 {
		cfg.TicksPerQuarter = int(musictime.TicksPerQuarter)
	}
	if cfg.DefaultLength <= 0 {
		cfg.DefaultLength = 4
	}
	if cfg.MaxRepeat <= 0 {
		cfg.MaxRepeat = 64
	}
	if cfg.MaxOctave < cfg.MinOctave {
		cfg.MinOctave, cfg.MaxOctave = cfg.MaxOctave, cfg.MinOctave
	}
	return &Parser{cfg: cfg}
}

type parseState struct {
	tick       int
	octave     int
	defaultLen int
	gate       int
	whole      int
	notes      []note.Event
}

// Parse returns one loop whose length is the total length of the pattern.
func (p *Parser) Parse(src string) (note.Generator, error) {
	expanded, err := expandLoops(strings.ToLower(src), p.cfg.MaxRepeat)
	if err != nil {
		return note.Generator{}, err
	}
	whole := p.cfg.TicksPerQuarter * 4
	st := parseState{
		octave:     p.cfg.DefaultOctave,
		defaultLen: whole / p.cfg.DefaultLength,
		gate:       100,
		whole:      whole,
	}
	s := expanded
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpace(c) || c == '|':
			i++
		case isNote(c):
			ev, dur, next, err := parseNote(s, i, st)
			if err != nil {
				return note.Generator{}, err
			}
			st.notes = append(st.notes, ev)
			st.tick += dur
			i = next
		case c == 'r':
			dur, next, err := parseLengthWithTie(s, i+1, st)
			if err != nil {
				return note.Generator{}, err
			}
			st.tick += dur
			i = next
		case c == 'o':
			v, next, err := parseNumber(s, i+1)
			if err != nil {
				return note.Generator{}, err
			}
			st.octave = v
			i = next
		case c == '<':
			st.octave--
			i++
		case c == '>':
			st.octave++
			i++
		case c == 'l':
			dur, next, err := parseLengthToken(s, i+1, st)
			if err != nil {
				return note.Generator{}, err
			}
			st.defaultLen = dur
			i = next
		case c == 'q':
			v, next, err := parseNumber(s, i+1)
			if err != nil {
				return note.Generator{}, err
			}
			if v < 1 || v > 100 {
				return note.Generator{}, &SyntaxError{Pos: i, Msg: fmt.Sprintf("gate %d out of range 1-100", v)}
			}
			st.gate = v
			i = next
		default:
			return note.Generator{}, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected %q", c)}
		}
		if st.octave < p.cfg.MinOctave || st.octave > p.cfg.MaxOctave {
			return note.Generator{}, &SyntaxError{Pos: i, Msg: fmt.Sprintf("octave %d out of range", st.octave)}
		}
	}
	return note.NewGenerator(musictime.Tick(st.tick), st.notes...), nil
}

// Parse uses the default configuration.
func Parse(src string) (note.Generator, error) {
	return NewParser(DefaultConfig()).Parse(src)
}

func parseNote(s string, at int, st parseState) (note.Event, int, int, error) {
	base := noteOffsets[s[at]]
	i, shift := at+1, 0
	for i < len(s) {
		switch s[i] {
		case '#', '+':
			shift++
		case '-':
			shift--
		default:
			goto done
		}
		i++
	}
done:
	dur, next, err := parseLengthWithTie(s, i, st)
	if err != nil {
		return note.Event{}, 0, at, err
	}
	gated := dur * st.gate / 100
	if gated <= 0 && dur > 0 {
		gated = 1
	}
	pitch := note.FromSemitones(st.octave*12 + base + shift)
	return note.NewEvent(pitch, musictime.Tick(st.tick), musictime.Tick(gated)), dur, next, nil
}

func parseLengthWithTie(s string, at int, st parseState) (int, int, error) {
	dur, i, err := parseLengthToken(s, at, st)
	if err != nil {
		return 0, at, err
	}
	for i < len(s) && s[i] == '^' {
		extra, next, e := parseLengthToken(s, i+1, st)
		if e != nil {
			return 0, at, e
		}
		dur += extra
		i = next
	}
	return dur, i, nil
}

func parseLengthToken(s string, at int, st parseState) (int, int, error) {
	val, i, err := parseNumberOptional(s, at)
	if err != nil {
		return 0, at, err
	}
	base := st.defaultLen
	if val == 0 || val > st.whole {
		return 0, at, &SyntaxError{Pos: at, Msg: fmt.Sprintf("invalid length %d", val)}
	}
	if val > 0 {
		base = st.whole / val
	}
	dots := 0
	for i < len(s) && s[i] == '.' {
		dots++
		i++
	}
	dur, term := base, base
	for k := 0; k < dots; k++ {
		term >>= 1
		dur += term
	}
	return dur, i, nil
}

func parseNumber(s string, at int) (int, int, error) {
	sign := 1
	i := at
	if i < len(s) && s[i] == '-' {
		sign = -1
		i++
	}
	v, next, err := parseNumberOptional(s, i)
	if err != nil {
		return 0, at, err
	}
	if v == -1 {
		return 0, at, &SyntaxError{Pos: at, Msg: "number expected"}
	}
	return sign * v, next, nil
}

func parseNumberOptional(s string, at int) (int, int, error) {
	i, start := at, at
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if start == i {
		return -1, i, nil
	}
	n, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0, at, &SyntaxError{Pos: at, Msg: err.Error()}
	}
	return n, i, nil
}

// expandLoops rewrites [body]n as n copies of body, innermost first.
func expandLoops(src string, maxRepeat int) (string, error) {
	for {
		open := strings.LastIndexByte(src, '[')
		if open < 0 {
			if end := strings.IndexByte(src, ']'); end >= 0 {
				return "", &SyntaxError{Pos: end, Msg: "unmatched ]"}
			}
			return src, nil
		}
		rel := strings.IndexByte(src[open:], ']')
		if rel < 0 {
			return "", &SyntaxError{Pos: open, Msg: "unclosed ["}
		}
		end := open + rel
		count, next, err := parseNumberOptional(src, end+1)
		if err != nil {
			return "", err
		}
		if count == -1 {
			count = 2
		}
		if count > maxRepeat {
			return "", &SyntaxError{Pos: end + 1, Msg: fmt.Sprintf("repeat count %d exceeds %d", count, maxRepeat)}
		}
		body := src[open+1 : end]
		src = src[:open] + strings.Repeat(body, count) + src[next:]
		if len(src) > 1<<20 {
			return "", &SyntaxError{Pos: open, Msg: "pattern too long after expansion"}
		}
	}
}

func isSpace(b byte) bool { return b == ' ' || b == '\n' || b == '\r' || b == '\t' }
func isNote(b byte) bool  { _, ok := noteOffsets[b]; return ok }
