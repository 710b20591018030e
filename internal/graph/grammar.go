package graph

import "regexp"

// Mode selects the adjacency tables used for pairwise checks.
type Mode int

const (
	// Strict gates compilation.
	Strict Mode = iota
	// Loose lets audio effects follow any card so half-built chains still
	// offer drop targets.
	Loose
)

type categorySet uint8

func setOf(cs ...Category) categorySet {
	var s categorySet
	for _, c := range cs {
		s |= 1 << uint(c)
	}
	return s
}

func (s categorySet) has(c Category) bool { return s&(1<<uint(c)) != 0 }

type rules struct {
	before map[Category]categorySet
	after  map[Category]categorySet
}

var tables = map[Mode]rules{
	Strict: {
		before: map[Category]categorySet{
			Generator:   setOf(None, Generator, NoteEffect),
			NoteEffect:  setOf(None, Generator, NoteEffect),
			Tone:        setOf(Generator, NoteEffect),
			AudioEffect: setOf(Tone, AudioEffect),
		},
		after: map[Category]categorySet{
			Generator:   setOf(None, Generator, NoteEffect, Tone),
			NoteEffect:  setOf(None, Generator, NoteEffect, Tone),
			Tone:        setOf(None, AudioEffect),
			AudioEffect: setOf(None, AudioEffect),
		},
	},
	Loose: {
		before: map[Category]categorySet{
			Generator:   setOf(None, Generator, NoteEffect),
			NoteEffect:  setOf(None, Generator, NoteEffect),
			Tone:        setOf(Generator, NoteEffect),
			AudioEffect: setOf(Generator, NoteEffect, Tone, AudioEffect),
		},
		after: map[Category]categorySet{
			Generator:   setOf(None, Generator, NoteEffect, Tone, AudioEffect),
			NoteEffect:  setOf(None, Generator, NoteEffect, Tone, AudioEffect),
			Tone:        setOf(None, AudioEffect),
			AudioEffect: setOf(None, AudioEffect),
		},
	},
}

var playablePattern = regexp.MustCompile(`^[GN]*G[GN]*TA*$`)

func Categories(nodes []Node) []Category {
	cats := make([]Category, 0, len(nodes))
	for _, n := range nodes {
		cats = append(cats, categoryOf(n))
	}
	return cats
}

func categoryOf(n Node) Category {
	if n == nil {
		return None
	}
	return n.Category()
}

func signature(cats []Category) string {
	b := make([]byte, len(cats))
	for i, c := range cats {
		b[i] = c.letter()
	}
	return string(b)
}

// Fits reports whether cur may sit between prev and next. Pass None for a
// missing neighbor.
func Fits(mode Mode, prev, cur, next Category) bool {
	r, ok := tables[mode]
	if !ok || cur == None {
		return false
	}
	return r.before[cur].has(prev) && r.after[cur].has(next)
}

// Valid checks every node against its neighbors with the given tables.
func Valid(mode Mode, cats []Category) bool {
	for i, c := range cats {
		prev, next := None, None
		if i > 0 {
			prev = cats[i-1]
		}
		if i+1 < len(cats) {
			next = cats[i+1]
		}
		if !Fits(mode, prev, c, next) {
			return false
		}
	}
	return true
}

// Playable reports whether nodes form (Generator|NoteEffect)+ Tone
// AudioEffect* with at least one generator.
func Playable(nodes []Node) bool {
	return playablePattern.MatchString(signature(Categories(nodes)))
}

// CanInsert reports whether a card of category c may be dropped at index at
// under the loose tables. Only the new card and its two neighbors are
// checked.
func CanInsert(nodes []Node, at int, c Category) bool {
	if at < 0 || at > len(nodes) || c == None {
		return false
	}
	cats := Categories(nodes)
	prev, next := None, None
	if at > 0 {
		prev = cats[at-1]
	}
	if at < len(cats) {
		next = cats[at]
	}
	if !Fits(Loose, prev, c, next) {
		return false
	}
	r := tables[Loose]
	if prev != None && !r.after[prev].has(c) {
		return false
	}
	if next != None && !r.before[next].has(c) {
		return false
	}
	return true
}

// InsertionPoints lists every index at which CanInsert holds.
func InsertionPoints(nodes []Node, c Category) []int {
	var points []int
	for at := 0; at <= len(nodes); at++ {
		if CanInsert(nodes, at, c) {
			points = append(points, at)
		}
	}
	return points
}
