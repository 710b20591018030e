package scheduler

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTest(t *testing.T) (*Scheduler[string], *fakeClock, *bytes.Buffer) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	return New[string](WithClock(clock.Now), WithLogger(logger)), clock, &logs
}

func collect(into *[]string) Handler[string] {
	return func(e string) ([]Pending[string], error) {
		*into = append(*into, e)
		return nil, nil
	}
}

func TestImmediateBeforeDelayed(t *testing.T) {
	s, clock, _ := newTest(t)
	s.Schedule("A")
	s.ScheduleAfter("B", time.Second)
	s.Schedule("C")

	var got []string
	if n := s.Process(collect(&got)); n != 2 {
		t.Fatalf("ran %d events, want 2", n)
	}
	if !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("order = %v, want [A C]", got)
	}

	clock.Advance(999 * time.Millisecond)
	s.Process(collect(&got))
	if len(got) != 2 {
		t.Fatalf("B fired early: %v", got)
	}
	clock.Advance(time.Millisecond)
	s.Process(collect(&got))
	if !reflect.DeepEqual(got, []string{"A", "C", "B"}) {
		t.Fatalf("order = %v, want [A C B]", got)
	}
}

func TestClearIsDeferred(t *testing.T) {
	s, clock, _ := newTest(t)
	s.Schedule("A")
	s.ScheduleAfter("B", time.Second)
	s.Schedule("C")
	s.Clear()
	s.Schedule("D")
	if s.Len() != 4 {
		t.Fatalf("len before process = %d, want 4", s.Len())
	}

	clock.Advance(2 * time.Second)
	var got []string
	if n := s.Process(collect(&got)); n != 0 || len(got) != 0 {
		t.Fatalf("cleared events ran: %v", got)
	}
	if s.Len() != 0 {
		t.Fatalf("len after clear = %d", s.Len())
	}

	s.Schedule("E")
	s.Process(collect(&got))
	if !reflect.DeepEqual(got, []string{"E"}) {
		t.Fatalf("after clear got %v, want [E]", got)
	}
}

func TestTimedTiesAreFIFO(t *testing.T) {
	s, clock, _ := newTest(t)
	for _, e := range []string{"x", "y", "z"} {
		s.ScheduleAfter(e, time.Second)
	}
	s.ScheduleAfter("early", 500*time.Millisecond)
	clock.Advance(time.Second)

	var got []string
	s.Process(collect(&got))
	if !reflect.DeepEqual(got, []string{"early", "x", "y", "z"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestHandlerErrorsAreLoggedAndSkipped(t *testing.T) {
	s, _, logs := newTest(t)
	s.Schedule("bad")
	s.Schedule("good")

	var got []string
	s.Process(func(e string) ([]Pending[string], error) {
		got = append(got, e)
		if e == "bad" {
			return nil, errors.New("boom")
		}
		return nil, nil
	})
	if !reflect.DeepEqual(got, []string{"bad", "good"}) {
		t.Fatalf("got %v", got)
	}
	if !strings.Contains(logs.String(), "boom") || !strings.Contains(logs.String(), "event=bad") {
		t.Fatalf("log = %q", logs.String())
	}
}

func TestFollowUpsRunOnLaterPasses(t *testing.T) {
	s, clock, _ := newTest(t)
	s.Schedule("start")

	var got []string
	chain := func(e string) ([]Pending[string], error) {
		got = append(got, e)
		switch e {
		case "start":
			return []Pending[string]{Now("next"), After("later", time.Second)}, nil
		case "next":
			return []Pending[string]{Now("again")}, nil
		}
		return nil, nil
	}

	if n := s.Process(chain); n != 1 {
		t.Fatalf("first pass ran %d", n)
	}
	s.Process(chain)
	s.Process(chain)
	if !reflect.DeepEqual(got, []string{"start", "next", "again"}) {
		t.Fatalf("got %v", got)
	}
	clock.Advance(time.Second)
	s.Process(chain)
	if got[len(got)-1] != "later" {
		t.Fatalf("delayed follow-up missing: %v", got)
	}
}

func TestReentrantUsePanics(t *testing.T) {
	calls := map[string]func(*Scheduler[string]){
		"schedule": func(s *Scheduler[string]) { s.Schedule("inner") },
		"clear":    func(s *Scheduler[string]) { s.Clear() },
		"process":  func(s *Scheduler[string]) { s.Process(collect(new([]string))) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			s, _, _ := newTest(t)
			s.Schedule("outer")
			defer func() {
				if r := recover(); r != ErrReentrant {
					t.Fatalf("recovered %v, want ErrReentrant", r)
				}
			}()
			s.Process(func(string) ([]Pending[string], error) {
				call(s)
				return nil, nil
			})
			t.Fatalf("no panic")
		})
	}
}

func TestClockIsReadBeforeEachEvent(t *testing.T) {
	s, clock, _ := newTest(t)
	s.Schedule("slow")
	s.ScheduleAfter("soon", 500*time.Millisecond)

	var got []string
	handle := func(e string) ([]Pending[string], error) {
		got = append(got, e)
		if e == "slow" {
			clock.Advance(time.Second)
			return []Pending[string]{After("tail", 2*time.Second)}, nil
		}
		return nil, nil
	}
	if n := s.Process(handle); n != 2 {
		t.Fatalf("ran %d events, want 2", n)
	}
	if !reflect.DeepEqual(got, []string{"slow", "soon"}) {
		t.Fatalf("got %v", got)
	}

	// The follow-up counts from when "slow" started, one second ago.
	if n := s.Process(handle); n != 0 {
		t.Fatalf("tail ran early")
	}
	clock.Advance(time.Second)
	if n := s.Process(handle); n != 1 || got[len(got)-1] != "tail" {
		t.Fatalf("tail missing: %v", got)
	}
}
