// Package scheduler is a single-threaded queue of immediate and delayed
// events, drained once per frame.
package scheduler

import (
	"container/heap"
	"errors"
	"log/slog"
	"time"
)

// ErrReentrant is the panic value raised when the scheduler is used from
// inside its own handler.
var ErrReentrant = errors.New("scheduler: re-entrant call")

// Pending is an event waiting to be queued. Untimed events are due at once.
type Pending[E any] struct {
	Event E
	Delay time.Duration
	Timed bool
}

func Now[E any](e E) Pending[E] { return Pending[E]{Event: e} }

func After[E any](e E, d time.Duration) Pending[E] {
	return Pending[E]{Event: e, Delay: d, Timed: true}
}

// Handler runs one due event and may return follow-ups. Follow-ups are
// queued after the current pass finishes.
type Handler[E any] func(E) ([]Pending[E], error)

type Option func(*options)

type options struct {
	clock  func() time.Time
	logger *slog.Logger
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type Scheduler[E any] struct {
	clock        func() time.Time
	logger       *slog.Logger
	queue        queue[E]
	seq          uint64
	pendingClear bool
	busy         bool
}

func New[E any](opts ...Option) *Scheduler[E] {
	o := options{clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Scheduler[E]{clock: o.clock, logger: o.logger}
}

// Schedule queues e as due immediately.
func (s *Scheduler[E]) Schedule(e E) {
	s.Enqueue(Now(e))
}

// ScheduleAfter queues e to fire once d has elapsed.
func (s *Scheduler[E]) ScheduleAfter(e E, d time.Duration) {
	s.Enqueue(After(e, d))
}

func (s *Scheduler[E]) Enqueue(p Pending[E]) {
	s.guard()
	s.push(p, s.clock())
}

func (s *Scheduler[E]) push(p Pending[E], now time.Time) {
	it := item[E]{event: p.Event, timed: p.Timed, seq: s.seq}
	if p.Timed {
		it.at = now.Add(p.Delay)
	}
	s.seq++
	heap.Push(&s.queue, it)
}

// Clear marks the queue for discard. The discard happens at the start of
// the next Process, so events scheduled in between are dropped too.
func (s *Scheduler[E]) Clear() {
	s.guard()
	s.pendingClear = true
}

// Len counts queued events, including ones a pending Clear will drop.
func (s *Scheduler[E]) Len() int { return s.queue.Len() }

// Process runs every event that is due and returns how many ran. The clock
// is read again before each event, so time spent in handlers can make more
// events due within the same pass. Handler errors are logged and do not stop
// the pass. Delayed follow-ups count from the moment their parent ran.
func (s *Scheduler[E]) Process(handle Handler[E]) int {
	s.guard()
	s.busy = true
	defer func() { s.busy = false }()

	if s.pendingClear {
		s.queue = s.queue[:0]
		s.pendingClear = false
	}

	type followUp struct {
		p   Pending[E]
		now time.Time
	}
	var followUps []followUp
	ran := 0
	for s.queue.Len() > 0 {
		now := s.clock()
		next := s.queue[0]
		if next.timed && next.at.After(now) {
			break
		}
		heap.Pop(&s.queue)
		ran++
		more, err := handle(next.event)
		if err != nil {
			s.logger.Error("event handler failed", "event", next.event, "err", err)
		}
		for _, p := range more {
			followUps = append(followUps, followUp{p: p, now: now})
		}
	}
	for _, f := range followUps {
		s.push(f.p, f.now)
	}
	return ran
}

func (s *Scheduler[E]) guard() {
	if s.busy {
		panic(ErrReentrant)
	}
}

type item[E any] struct {
	event E
	at    time.Time
	timed bool
	seq   uint64
}

// queue orders untimed events first, then by trigger time, then FIFO.
type queue[E any] []item[E]

func (q queue[E]) Len() int { return len(q) }

func (q queue[E]) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.timed != b.timed {
		return !a.timed
	}
	if a.timed && !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.seq < b.seq
}

func (q queue[E]) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue[E]) Push(x any) { *q = append(*q, x.(item[E])) }

func (q *queue[E]) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
