// Package echoes drives a card chain against an audio backend: it validates
// chain updates, compiles playable chains into batches and keeps the backend
// scheduled ahead of its clock from a cooperative frame loop.
package echoes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amenocturne/infinite-echoes/internal/compiler"
	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/scheduler"
	"github.com/amenocturne/infinite-echoes/internal/synth"
)

// Backend executes compiled batches. Now is the clock that batch start
// times refer to.
type Backend interface {
	Now() time.Duration
	Execute(compiler.Batch) error
	StopAll() error
}

type EventKind int

const (
	EventUpdateChain EventKind = iota
	EventPlay
	EventStop
	EventRefill
)

func (k EventKind) String() string {
	switch k {
	case EventUpdateChain:
		return "update-chain"
	case EventPlay:
		return "play"
	case EventStop:
		return "stop"
	case EventRefill:
		return "refill"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is what the player queues on its scheduler. Refills carry the
// generation they were issued under and the backend time they start at.
type Event struct {
	Kind       EventKind
	Generation uint64
	At         time.Duration
}

func (e Event) String() string {
	if e.Kind == EventRefill {
		return fmt.Sprintf("refill(gen=%d at=%v)", e.Generation, e.At)
	}
	return e.Kind.String()
}

// NoticeKind tags what Watch reports.
type NoticeKind int

const (
	NoticeBatch NoticeKind = iota
	NoticeIdle
	NoticeChainRejected
	NoticeStopped
	NoticeBackendError
)

type Notice struct {
	Kind       NoticeKind
	Generation uint64
	Commands   int
	Start      time.Duration
	End        time.Duration
	Err        error
}

var ErrNotPlayable = errors.New("chain is not playable")

type Option func(*playerConfig)

type playerConfig struct {
	engine compiler.Config
	logger *slog.Logger
	clock  func() time.Time
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{engine: compiler.DefaultConfig(), logger: slog.Default(), clock: time.Now}
}

func WithConfig(cfg compiler.Config) Option {
	return func(c *playerConfig) {
		c.engine = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *playerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the wall clock that delayed events are measured against.
func WithClock(clock func() time.Time) Option {
	return func(c *playerConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

type Player struct {
	mu         sync.Mutex
	backend    Backend
	cfg        compiler.Config
	logger     *slog.Logger
	sched      *scheduler.Scheduler[Event]
	comp       *compiler.Compiler
	chain      []graph.Node
	current    *graph.Graph
	playing    bool
	generation uint64
	last       compiler.Batch
	noticeCh   chan Notice
	noticeMu   sync.Mutex
}

func NewPlayer(backend Backend, opts ...Option) (*Player, error) {
	if backend == nil {
		return nil, errors.New("backend must not be nil")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.engine.Validate(); err != nil {
		return nil, err
	}
	return &Player{
		backend: backend,
		cfg:     cfg.engine,
		logger:  cfg.logger,
		sched:   scheduler.New[Event](scheduler.WithClock(cfg.clock), scheduler.WithLogger(cfg.logger)),
		comp:    compiler.New(cfg.engine),
	}, nil
}

// SetChain replaces the card chain. The change is applied on the next frame:
// a playable chain replaces the current one and restarts playback if it was
// running; an unplayable one is ignored and leaves playback as it is.
func (p *Player) SetChain(nodes []graph.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chain = append([]graph.Node(nil), nodes...)
	p.sched.Schedule(Event{Kind: EventUpdateChain})
}

// Play starts playback of the current chain on the next frame.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.Schedule(Event{Kind: EventPlay})
}

// StopAfter queues a stop once d has elapsed.
func (p *Player) StopAfter(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.ScheduleAfter(Event{Kind: EventStop}, d)
}

// Stop halts playback at once. Everything queued on the scheduler,
// including events queued before the next frame, is discarded.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sched.Clear()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	p.playing = false
	p.generation++
	p.comp.Reset()
	p.sendNotice(Notice{Kind: NoticeStopped, Generation: p.generation})
	if err := p.backend.StopAll(); err != nil {
		return fmt.Errorf("stop backend: %w", err)
	}
	return nil
}

// Frame runs one scheduler pass and returns how many events ran.
func (p *Player) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comp.Sweep(p.backend.Now())
	return p.sched.Process(p.handle)
}

// Run calls Frame every interval until ctx is done.
func (p *Player) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.Frame()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Frame()
		}
	}
}

func (p *Player) handle(e Event) ([]scheduler.Pending[Event], error) {
	switch e.Kind {
	case EventUpdateChain:
		g, ok := graph.New(p.chain)
		if !ok {
			p.logger.Debug("chain rejected", "cards", len(p.chain))
			p.sendNotice(Notice{Kind: NoticeChainRejected, Generation: p.generation})
			return nil, nil
		}
		p.current = g
		if !p.playing {
			return nil, nil
		}
		return p.restart()
	case EventPlay:
		g, ok := graph.New(p.chain)
		if !ok {
			p.logger.Debug("nothing playable", "cards", len(p.chain))
			p.sendNotice(Notice{Kind: NoticeChainRejected, Generation: p.generation})
			return nil, nil
		}
		p.current = g
		p.playing = true
		return p.restart()
	case EventStop:
		return nil, p.stopLocked()
	case EventRefill:
		if !p.playing || e.Generation != p.generation {
			p.logger.Debug("stale refill dropped", "event", e, "generation", p.generation)
			return nil, nil
		}
		return p.dispatch(e.At)
	}
	return nil, fmt.Errorf("unknown event %v", e)
}

// restart silences whatever the backend still holds and starts the current
// graph from the backend's present time.
func (p *Player) restart() ([]scheduler.Pending[Event], error) {
	p.generation++
	p.comp.Reset()
	if err := p.backend.StopAll(); err != nil {
		return nil, fmt.Errorf("stop backend: %w", err)
	}
	return p.dispatch(p.backend.Now())
}

// dispatch compiles one window starting at start, hands it to the backend
// and schedules the refill for the window that follows.
func (p *Player) dispatch(start time.Duration) ([]scheduler.Pending[Event], error) {
	batch := p.comp.Compile(p.current, start)
	p.last = batch
	if batch.Empty() {
		p.logger.Debug("nothing to schedule", "generation", p.generation)
		p.sendNotice(Notice{Kind: NoticeIdle, Generation: p.generation, Start: batch.Start, End: batch.End})
		return nil, nil
	}
	if err := p.backend.Execute(batch); err != nil {
		p.sendNotice(Notice{Kind: NoticeBackendError, Generation: p.generation, Err: err})
		if !errors.Is(err, synth.ErrVoiceLimit) {
			if stopErr := p.stopLocked(); stopErr != nil {
				err = errors.Join(err, stopErr)
			}
			return nil, fmt.Errorf("execute batch: %w", err)
		}
		// Part of the batch is sounding; keep the loop going.
		p.logger.Warn("batch truncated", "generation", p.generation, "err", err)
	}
	p.logger.Debug("batch dispatched",
		"generation", p.generation,
		"commands", len(batch.Play),
		"start", batch.Start,
		"end", batch.End,
	)
	p.sendNotice(Notice{
		Kind:       NoticeBatch,
		Generation: p.generation,
		Commands:   len(batch.Play),
		Start:      batch.Start,
		End:        batch.End,
	})

	delay := batch.End - p.backend.Now() - p.cfg.Window()/2
	if delay < 0 {
		delay = 0
	}
	refill := Event{Kind: EventRefill, Generation: p.generation, At: batch.End}
	return []scheduler.Pending[Event]{scheduler.After(refill, delay)}, nil
}

func (p *Player) sendNotice(n Notice) {
	p.noticeMu.Lock()
	ch := p.noticeCh
	p.noticeMu.Unlock()
	if ch != nil {
		select {
		case ch <- n:
		default:
			// Channel full; drop notice
		}
	}
}

// Watch returns a channel of playback notices. Notices are dropped when
// the channel is full. A later call replaces the previous channel.
func (p *Player) Watch() <-chan Notice {
	ch := make(chan Notice, 16)
	p.noticeMu.Lock()
	p.noticeCh = ch
	p.noticeMu.Unlock()
	return ch
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Current is the graph that plays or would play next.
func (p *Player) Current() *graph.Graph {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// LastBatch is the most recently compiled batch.
func (p *Player) LastBatch() compiler.Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Player) ActiveVoices() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.comp.Active()
}

func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.Len()
}

func (p *Player) Config() compiler.Config { return p.cfg }
