package race

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chart-race/internal/models"
	"chart-race/internal/scheduler"
)

const DefaultFrameDelay = 1500 * time.Millisecond

var (
	ErrNoFrames        = errors.New("race: dataset has no years")
	ErrIndexOutOfRange = errors.New("race: year index out of range")
	ErrStopped         = errors.New("race: sequencer is not running")
	ErrAlreadyRunning  = errors.New("race: sequencer already running")
)

// Renderer draws frames. It is called from the sequencer goroutine and must
// not block; slow work belongs on the renderer's own goroutines.
type Renderer interface {
	RenderFrame(ctx context.Context, frame Frame, diff Diff) error
}

type Option func(*Sequencer)

func WithClock(c scheduler.Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

func WithFrameDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithTopN(n int) Option {
	return func(s *Sequencer) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithObserver registers a callback for every published state. It runs on
// the sequencer goroutine and must not block.
func WithObserver(fn func(State)) Option {
	return func(s *Sequencer) { s.observers = append(s.observers, fn) }
}

// WithRunIDs replaces the play-through id generator.
func WithRunIDs(next func() string) Option {
	return func(s *Sequencer) { s.newRunID = next }
}

type request struct {
	cmd   Command
	reply chan State
}

// Sequencer walks the years of a dataset on a timer and hands one Frame per
// year to a Renderer. All state lives on the goroutine running Run; other
// goroutines talk to it through Send.
type Sequencer struct {
	groups    []YearGroup
	topN      int
	delay     time.Duration
	clock     scheduler.Clock
	renderer  Renderer
	newRunID  func() string
	observers []func(State)

	commands chan request
	ticks    chan uint64
	done     chan struct{}
	running  atomic.Bool

	// owned by the Run goroutine
	state   State
	pending scheduler.Timer
	visible []string
	runID   string

	mu        sync.RWMutex
	snapshot  State
	published bool
}

func New(tracks []models.Track, renderer Renderer, opts ...Option) *Sequencer {
	s := &Sequencer{
		groups:   GroupByYear(tracks),
		topN:     DefaultTopN,
		delay:    DefaultFrameDelay,
		clock:    scheduler.RealClock{},
		renderer: renderer,
		newRunID: uuid.NewString,
		commands: make(chan request),
		ticks:    make(chan uint64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run is the controller loop. It returns when ctx is cancelled.
func (s *Sequencer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.done)

	if len(s.groups) == 0 {
		log.Println("⚠️ Race: dataset is empty, play requests will be ignored")
	} else {
		log.Printf("🏁 Race ready: %d years, top %d, %v per frame", len(s.groups), s.topN, s.delay)
	}

	for {
		select {
		case <-ctx.Done():
			s.stopPending()
			return ctx.Err()
		case req := <-s.commands:
			s.handle(ctx, req.cmd)
			req.reply <- s.state
		case gen := <-s.ticks:
			s.tick(ctx, gen)
		}
	}
}

// Send delivers a command to the loop and returns the resulting state.
func (s *Sequencer) Send(ctx context.Context, cmd Command) (State, error) {
	req := request{cmd: cmd, reply: make(chan State, 1)}

	select {
	case s.commands <- req:
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-s.done:
		return State{}, ErrStopped
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (s *Sequencer) Play(ctx context.Context) (State, error)   { return s.Send(ctx, CommandPlay) }
func (s *Sequencer) Pause(ctx context.Context) (State, error)  { return s.Send(ctx, CommandPause) }
func (s *Sequencer) Toggle(ctx context.Context) (State, error) { return s.Send(ctx, CommandToggle) }
func (s *Sequencer) Reset(ctx context.Context) (State, error)  { return s.Send(ctx, CommandReset) }

// State returns the last published state. Safe from any goroutine.
func (s *Sequencer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Years lists the years in play order.
func (s *Sequencer) Years() []int {
	years := make([]int, len(s.groups))
	for i, g := range s.groups {
		years[i] = g.Year
	}
	return years
}

// YearCount is the number of frames in one play-through.
func (s *Sequencer) YearCount() int {
	return len(s.groups)
}

// Frame computes the frame for a year index. It has no side effects: the
// same index always yields the same frame.
func (s *Sequencer) Frame(index int) (Frame, error) {
	if len(s.groups) == 0 {
		return Frame{}, ErrNoFrames
	}
	if index < 0 || index >= len(s.groups) {
		return Frame{}, ErrIndexOutOfRange
	}

	g := s.groups[index]
	return Frame{
		Year:      g.Year,
		YearIndex: index,
		YearCount: len(s.groups),
		Tracks:    TopN(g.Tracks, s.topN),
		Final:     index == len(s.groups)-1,
	}, nil
}

func (s *Sequencer) handle(ctx context.Context, cmd Command) {
	commandsTotal.WithLabelValues(cmd.String()).Inc()

	next, emit := s.state.Apply(cmd, len(s.groups))
	if next.Generation != s.state.Generation {
		s.stopPending()
	}
	if cmd == CommandReset {
		s.visible = nil
	}

	switch {
	case emit:
		log.Printf("▶️  Race: %s, restarting from %d", cmd, s.groups[0].Year)
	case cmd == CommandReset:
		log.Println("⏹️  Race: reset")
	case next.Playing != s.state.Playing:
		log.Printf("⏸️  Race: paused at year index %d", next.YearIndex)
	case len(s.groups) == 0 && (cmd == CommandPlay || cmd == CommandToggle):
		log.Println("⚠️ Race: nothing to play, dataset is empty")
	}

	s.state = next
	if emit {
		s.runID = s.newRunID()
		s.emit(ctx)
	}
	s.publish()
}

func (s *Sequencer) tick(ctx context.Context, gen uint64) {
	next, ok := s.state.Advance(gen, len(s.groups))
	if !ok {
		if gen != s.state.Generation || !s.state.Playing {
			staleTicks.Inc()
		}
		s.state = next
		s.publish()
		return
	}
	s.pending = nil
	s.state = next
	s.emit(ctx)
	s.publish()
}

// emit renders the frame at the current year index. The next advance is
// scheduled before rendering so it is already pending once the renderer sees
// the frame.
func (s *Sequencer) emit(ctx context.Context) {
	frame, err := s.Frame(s.state.YearIndex)
	if err != nil {
		log.Printf("⚠️ Race: %v", err)
		return
	}
	frame.RunID = s.runID

	if frame.Final {
		s.state = s.state.Finish()
		log.Printf("🏁 Race: finished at %d", frame.Year)
	} else {
		s.schedule(s.state.Generation)
	}
	s.publish()

	keys := frame.Keys()
	diff := Reconcile(s.visible, keys)
	s.visible = keys

	framesEmitted.Inc()
	currentYearIndex.Set(float64(frame.YearIndex))

	if s.renderer == nil {
		return
	}
	if err := s.renderer.RenderFrame(ctx, frame, diff); err != nil {
		renderErrors.Inc()
		log.Printf("❌ Race: render %d failed: %v", frame.Year, err)
	}
}

func (s *Sequencer) schedule(gen uint64) {
	s.pending = s.clock.AfterFunc(s.delay, func() {
		select {
		case s.ticks <- gen:
		case <-s.done:
		}
	})
}

func (s *Sequencer) stopPending() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Sequencer) publish() {
	s.mu.Lock()
	changed := !s.published || s.snapshot != s.state
	s.snapshot = s.state
	s.published = true
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range s.observers {
		fn(s.state)
	}
}
