// Package deck wires the tape transport and the page navigation into one
// single-threaded session driven by a tick source.
package deck

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tapedeck/internal/config"
	"tapedeck/internal/diagnostics"
	"tapedeck/internal/navigation"
	"tapedeck/internal/pages"
	"tapedeck/internal/schedule"
	"tapedeck/internal/transport"
)

const source = "session"

var (
	// ErrTransitionInFlight is returned by operations that need an idle
	// navigation.
	ErrTransitionInFlight = errors.New("transition in flight")
	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("session closed")
)

// Options configures a Session.
type Options struct {
	Transport  transport.Config
	Navigation navigation.Config
	// Index defaults to pages.DefaultCatalog.
	Index pages.Index
	// InitialPage defaults to the first page of a catalog, or "index".
	InitialPage string
	Sink        diagnostics.Sink
}

// DefaultOptions returns options with default timings and the built-in
// catalog.
func DefaultOptions() Options {
	return Options{
		Transport:  transport.DefaultConfig(),
		Navigation: navigation.DefaultConfig(),
	}
}

// OptionsFromConfig maps the file configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Transport: transport.Config{
			LoadLatency: cfg.GetLoadLatency(),
			FrameRate:   cfg.Transport.FrameRate,
			Length:      cfg.Transport.Length,
		},
		Navigation: navigation.Config{
			Duration:        cfg.GetTransitionDuration(),
			WatchdogTimeout: cfg.GetWatchdogTimeout(),
			SettleDelay:     cfg.GetSettleDelay(),
			SeekAt:          cfg.Navigation.SeekAt,
			ArriveAt:        cfg.Navigation.ArriveAt,
		},
	}
}

type lengther interface {
	Length() float64
}

type firster interface {
	First() string
}

// Session owns both state structures, the scheduler and the two
// controllers. It is not safe for concurrent use; drive it from one
// goroutine (a schedule.Loop or a test).
type Session struct {
	id    string
	sched *schedule.Scheduler
	sink  diagnostics.Sink
	index pages.Index

	transportState  *transport.State
	navigationState *navigation.State
	transport       *transport.Controller
	nav             *navigation.Orchestrator

	fixedLength bool
	ticking     bool
	closed      bool
	unregister  func()
}

// New builds a session with an ejected transport resting on the initial
// page.
func New(opts Options) (*Session, error) {
	if opts.Index == nil {
		opts.Index = pages.DefaultCatalog()
	}
	if opts.InitialPage == "" {
		opts.InitialPage = "index"
		if f, ok := opts.Index.(firster); ok {
			opts.InitialPage = f.First()
		}
	}
	slot, err := opts.Index.PositionOf(opts.InitialPage)
	if err != nil {
		return nil, fmt.Errorf("initial page: %w", err)
	}
	if opts.Sink == nil {
		opts.Sink = diagnostics.Discard
	}

	s := &Session{
		id:          uuid.NewString(),
		sched:       schedule.NewScheduler(),
		index:       opts.Index,
		fixedLength: opts.Transport.Length > 0,
	}
	s.sink = diagnostics.WithFields(opts.Sink, diagnostics.Fields{"session": s.id})

	if !s.fixedLength {
		if l, ok := opts.Index.(lengther); ok {
			opts.Transport.Length = l.Length()
		}
	}

	s.transportState = transport.NewState()
	s.navigationState = navigation.NewState(opts.InitialPage, slot.Position)
	s.transport = transport.NewController(s.transportState, s.sched, s.sink, opts.Transport)
	s.nav = navigation.New(s.navigationState, opts.Index, s.transport, s.sched, s.sink, opts.Navigation)
	return s, nil
}

// ID returns the session id stamped on every diagnostic.
func (s *Session) ID() string { return s.id }

// Now returns the session clock.
func (s *Session) Now() time.Duration { return s.sched.Now() }

// Attach registers the session's tick handler with src. A session has at
// most one tick source.
func (s *Session) Attach(src schedule.TickSource) error {
	if s.closed {
		return ErrClosed
	}
	if s.unregister != nil {
		return schedule.ErrHandlerRegistered
	}
	unregister, err := src.Register(s.Tick)
	if err != nil {
		return err
	}
	s.unregister = unregister
	return nil
}

// Tick is the single per-frame path: the scheduler fires due callbacks,
// then the transport moves the tape, then the navigation syncs its
// transition. A frame that spans the arrival time is split there, so a
// long delta lands the transition before later callbacks such as the
// watchdog fire. Nested calls are dropped.
func (s *Session) Tick(delta time.Duration) {
	if s.closed {
		return
	}
	if s.ticking {
		s.emit(diagnostics.KindTickReentry, "nested tick dropped", diagnostics.Fields{"delta": delta.String()})
		return
	}
	s.ticking = true
	defer func() { s.ticking = false }()

	if at, ok := s.nav.ArrivalAt(); ok && at < s.sched.Now()+delta {
		lead := max(at-s.sched.Now(), 0)
		s.step(lead)
		delta -= lead
	}
	s.step(delta)
	s.syncLoading()
}

func (s *Session) step(delta time.Duration) {
	s.sched.Advance(delta)
	s.transport.Tick(delta)
	s.nav.Tick(delta)
}

// AdvanceClock moves only the scheduler clock, as if the frame source had
// stalled while time went on. Deferred callbacks still fire.
func (s *Session) AdvanceClock(delta time.Duration) {
	if s.closed {
		return
	}
	s.sched.Advance(delta)
	s.syncLoading()
}

// Dispatch applies one input intent. It reports whether the engine
// accepted it; rejections are reported as diagnostics.
func (s *Session) Dispatch(in Intent) bool {
	if s.closed {
		return false
	}
	defer s.syncLoading()

	switch in.Action {
	case ActionPlay:
		return s.transport.SetMode(transport.Playing)
	case ActionPause:
		return s.transport.SetMode(transport.Paused)
	case ActionStop:
		return s.transport.SetMode(transport.Stopped)
	case ActionFastForward:
		return s.transport.SetMode(transport.FastForward)
	case ActionRewind:
		return s.transport.SetMode(transport.Rewind)
	case ActionEject:
		s.nav.CancelTransition()
		s.transport.Eject()
		return true
	case ActionLoad:
		return s.transport.LoadTape()
	case ActionGoto:
		return s.nav.NavigateTo(in.PageID)
	case ActionJump:
		if in.ByPosition {
			return s.nav.JumpToPosition(in.Position)
		}
		return s.nav.JumpTo(in.PageID)
	case ActionBack:
		return s.nav.GoBack()
	case ActionForward:
		return s.nav.GoForward()
	case ActionNext:
		return s.nav.Next()
	case ActionPrev:
		return s.nav.Prev()
	default:
		return false
	}
}

// DispatchLine parses and dispatches one command line.
func (s *Session) DispatchLine(line string) (bool, error) {
	in, err := ParseIntent(line)
	if err != nil {
		return false, err
	}
	return s.Dispatch(in), nil
}

// ReplaceCatalog swaps the page index. It is refused while a transition
// is in flight or when the new index lacks the current page.
func (s *Session) ReplaceCatalog(index pages.Index) error {
	if s.closed {
		return ErrClosed
	}
	if !s.nav.Idle() {
		return ErrTransitionInFlight
	}
	current := s.navigationState.CurrentPageID
	if _, err := index.PositionOf(current); err != nil {
		return fmt.Errorf("current page %q: %w", current, err)
	}

	s.index = index
	s.nav.SetIndex(index)
	fields := diagnostics.Fields{"current": current}
	if l, ok := index.(lengther); ok && !s.fixedLength {
		s.transport.SetLength(l.Length())
		fields["length"] = l.Length()
	}
	s.emit(diagnostics.KindCatalogReloaded, "page catalog replaced", fields)
	return nil
}

// Index returns the page index in use.
func (s *Session) Index() pages.Index { return s.index }

// Snapshot is a value view of the session.
type Snapshot struct {
	ID         string
	Now        time.Duration
	Transport  transport.State
	Navigation navigation.State
	Display    string
	Label      string
	// Position is the interpolated display position during a transition
	// and the committed page position otherwise.
	Position     float64
	PendingTasks int
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:           s.id,
		Now:          s.sched.Now(),
		Transport:    s.transport.Snapshot(),
		Navigation:   s.nav.Snapshot(),
		Display:      s.transport.DisplayText(),
		Label:        s.transport.Label(),
		Position:     s.nav.InterpolatedPosition(),
		PendingTasks: s.sched.Pending(),
	}
}

// ModeHistory returns the recent accepted transport mode changes.
func (s *Session) ModeHistory() []transport.ModeChange { return s.transport.History() }

// Close releases every deferred callback and unregisters the tick
// handler. It is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.nav.Close()
	s.transport.Close()
	if s.unregister != nil {
		s.unregister()
		s.unregister = nil
	}
	s.closed = true
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed }

func (s *Session) syncLoading() {
	loading := s.transportState.Mode == transport.Loading
	if s.navigationState.IsLoading != loading {
		s.nav.SetLoading(loading)
	}
}

func (s *Session) emit(kind diagnostics.Kind, msg string, fields diagnostics.Fields) {
	d := diagnostics.New(kind, source, msg, fields)
	d.At = s.sched.Now()
	s.sink.Emit(d)
}
