package navigation

import (
	"fmt"
	"math"
	"time"

	"tapedeck/internal/diagnostics"
	"tapedeck/internal/pages"
	"tapedeck/internal/schedule"
	"tapedeck/internal/transport"
)

const (
	source       = "navigation"
	taskWatchdog = "watchdog"
)

// Orchestrator owns the navigation state. It drives the transport one way,
// through a transport.Commander, and never reads transport state back.
type Orchestrator struct {
	state     *State
	config    Config
	index     pages.Index
	transport transport.Commander
	sched     *schedule.Scheduler
	scope     *schedule.Scope
	sink      diagnostics.Sink

	startedAt time.Duration
	watchdog  *schedule.Task
}

// New binds an orchestrator to state.
func New(state *State, index pages.Index, cmd transport.Commander, sched *schedule.Scheduler, sink diagnostics.Sink, config Config) *Orchestrator {
	if sink == nil {
		sink = diagnostics.Discard
	}
	def := DefaultConfig()
	if config.SeekAt <= 0 || config.ArriveAt <= config.SeekAt || config.ArriveAt > 1 {
		config.SeekAt, config.ArriveAt = def.SeekAt, def.ArriveAt
	}
	if config.WatchdogTimeout <= 0 {
		config.WatchdogTimeout = def.WatchdogTimeout
	}
	// The watchdog fires strictly after arrival.
	if config.WatchdogTimeout <= config.Duration {
		config.WatchdogTimeout = config.Duration + def.WatchdogTimeout - def.Duration
	}
	if config.SettleDelay < 0 {
		config.SettleDelay = 0
	}
	if len(state.History) == 0 {
		state.History = []string{state.CurrentPageID}
		state.HistoryIndex = 0
	}
	return &Orchestrator{
		state:     state,
		config:    config,
		index:     index,
		transport: cmd,
		sched:     sched,
		scope:     schedule.NewScope(source, sched),
		sink:      sink,
	}
}

// Snapshot returns a copy of the state. The history slice is copied too.
func (o *Orchestrator) Snapshot() State {
	s := *o.state
	s.History = append([]string{}, o.state.History...)
	return s
}

// Config returns the timings in use.
func (o *Orchestrator) Config() Config { return o.config }

// SetIndex swaps the page index. Callers only do this while Idle.
func (o *Orchestrator) SetIndex(index pages.Index) { o.index = index }

// Idle reports whether no transition is in flight.
func (o *Orchestrator) Idle() bool { return o.state.Transition == Idle }

// ArrivalAt returns the scheduler time at which the transition in flight
// reaches full progress.
func (o *Orchestrator) ArrivalAt() (time.Duration, bool) {
	if o.Idle() {
		return 0, false
	}
	return o.startedAt + o.config.Duration, true
}

func (o *Orchestrator) CanGoBack() bool { return o.state.HistoryIndex > 0 }

func (o *Orchestrator) CanGoForward() bool {
	return o.state.HistoryIndex < len(o.state.History)-1
}

// SetLoading mirrors the tape loading flag.
func (o *Orchestrator) SetLoading(loading bool) { o.state.IsLoading = loading }

// NavigateTo requests a forward transition to pageID, pushing it onto the
// history. Requests for the current page are ignored; requests while a
// transition is in flight are dropped.
func (o *Orchestrator) NavigateTo(pageID string) bool {
	return o.request(pageID, Forward)
}

// JumpTo is NavigateTo with the transition family chosen by tape position.
func (o *Orchestrator) JumpTo(pageID string) bool {
	return o.request(pageID, Jump)
}

// JumpToPosition jumps to the page whose slot contains seconds.
func (o *Orchestrator) JumpToPosition(seconds float64) bool {
	id, ok := o.index.PageAt(seconds)
	if !ok {
		o.emit(diagnostics.KindLookupFailed, "no page at position", diagnostics.Fields{"position": seconds})
		return false
	}
	return o.JumpTo(id)
}

// Next navigates to the page after the current one.
func (o *Orchestrator) Next() bool {
	_, next := o.index.Adjacent(o.state.CurrentPageID)
	if next == "" {
		o.reject("next", "no next page", nil)
		return false
	}
	return o.NavigateTo(next)
}

// Prev navigates to the page before the current one.
func (o *Orchestrator) Prev() bool {
	prev, _ := o.index.Adjacent(o.state.CurrentPageID)
	if prev == "" {
		o.reject("prev", "no previous page", nil)
		return false
	}
	return o.NavigateTo(prev)
}

// GoBack moves one step back in the history.
func (o *Orchestrator) GoBack() bool {
	if !o.CanGoBack() {
		o.reject("back", "history start", nil)
		return false
	}
	return o.step(-1, Backward)
}

// GoForward moves one step forward in the history.
func (o *Orchestrator) GoForward() bool {
	if !o.CanGoForward() {
		o.reject("forward", "history end", nil)
		return false
	}
	return o.step(+1, Forward)
}

func (o *Orchestrator) request(pageID string, dir Direction) bool {
	if pageID == o.state.CurrentPageID {
		return false
	}
	if !o.Idle() {
		o.reject(dir.String(), "transition in flight", diagnostics.Fields{"page": pageID})
		return false
	}
	slot, err := o.index.PositionOf(pageID)
	if err != nil {
		o.emit(diagnostics.KindLookupFailed, err.Error(), diagnostics.Fields{"page": pageID})
		return false
	}
	h := o.state.History[:o.state.HistoryIndex+1]
	o.state.History = append(h, pageID)
	o.state.HistoryIndex = len(o.state.History) - 1
	return o.StartTransition(pageID, slot.Position, dir)
}

func (o *Orchestrator) step(delta int, dir Direction) bool {
	if !o.Idle() {
		o.reject(dir.String(), "transition in flight", nil)
		return false
	}
	idx := o.state.HistoryIndex + delta
	pageID := o.state.History[idx]
	if pageID == o.state.CurrentPageID {
		o.state.HistoryIndex = idx
		return true
	}
	slot, err := o.index.PositionOf(pageID)
	if err != nil {
		o.emit(diagnostics.KindLookupFailed, err.Error(), diagnostics.Fields{"page": pageID})
		return false
	}
	o.state.HistoryIndex = idx
	return o.StartTransition(pageID, slot.Position, dir)
}

// StartTransition begins a transition toward target at position. It does
// not touch the history.
func (o *Orchestrator) StartTransition(target string, position float64, dir Direction) bool {
	if !o.Idle() {
		o.reject(dir.String(), "transition in flight", diagnostics.Fields{"page": target})
		return false
	}
	if target == "" {
		o.reject(dir.String(), "empty target", nil)
		return false
	}
	backward := dir == Backward || (dir == Jump && position < o.state.CurrentPosition)
	o.state.TargetPageID = target
	o.state.TargetPosition = position
	o.state.Direction = dir
	o.state.Transition = stateFor(backward, PhaseStart)
	o.state.Progress = 0
	o.startedAt = o.sched.Now()
	o.watchdog = o.scope.After(taskWatchdog, o.config.WatchdogTimeout, o.expire)
	o.transport.SetTransition(true, 0)
	o.emit(diagnostics.KindTransitionStarted, fmt.Sprintf("%s -> %s", o.state.CurrentPageID, target), diagnostics.Fields{
		"from":      o.state.CurrentPageID,
		"to":        target,
		"direction": dir.String(),
		"state":     o.state.Transition.String(),
	})
	return true
}

// Tick syncs the transition with the scheduler clock. It matches
// schedule.TickFunc; progress comes from the clock, not from delta.
func (o *Orchestrator) Tick(time.Duration) {
	if o.Idle() {
		return
	}
	elapsed := o.sched.Now() - o.startedAt
	progress := 1.0
	if o.config.Duration > 0 {
		progress = math.Min(1, float64(elapsed)/float64(o.config.Duration))
	}
	if progress > o.state.Progress {
		o.state.Progress = progress
	}
	o.advancePhase(o.phaseFor(o.state.Progress))

	if o.state.Progress < 1 {
		o.transport.SetTransition(true, o.state.Progress)
		return
	}
	o.transport.SetPosition(o.state.TargetPosition)
	o.transport.SetMode(transport.Playing)
	o.transport.SetModeAfter(o.config.SettleDelay, transport.Paused)
	o.CompleteTransition()
}

func (o *Orchestrator) phaseFor(progress float64) Phase {
	switch {
	case progress >= o.config.ArriveAt:
		return PhaseArrive
	case progress >= o.config.SeekAt:
		return PhaseSeek
	default:
		return PhaseStart
	}
}

func (o *Orchestrator) advancePhase(p Phase) {
	if p <= o.state.Transition.Phase() {
		return
	}
	from := o.state.Transition
	o.state.Transition = stateFor(from.Backward(), p)
	o.emit(diagnostics.KindTransitionPhase, p.String(), diagnostics.Fields{
		"from":     from.String(),
		"to":       o.state.Transition.String(),
		"progress": o.state.Progress,
	})
}

// InterpolatedPosition is the display position between the committed and
// target positions. It is never committed.
func (o *Orchestrator) InterpolatedPosition() float64 {
	if o.Idle() {
		return o.state.CurrentPosition
	}
	cur, target := o.state.CurrentPosition, o.state.TargetPosition
	return cur + (target-cur)*o.state.Progress
}

// CompleteTransition commits the target as the current page.
func (o *Orchestrator) CompleteTransition() bool {
	if o.Idle() {
		return false
	}
	from := o.state.CurrentPageID
	o.state.CurrentPageID = o.state.TargetPageID
	o.state.CurrentPosition = o.state.TargetPosition
	o.settleHistory(o.state.CurrentPageID)
	o.clear()
	o.emit(diagnostics.KindTransitionCompleted, fmt.Sprintf("arrived at %s", o.state.CurrentPageID), diagnostics.Fields{
		"from":     from,
		"to":       o.state.CurrentPageID,
		"position": o.state.CurrentPosition,
	})
	return true
}

// CancelTransition abandons the transition. History and the committed
// page are left alone.
func (o *Orchestrator) CancelTransition() bool {
	if o.Idle() {
		return false
	}
	target := o.state.TargetPageID
	o.clear()
	o.emit(diagnostics.KindTransitionCancelled, "transition cancelled", diagnostics.Fields{"target": target})
	return true
}

// Close releases the orchestrator's deferred callbacks.
func (o *Orchestrator) Close() {
	for _, name := range o.scope.Release() {
		o.emit(diagnostics.KindTaskCancelled, "deferred callback cancelled", diagnostics.Fields{"task": name})
	}
}

func (o *Orchestrator) expire() {
	if o.Idle() {
		return
	}
	target := o.state.TargetPageID
	progress := o.state.Progress
	o.watchdog = nil
	o.CancelTransition()
	o.transport.SetMode(transport.Stopped)
	o.emit(diagnostics.KindWatchdogCancel, "transition timed out", diagnostics.Fields{
		"target":   target,
		"progress": progress,
		"timeout":  o.config.WatchdogTimeout.String(),
	})
}

func (o *Orchestrator) clear() {
	o.state.TargetPageID = ""
	o.state.TargetPosition = 0
	o.state.Transition = Idle
	o.state.Progress = 0
	o.watchdog.Cancel()
	o.watchdog = nil
	o.transport.SetTransition(false, 0)
}

// settleHistory makes History[HistoryIndex] equal page and collapses
// repeated copies of it directly behind the index.
func (o *Orchestrator) settleHistory(page string) {
	h, i := o.state.History, o.state.HistoryIndex
	if i < 0 || i >= len(h) {
		h = append(h, page)
		i = len(h) - 1
	}
	h[i] = page
	for i > 0 && h[i-1] == page {
		h = append(h[:i], h[i+1:]...)
		i--
	}
	o.state.History, o.state.HistoryIndex = h, i
}

func (o *Orchestrator) reject(op, reason string, fields diagnostics.Fields) {
	f := diagnostics.Fields{"op": op, "reason": reason}
	for k, v := range fields {
		f[k] = v
	}
	o.emit(diagnostics.KindNavigationRejected, reason, f)
}

func (o *Orchestrator) emit(kind diagnostics.Kind, msg string, fields diagnostics.Fields) {
	d := diagnostics.New(kind, source, msg, fields)
	d.At = o.sched.Now()
	o.sink.Emit(d)
}
