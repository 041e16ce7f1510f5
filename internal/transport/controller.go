package transport

import (
	"fmt"
	"math"
	"time"

	"tapedeck/internal/diagnostics"
	"tapedeck/internal/schedule"
)

const (
	source         = "transport"
	maxHistory     = 64
	taskLoad       = "load_complete"
	taskSettlePref = "deferred_mode:"
)

// Controller owns the transport state and enforces the mode table.
type Controller struct {
	state  *State
	config Config
	sched  *schedule.Scheduler
	scope  *schedule.Scope
	sink   diagnostics.Sink

	history []ModeChange
}

var _ Commander = (*Controller)(nil)

// NewController binds a controller to state. Deferred callbacks are
// scheduled on sched in a scope the controller owns.
func NewController(state *State, sched *schedule.Scheduler, sink diagnostics.Sink, config Config) *Controller {
	if sink == nil {
		sink = diagnostics.Discard
	}
	if config.FrameRate <= 0 {
		config.FrameRate = DefaultConfig().FrameRate
	}
	if config.LoadLatency < 0 {
		config.LoadLatency = 0
	}
	return &Controller{
		state:  state,
		config: config,
		sched:  sched,
		scope:  schedule.NewScope(source, sched),
		sink:   sink,
	}
}

// Snapshot returns a copy of the state.
func (c *Controller) Snapshot() State { return *c.state }

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.state.Mode }

// Position returns the tape position in seconds.
func (c *Controller) Position() float64 { return c.state.Position }

// Length returns the known tape length, zero when unknown.
func (c *Controller) Length() float64 { return c.config.Length }

// SetLength updates the known tape length and re-clamps the position.
func (c *Controller) SetLength(length float64) {
	if length < 0 || math.IsNaN(length) {
		length = 0
	}
	c.config.Length = length
	if c.state.TapeLoaded {
		c.state.Position = c.clamp(c.state.Position)
	}
}

// History returns the most recent accepted mode changes, oldest first.
func (c *Controller) History() []ModeChange {
	return append([]ModeChange{}, c.history...)
}

// PendingTasks returns the names of the controller's deferred callbacks
// that have not fired yet.
func (c *Controller) PendingTasks() []string {
	var names []string
	for _, t := range c.scope.Pending() {
		names = append(names, t.Name())
	}
	return names
}

// SetMode applies the mode table. An unlisted move is a no-op reported as
// a transition_rejected diagnostic. Moves to Loading and Ejected behave as
// LoadTape and Eject.
func (c *Controller) SetMode(target Mode) bool {
	from := c.state.Mode
	if !CanTransition(from, target) {
		c.reject(from, target)
		return false
	}
	switch target {
	case Loading:
		c.load()
	case Ejected:
		c.eject()
	default:
		c.apply(target, "set_mode")
	}
	return true
}

// Eject is valid from any mode. It resets the tape and cancels every
// pending deferred callback of this controller.
func (c *Controller) Eject() {
	c.eject()
}

// LoadTape starts loading. It is only valid from Ejected.
func (c *Controller) LoadTape() bool {
	return c.SetMode(Loading)
}

// SetPosition moves the tape to seconds, clamped to the tape bounds. It is
// rejected when no tape is loaded.
func (c *Controller) SetPosition(seconds float64) {
	if !c.state.TapeLoaded {
		c.emit(diagnostics.KindPositionRejected, "no tape loaded", diagnostics.Fields{
			"position": seconds,
			"mode":     c.state.Mode.String(),
		})
		return
	}
	c.state.Position = c.clamp(seconds)
}

// SetModeAfter schedules a SetMode(target) after delay. The command is
// owned by this controller and dropped by Eject.
func (c *Controller) SetModeAfter(delay time.Duration, target Mode) {
	c.scope.After(taskSettlePref+target.String(), delay, func() {
		c.SetMode(target)
	})
}

// SetTransition mirrors the navigation transition into the transport
// state. Progress is clamped to [0,1].
func (c *Controller) SetTransition(active bool, progress float64) {
	c.state.IsTransitioning = active
	if !active {
		c.state.TransitionProgress = 0
		return
	}
	c.state.TransitionProgress = clampUnit(progress)
}

// Tick advances the tape by delta at the current mode's speed. Rewind holds
// at the start of the tape without changing mode.
func (c *Controller) Tick(delta time.Duration) {
	speed := c.state.Mode.Speed()
	if speed == 0 || delta <= 0 || !c.state.TapeLoaded {
		return
	}
	c.state.Position = c.clamp(c.state.Position + delta.Seconds()*speed)
}

// Close releases the controller's deferred callbacks.
func (c *Controller) Close() {
	c.cancelled(c.scope.Release())
}

func (c *Controller) load() {
	c.state.TapeLoaded = true
	c.state.Position = 0
	c.apply(Loading, "load_tape")
	c.scope.After(taskLoad, c.config.LoadLatency, func() {
		if c.state.Mode != Loading {
			c.emit(diagnostics.KindLoadAborted, "load completion ignored", diagnostics.Fields{
				"mode": c.state.Mode.String(),
			})
			return
		}
		c.state.Position = 0
		c.apply(Stopped, taskLoad)
		c.emit(diagnostics.KindLoadComplete, "tape ready", nil)
	})
}

func (c *Controller) eject() {
	from := c.state.Mode
	c.cancelled(c.scope.CancelAll())
	c.state.TapeLoaded = false
	c.state.Position = 0
	c.state.IsTransitioning = false
	c.state.TransitionProgress = 0
	if from != Ejected {
		c.apply(Ejected, "eject")
	}
}

func (c *Controller) apply(to Mode, reason string) {
	from := c.state.Mode
	c.state.Mode = to
	c.history = append(c.history, ModeChange{From: from, To: to, Reason: reason, At: c.sched.Now()})
	if len(c.history) > maxHistory {
		c.history = append([]ModeChange{}, c.history[len(c.history)-maxHistory:]...)
	}
	c.emit(diagnostics.KindModeChange, fmt.Sprintf("%s -> %s", from, to), diagnostics.Fields{
		"from":   from.String(),
		"to":     to.String(),
		"reason": reason,
	})
}

func (c *Controller) reject(from, to Mode) {
	c.emit(diagnostics.KindTransitionRejected, fmt.Sprintf("illegal move %s -> %s", from, to), diagnostics.Fields{
		"from": from.String(),
		"to":   to.String(),
	})
}

func (c *Controller) cancelled(names []string) {
	for _, name := range names {
		c.emit(diagnostics.KindTaskCancelled, "deferred callback cancelled", diagnostics.Fields{"task": name})
	}
}

func (c *Controller) clamp(seconds float64) float64 {
	if seconds < 0 || math.IsNaN(seconds) {
		return 0
	}
	if c.config.Length > 0 && seconds > c.config.Length {
		return c.config.Length
	}
	return seconds
}

func (c *Controller) emit(kind diagnostics.Kind, msg string, fields diagnostics.Fields) {
	d := diagnostics.New(kind, source, msg, fields)
	d.At = c.sched.Now()
	c.sink.Emit(d)
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
