// Package navigation turns page-level intents into timed transport
// transitions and keeps the back/forward history.
package navigation

import "time"

// TransitionState is the transition sub-state machine.
//
//	Idle -> Start -> Seek -> Arrive -> Idle (commit)
//
// with a forward and a backward family.
type TransitionState int

const (
	Idle TransitionState = iota
	FwdStart
	FwdSeek
	FwdArrive
	BwdStart
	BwdSeek
	BwdArrive
)

func (s TransitionState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case FwdStart:
		return "FwdStart"
	case FwdSeek:
		return "FwdSeek"
	case FwdArrive:
		return "FwdArrive"
	case BwdStart:
		return "BwdStart"
	case BwdSeek:
		return "BwdSeek"
	case BwdArrive:
		return "BwdArrive"
	default:
		return "Unknown"
	}
}

// Phase is the family-independent part of a transition state.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseStart
	PhaseSeek
	PhaseArrive
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseSeek:
		return "seek"
	case PhaseArrive:
		return "arrive"
	default:
		return "none"
	}
}

// Phase returns the phase of s.
func (s TransitionState) Phase() Phase {
	switch s {
	case FwdStart, BwdStart:
		return PhaseStart
	case FwdSeek, BwdSeek:
		return PhaseSeek
	case FwdArrive, BwdArrive:
		return PhaseArrive
	default:
		return PhaseNone
	}
}

// Backward reports whether s belongs to the backward family.
func (s TransitionState) Backward() bool {
	return s == BwdStart || s == BwdSeek || s == BwdArrive
}

func stateFor(backward bool, p Phase) TransitionState {
	if p == PhaseNone {
		return Idle
	}
	if backward {
		return BwdStart + TransitionState(p-PhaseStart)
	}
	return FwdStart + TransitionState(p-PhaseStart)
}

// Direction is how a transition was requested.
type Direction int

const (
	Forward Direction = iota
	Backward
	Jump
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Jump:
		return "jump"
	default:
		return "unknown"
	}
}

// State is the navigation state. It is owned by one Orchestrator.
type State struct {
	CurrentPageID   string
	CurrentPosition float64
	TargetPageID    string
	TargetPosition  float64
	Transition      TransitionState
	Progress        float64
	Direction       Direction
	History         []string
	HistoryIndex    int
	IsLoading       bool
}

// NewState returns the initial state with a one-entry history.
func NewState(initialPageID string, position float64) *State {
	return &State{
		CurrentPageID:   initialPageID,
		CurrentPosition: position,
		History:         []string{initialPageID},
	}
}

// Config holds the transition timings. Thresholds are fractions of
// Duration.
type Config struct {
	Duration        time.Duration
	WatchdogTimeout time.Duration
	SettleDelay     time.Duration
	SeekAt          float64
	ArriveAt        float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Duration:        1500 * time.Millisecond,
		WatchdogTimeout: 5000 * time.Millisecond,
		SettleDelay:     300 * time.Millisecond,
		SeekAt:          0.2,
		ArriveAt:        0.8,
	}
}
