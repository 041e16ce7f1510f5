package transport

import "time"

// State is the transport state. It is owned by one Controller; everything
// else reads copies.
type State struct {
	Mode               Mode
	TapeLoaded         bool
	Position           float64
	IsTransitioning    bool
	TransitionProgress float64
}

// NewState returns the initial state: ejected, no tape.
func NewState() *State {
	return &State{Mode: Ejected}
}

// Commander is the one-directional command surface the navigation layer
// drives the transport through. Implementations never call back.
type Commander interface {
	SetPosition(seconds float64)
	SetMode(target Mode) bool
	SetModeAfter(delay time.Duration, target Mode)
	SetTransition(active bool, progress float64)
}

// ModeChange records one accepted mode change.
type ModeChange struct {
	From   Mode
	To     Mode
	Reason string
	At     time.Duration
}

// Config holds transport tuning.
type Config struct {
	// LoadLatency is how long Loading lasts before the deck settles in Stopped.
	LoadLatency time.Duration
	// FrameRate is the frame count per second of the timecode readout.
	FrameRate int
	// Length is the tape length in seconds; zero means unknown.
	Length float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LoadLatency: 1200 * time.Millisecond,
		FrameRate:   30,
	}
}
