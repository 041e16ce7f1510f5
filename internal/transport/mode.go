// Package transport models the virtual tape-transport device: its modes,
// the legal moves between them and the tape position they drive.
package transport

import "strings"

// Mode is the operating state of the transport.
type Mode int

const (
	Ejected Mode = iota
	Loading
	Stopped
	Playing
	Paused
	FastForward
	Rewind
)

// Modes lists every mode in declaration order.
var Modes = []Mode{Ejected, Loading, Stopped, Playing, Paused, FastForward, Rewind}

func (m Mode) String() string {
	switch m {
	case Ejected:
		return "Ejected"
	case Loading:
		return "Loading"
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case FastForward:
		return "FastForward"
	case Rewind:
		return "Rewind"
	default:
		return "Unknown"
	}
}

// ParseMode resolves a mode by name, case-insensitively. Short command
// names (play, ff, rew, ...) are accepted too.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ejected", "eject":
		return Ejected, true
	case "loading", "load":
		return Loading, true
	case "stopped", "stop":
		return Stopped, true
	case "playing", "play":
		return Playing, true
	case "paused", "pause":
		return Paused, true
	case "fastforward", "ff", "fwd":
		return FastForward, true
	case "rewind", "rew":
		return Rewind, true
	}
	return 0, false
}

// transitions is the exhaustive move table. Any pair not listed is illegal.
var transitions = map[Mode][]Mode{
	Ejected:     {Loading},
	Loading:     {Stopped, Ejected},
	Stopped:     {Playing, FastForward, Rewind, Ejected},
	Playing:     {Paused, Stopped, FastForward, Rewind},
	Paused:      {Playing, Stopped, FastForward, Rewind},
	FastForward: {Stopped, Paused, Playing},
	Rewind:      {Stopped, Paused, Playing},
}

// CanTransition reports whether from -> to is a listed move.
func CanTransition(from, to Mode) bool {
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// Targets returns the modes reachable from from in one move.
func Targets(from Mode) []Mode {
	return append([]Mode{}, transitions[from]...)
}

// Speed is the tape speed multiplier of the mode.
func (m Mode) Speed() float64 {
	switch m {
	case Playing:
		return 1
	case FastForward:
		return 4
	case Rewind:
		return -4
	default:
		return 0
	}
}

// RequiresTape reports whether the mode is only valid with a tape loaded.
func (m Mode) RequiresTape() bool {
	return m != Ejected && m != Loading
}

// Label is the short deck readout for the mode.
func (m Mode) Label() string {
	switch m {
	case Ejected:
		return "█ NO TAPE"
	case Loading:
		return "⏬ LOADING"
	case Stopped:
		return "⏹ STOP"
	case Playing:
		return "⏵ PLAY"
	case Paused:
		return "▊ PAUSE"
	case FastForward:
		return "⏩ FWD"
	case Rewind:
		return "⏪ REW"
	default:
		return "! ERROR"
	}
}
