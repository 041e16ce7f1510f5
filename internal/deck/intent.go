package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is what an input intent asks for.
type Action int

const (
	ActionPlay Action = iota
	ActionPause
	ActionStop
	ActionFastForward
	ActionRewind
	ActionEject
	ActionLoad
	ActionGoto
	ActionJump
	ActionBack
	ActionForward
	ActionNext
	ActionPrev
)

var actionNames = map[Action]string{
	ActionPlay:        "play",
	ActionPause:       "pause",
	ActionStop:        "stop",
	ActionFastForward: "ff",
	ActionRewind:      "rew",
	ActionEject:       "eject",
	ActionLoad:        "load",
	ActionGoto:        "goto",
	ActionJump:        "jump",
	ActionBack:        "back",
	ActionForward:     "forward",
	ActionNext:        "next",
	ActionPrev:        "prev",
}

var actionAliases = map[string]Action{
	"fastforward": ActionFastForward,
	"fwd":         ActionFastForward,
	"rewind":      ActionRewind,
	"navigate":    ActionGoto,
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Intent is one input event. PageID is set for goto and page jumps,
// Position for positional jumps.
type Intent struct {
	Action   Action
	PageID   string
	Position float64
	// ByPosition marks a jump to Position rather than PageID.
	ByPosition bool
}

func (i Intent) String() string {
	switch {
	case i.Action == ActionGoto:
		return "goto " + i.PageID
	case i.Action == ActionJump && i.ByPosition:
		return "jump " + strconv.FormatFloat(i.Position, 'f', -1, 64)
	case i.Action == ActionJump:
		return "jump " + i.PageID
	default:
		return i.Action.String()
	}
}

// ParseIntent parses one command line such as "play", "goto work" or
// "jump 150".
func ParseIntent(line string) (Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Intent{}, fmt.Errorf("empty command")
	}

	action, ok := lookupAction(strings.ToLower(fields[0]))
	if !ok {
		return Intent{}, fmt.Errorf("unknown command %q", fields[0])
	}
	args := fields[1:]

	switch action {
	case ActionGoto:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("usage: goto <page>")
		}
		return Intent{Action: action, PageID: args[0]}, nil
	case ActionJump:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("usage: jump <seconds|page>")
		}
		if pos, err := strconv.ParseFloat(args[0], 64); err == nil {
			return Intent{Action: action, Position: pos, ByPosition: true}, nil
		}
		return Intent{Action: action, PageID: args[0]}, nil
	default:
		if len(args) != 0 {
			return Intent{}, fmt.Errorf("%s takes no arguments", action)
		}
		return Intent{Action: action}, nil
	}
}

func lookupAction(word string) (Action, bool) {
	for a, name := range actionNames {
		if name == word {
			return a, true
		}
	}
	a, ok := actionAliases[word]
	return a, ok
}
