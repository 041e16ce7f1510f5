package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap binds keys to deck intents.
type KeyMap struct {
	PlayPause key.Binding
	Stop      key.Binding
	Forward   key.Binding
	Rewind    key.Binding
	Eject     key.Binding
	Load      key.Binding
	Next      key.Binding
	Prev      key.Binding
	Back      key.Binding
	Ahead     key.Binding
	Page      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		PlayPause: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Forward:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "ff")),
		Rewind:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "rew")),
		Eject:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "eject")),
		Load:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "load")),
		Next:      key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next page")),
		Prev:      key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "prev page")),
		Back:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "back")),
		Ahead:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "forward")),
		Page: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "go to page"),
		),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Next, k.Prev, k.Page, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Stop, k.Forward, k.Rewind},
		{k.Load, k.Eject},
		{k.Next, k.Prev, k.Page, k.Back, k.Ahead},
		{k.Help, k.Quit},
	}
}
