package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Auto    key.Binding
	Scale   key.Binding
	Manual  key.Binding
	Dismiss key.Binding
	Refresh key.Binding

	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Submit key.Binding
	Close  key.Binding

	Yes key.Binding
	No  key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Auto:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto fix")),
	Scale:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scale")),
	Manual:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "manual")),
	Dismiss: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "select")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "execute")),
	Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),

	Yes: key.NewBinding(key.WithKeys("y", "Y", "enter"), key.WithHelp("y", "confirm")),
	No:  key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "cancel")),
}

// mainHelp, modalHelp and confirmHelp adapt the bindings of each screen to help.KeyMap.
type mainHelp struct{}

func (mainHelp) ShortHelp() []key.Binding {
	return []key.Binding{keys.Auto, keys.Manual, keys.Scale, keys.Dismiss, keys.Refresh, keys.Quit}
}

func (h mainHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

type modalHelp struct{}

func (modalHelp) ShortHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Down, keys.Toggle, keys.Submit, keys.Close}
}

func (h modalHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

type confirmHelp struct{}

func (confirmHelp) ShortHelp() []key.Binding { return []key.Binding{keys.Yes, keys.No} }

func (h confirmHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }
