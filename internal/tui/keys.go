package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit   key.Binding
	Reload key.Binding
	Week   key.Binding
	Month  key.Binding
	Toggle key.Binding
	Help   key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Week: key.NewBinding(
		key.WithKeys("w", "7"),
		key.WithHelp("w", "7 days"),
	),
	Month: key.NewBinding(
		key.WithKeys("m", "3"),
		key.WithHelp("m", "30 days"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "toggle window"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Week, k.Month, k.Reload, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Week, k.Month, k.Toggle},
		{k.Reload, k.Help, k.Quit},
	}
}
