package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Refresh      key.Binding
	SubmitDone   key.Binding
	SubmitQueued key.Binding
	SubmitReject key.Binding
	Copy         key.Binding
	Export       key.Binding
	Legend       key.Binding
	Help         key.Binding
	Dismiss      key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		SubmitDone:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "submit completed")),
		SubmitQueued: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "submit queued")),
		SubmitReject: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "submit rejected")),
		Copy:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Export:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export chart")),
		Legend:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "legend")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Dismiss:      key.NewBinding(key.WithKeys("enter", "esc"), key.WithHelp("enter", "dismiss")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.SubmitDone, k.SubmitQueued, k.SubmitReject, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Refresh},
		{k.SubmitDone, k.SubmitQueued, k.SubmitReject},
		{k.Copy, k.Export, k.Legend},
		{k.Help, k.Dismiss, k.Quit},
	}
}
