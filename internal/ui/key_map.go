package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	addTag  key.Binding
	delTag  key.Binding
	tags    key.Binding
	history key.Binding
	undo    key.Binding
	redo    key.Binding
	sync    key.Binding
	reload  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		addTag:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add tag")),
		delTag:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove tag")),
		tags:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tags")),
		history: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		undo:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		redo:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redo")),
		sync:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		reload:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.addTag, k.delTag, k.undo, k.redo, k.sync, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.addTag, k.delTag, k.tags, k.history},
		{k.undo, k.redo, k.sync, k.reload, k.quit},
	}
}
