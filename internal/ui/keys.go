package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
	Stop   key.Binding
	Rerun  key.Binding
	Follow key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "left")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "right")),
	Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "open")),
	Back:   key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Stop:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Rerun:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run again")),
	Follow: key.NewBinding(key.WithKeys("f", "end"), key.WithHelp("f", "follow")),
}
