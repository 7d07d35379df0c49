package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/itsbohara/anchor/internal/nav"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Terminal key.Binding
	Editor   key.Binding
	Copy     key.Binding
	Reveal   key.Binding
	Dismiss  key.Binding
	Next     key.Binding
	Prev     key.Binding
	New      key.Binding
	Save     key.Binding
	Left     key.Binding
	Right    key.Binding
	Suspend  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "ctrl+j"), key.WithHelp("↓", "down")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Terminal: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "terminal")),
	Editor:   key.NewBinding(key.WithKeys("alt+enter", "ctrl+e"), key.WithHelp("ctrl+e", "editor")),
	Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy path")),
	Reveal:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reveal")),
	Dismiss:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
	New:      key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
	Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	Left:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev option")),
	Right:    key.NewBinding(key.WithKeys("right", " "), key.WithHelp("←/→", "change option")),
	Suspend:  key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "suspend")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// navKey translates a key press into a navigation machine input. ok is
// false for keys the machine does not handle.
func navKey(msg tea.KeyMsg) (k nav.Key, mod nav.Modifiers, ok bool) {
	switch {
	case key.Matches(msg, keys.Up):
		return nav.KeyUp, mod, true
	case key.Matches(msg, keys.Down):
		return nav.KeyDown, mod, true
	case key.Matches(msg, keys.Terminal):
		return nav.KeyEnter, nav.Modifiers{Primary: true}, true
	case key.Matches(msg, keys.Editor):
		return nav.KeyEnter, nav.Modifiers{Secondary: true}, true
	case key.Matches(msg, keys.Open):
		return nav.KeyEnter, mod, true
	case key.Matches(msg, keys.Dismiss):
		return nav.KeyEscape, mod, true
	case key.Matches(msg, keys.Next):
		return nav.KeyTab, mod, true
	case key.Matches(msg, keys.Prev):
		return nav.KeyTab, nav.Modifiers{Shift: true}, true
	}
	return 0, mod, false
}

func helpLine(bindings ...key.Binding) string {
	var out string
	for i, b := range bindings {
		if i > 0 {
			out += "  "
		}
		h := b.Help()
		out += h.Key + ": " + h.Desc
	}
	return out
}
