// Package nav is the keyboard cursor over the quick-access item list.
package nav

import (
	"sync"

	"github.com/itsbohara/anchor/internal/models"
)

// Key is a navigation key.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyEnter
	KeyEscape
	KeyTab
)

// Modifiers held with a key. Primary selects the terminal, Secondary the
// editor.
type Modifiers struct {
	Primary   bool
	Secondary bool
	Shift     bool
}

// Action is what a key press dispatched.
type Action int

const (
	ActionNone Action = iota
	ActionOpenDefault
	ActionOpenTerminal
	ActionOpenEditor
	ActionDismiss
	ActionFocus
)

func (a Action) String() string {
	switch a {
	case ActionOpenDefault:
		return "open"
	case ActionOpenTerminal:
		return "open-terminal"
	case ActionOpenEditor:
		return "open-editor"
	case ActionDismiss:
		return "dismiss"
	case ActionFocus:
		return "focus"
	}
	return "none"
}

// Focus is the control holding keyboard focus at the panel boundary.
type Focus int

const (
	FocusSearch Focus = iota
	FocusPrimary
)

// Actions receives dispatched commands.
type Actions interface {
	OpenDefault(ref models.Reference)
	OpenTerminal(ref models.Reference)
	OpenEditor(ref models.Reference)
	Dismiss()
}

// Machine tracks the selected index over a list of items. Every transition
// is total: out-of-range moves clamp and actions on an empty list do
// nothing.
type Machine struct {
	actions Actions

	mu     sync.Mutex
	items  []models.Reference
	cursor int
	focus  Focus
}

// New creates a machine with no items. actions may be nil.
func New(actions Actions) *Machine {
	return &Machine{actions: actions}
}

// SetItems replaces the item list and clamps the cursor into range.
func (m *Machine) SetItems(items []models.Reference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	m.cursor = clamp(m.cursor, len(items))
}

// QueryChanged resets the cursor to the first item.
func (m *Machine) QueryChanged() {
	m.mu.Lock()
	m.cursor = 0
	m.mu.Unlock()
}

// Cursor returns the selected index. It is 0 when there are no items.
func (m *Machine) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Focus returns the control holding focus.
func (m *Machine) Focus() Focus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focus
}

// Selected returns the item under the cursor.
func (m *Machine) Selected() (models.Reference, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return models.Reference{}, false
	}
	return m.items[m.cursor], true
}

// Handle applies one key press and returns the dispatched action with its
// target, if any. The Actions callback runs after the state lock is
// released.
func (m *Machine) Handle(key Key, mod Modifiers) (Action, *models.Reference) {
	m.mu.Lock()
	var (
		act    = ActionNone
		target *models.Reference
	)
	n := len(m.items)

	switch key {
	case KeyDown:
		if n > 0 && m.cursor < n-1 {
			m.cursor++
		}
	case KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case KeyEnter:
		if n > 0 {
			r := m.items[m.cursor]
			target = &r
			switch {
			case mod.Primary:
				act = ActionOpenTerminal
			case mod.Secondary:
				act = ActionOpenEditor
			default:
				act = ActionOpenDefault
			}
		}
	case KeyEscape:
		act = ActionDismiss
	case KeyTab:
		switch {
		case m.focus == FocusPrimary && !mod.Shift:
			m.focus = FocusSearch
			act = ActionFocus
		case m.focus == FocusSearch && mod.Shift:
			m.focus = FocusPrimary
			act = ActionFocus
		}
	}
	m.mu.Unlock()

	m.dispatch(act, target)
	return act, target
}

func (m *Machine) dispatch(act Action, target *models.Reference) {
	if m.actions == nil {
		return
	}
	switch act {
	case ActionOpenDefault:
		m.actions.OpenDefault(*target)
	case ActionOpenTerminal:
		m.actions.OpenTerminal(*target)
	case ActionOpenEditor:
		m.actions.OpenEditor(*target)
	case ActionDismiss:
		m.actions.Dismiss()
	}
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
