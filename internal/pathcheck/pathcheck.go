// Package pathcheck runs the debounced, advisory "does this path exist"
// check behind the reference form's path field.
package pathcheck

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the quiet period after the last edit before checking.
const DefaultDelay = 500 * time.Millisecond

// WarningText is shown when the backend reports the path missing.
const WarningText = "Warning: Path does not exist. You can still save this reference."

// Checker answers existence queries. remote.Store satisfies it.
type Checker interface {
	PathExists(ctx context.Context, path string) (bool, error)
}

// State is the assistant's UI state. Warning is empty when there is
// nothing to show.
type State struct {
	Checking bool
	Warning  string
}

// Assistant schedules at most one check at a time. Each Edit cancels the
// pending timer and any in-flight call; only the latest edit can change
// the state.
type Assistant struct {
	checker  Checker
	delay    time.Duration
	onChange func(State)

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	state  State
	closed bool
}

// New creates an assistant. A non-positive delay means DefaultDelay;
// onChange may be nil.
func New(checker Checker, delay time.Duration, onChange func(State)) *Assistant {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Assistant{checker: checker, delay: delay, onChange: onChange}
}

// State returns the current state.
func (a *Assistant) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Edit reports a new value of the path field.
func (a *Assistant) Edit(path string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.gen++
	gen := a.gen
	a.stopLocked()

	path = strings.TrimSpace(path)
	if path == "" {
		changed := a.setLocked(State{})
		a.mu.Unlock()
		a.emit(gen, changed)
		return
	}
	a.timer = time.AfterFunc(a.delay, func() { a.check(gen, path) })
	a.mu.Unlock()
}

// Close cancels any pending or running check. Later edits are ignored.
func (a *Assistant) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.gen++
	a.stopLocked()
}

func (a *Assistant) check(gen uint64, path string) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	changed := a.setLocked(State{Checking: true, Warning: a.state.Warning})
	a.mu.Unlock()
	a.emit(gen, changed)

	exists, err := a.checker.PathExists(ctx, path)
	cancel()

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.cancel = nil
	next := State{}
	if err == nil && !exists {
		next.Warning = WarningText
	}
	changed = a.setLocked(next)
	a.mu.Unlock()
	a.emit(gen, changed)
}

func (a *Assistant) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// setLocked stores s and returns it when it differs from the old state.
func (a *Assistant) setLocked(s State) *State {
	if s == a.state {
		return nil
	}
	a.state = s
	return &s
}

// emit reports s unless a newer edit has superseded generation gen. The
// callback runs without the lock, so a late delivery is still possible;
// consumers should render State() rather than the value they were handed.
func (a *Assistant) emit(gen uint64, s *State) {
	if s == nil || a.onChange == nil {
		return
	}
	a.mu.Lock()
	current := gen == a.gen
	a.mu.Unlock()
	if current {
		a.onChange(*s)
	}
}
