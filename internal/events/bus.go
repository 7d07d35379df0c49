// Package events is a small named-event bus used to wire refresh triggers
// (window focus, visibility, backend notifications) to their consumers.
package events

import "sync"

// Event names.
const (
	WindowFocus       = "window.focus"
	WindowVisible     = "window.visible"
	ReferencesChanged = "references_changed"
)

// Handler is invoked synchronously by Emit.
type Handler func()

type subscription struct {
	id uint64
	fn Handler
}

// Bus dispatches named events to subscribers. The zero value is not usable;
// create one with NewBus.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for name and returns a function that removes it.
// Calling the returned function more than once is safe.
func (b *Bus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[name]
			for i, s := range list {
				if s.id == id {
					b.subs[name] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
		})
	}
}

// Emit calls every handler subscribed to name, in subscription order.
func (b *Bus) Emit(name string) {
	b.mu.Lock()
	list := append([]subscription(nil), b.subs[name]...)
	b.mu.Unlock()

	for _, s := range list {
		s.fn()
	}
}

// Count returns the number of handlers subscribed to name.
func (b *Bus) Count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}
