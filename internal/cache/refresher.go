package cache

import (
	"context"

	"github.com/itsbohara/anchor/internal/events"
)

// Refresher reloads a Store whenever one of the refresh triggers fires:
// window focus, window visibility or a backend references_changed event.
type Refresher struct {
	unsubs []func()
}

// NewRefresher subscribes to the refresh triggers on bus. Each trigger
// starts a Load in its own goroutine; done, if non-nil, receives the
// snapshot after the load completes. Call Close to unsubscribe.
func NewRefresher(ctx context.Context, bus *events.Bus, store *Store, done func(Snapshot)) *Refresher {
	reload := func() {
		go func() {
			_ = store.Load(ctx)
			if done != nil && ctx.Err() == nil {
				done(store.Snapshot())
			}
		}()
	}
	r := &Refresher{}
	for _, name := range []string{events.WindowFocus, events.WindowVisible, events.ReferencesChanged} {
		r.unsubs = append(r.unsubs, bus.Subscribe(name, reload))
	}
	return r
}

// Close removes every subscription made by NewRefresher.
func (r *Refresher) Close() {
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}
