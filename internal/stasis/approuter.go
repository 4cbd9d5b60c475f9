package stasis

import (
	"fmt"
	"sync"
)

// AppRouter routes application events to named handlers. Each
// registered application gets its own delivery goroutine, so events for
// one application never wait on another's handler.
type AppRouter struct {
	mu   sync.Mutex
	apps map[string]*appEntry
}

type appEntry struct {
	topic *Topic
	sub   *Subscription
}

// NewAppRouter creates an empty router.
func NewAppRouter() *AppRouter {
	return &AppRouter{apps: make(map[string]*appEntry)}
}

// Register attaches handler under name. Registering a name that is
// already taken is an error; Unregister the old handler first.
func (r *AppRouter) Register(name string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("application name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[name]; exists {
		return fmt.Errorf("application %q is already registered", name)
	}

	topic := NewTopic("app:" + name)
	r.apps[name] = &appEntry{
		topic: topic,
		sub:   topic.Subscribe(handler),
	}
	return nil
}

// Unregister removes the named application and joins its delivery
// goroutine, so the name can be reused immediately after Unregister
// returns. Unknown names are ignored.
func (r *AppRouter) Unregister(name string) {
	r.mu.Lock()
	entry, ok := r.apps[name]
	if ok {
		delete(r.apps, name)
	}
	r.mu.Unlock()

	if ok {
		entry.sub.UnsubscribeAndJoin()
	}
}

// Dispatch delivers event to the named application's handler. Events
// for unknown applications are dropped.
func (r *AppRouter) Dispatch(name string, event any) {
	r.mu.Lock()
	entry, ok := r.apps[name]
	r.mu.Unlock()

	if ok {
		entry.topic.Publish(event)
	}
}

// Registered reports whether an application is currently registered.
func (r *AppRouter) Registered(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.apps[name]
	return ok
}

// Close unregisters every application and joins their delivery
// goroutines.
func (r *AppRouter) Close() {
	r.mu.Lock()
	entries := make([]*appEntry, 0, len(r.apps))
	for name, entry := range r.apps {
		entries = append(entries, entry)
		delete(r.apps, name)
	}
	r.mu.Unlock()

	for _, entry := range entries {
		entry.sub.UnsubscribeAndJoin()
	}
}
