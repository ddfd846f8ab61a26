// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventbus

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Entry is one registered subscriber with its handlers. The handler slice is
// never modified after registration.
type Entry struct {
	id         string
	subscriber any
	handlers   []Handler
	active     atomic.Bool
}

// ID returns the registration ID. A subscriber registered again after
// Unregister gets a new ID.
func (e *Entry) ID() string { return e.id }

// Subscriber returns the registered object.
func (e *Entry) Subscriber() any { return e.subscriber }

// Handlers returns a copy of the entry's handlers in declaration order.
func (e *Entry) Handlers() []Handler { return slices.Clone(e.handlers) }

// Active reports whether the entry is still registered.
func (e *Entry) Active() bool { return e.active.Load() }

// Target is one (entry, handler) pair selected for a message.
type Target struct {
	Entry   *Entry
	Handler Handler
}

// Registry holds subscribers in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []*Entry
	index   map[any]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[any]*Entry)}
}

// Register appends subscriber with handlers. An empty handler set is allowed.
func (r *Registry) Register(subscriber any, handlers []Handler) (*Entry, error) {
	if !hasIdentity(subscriber) {
		return nil, ErrInvalidSubscriber
	}

	e := &Entry{
		id:         uuid.NewString(),
		subscriber: subscriber,
		handlers:   slices.Clone(handlers),
	}
	e.active.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[subscriber]; ok {
		return nil, ErrAlreadyRegistered
	}
	r.index[subscriber] = e
	r.entries = append(r.entries, e)
	return e, nil
}

// Unregister removes subscriber and reports whether it was registered.
func (r *Registry) Unregister(subscriber any) (*Entry, bool) {
	if !hasIdentity(subscriber) {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.index[subscriber]
	if !ok {
		return nil, false
	}
	delete(r.index, subscriber)
	// Match works on copies, so deleting in place is safe.
	r.entries = slices.DeleteFunc(r.entries, func(x *Entry) bool { return x == e })
	e.active.Store(false)
	return e, true
}

// Registered reports whether subscriber is registered.
func (r *Registry) Registered(subscriber any) bool {
	if !hasIdentity(subscriber) {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[subscriber]
	return ok
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns a snapshot of the entries in registration order.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Match returns every handler accepting msgType, in registration order and
// then declaration order. No lock is held while matching.
func (r *Registry) Match(msgType reflect.Type, rule TypeMatching) []Target {
	entries := r.Entries()

	var targets []Target
	for _, e := range entries {
		for _, h := range e.handlers {
			if h.accepts(msgType, rule) {
				targets = append(targets, Target{Entry: e, Handler: h})
			}
		}
	}
	return targets
}

// hasIdentity reports whether v is a non-nil pointer-like value that can
// serve as a map key with reference semantics. Pointers to zero-size types
// are excluded: distinct allocations may share one address.
func hasIdentity(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		return !rv.IsNil() && rv.Type().Elem().Size() > 0
	case reflect.Chan:
		return !rv.IsNil()
	default:
		return false
	}
}
