// Package events is a typed listener registry shared by the lobby and the
// game engine. Each registry fixes its set of event kinds up front; emitting
// calls every listener of that kind in registration order, and one listener
// failing (by error or panic) never stops delivery to the rest.
package events

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
)

var (
	ErrUnknownEventKind = errors.New("unrecognized event type")
	ErrListenerNotFound = errors.New("handler not found")
)

// Listener handles one event. A returned error is reported, not propagated.
type Listener[E any] func(E) error

// ListenerID identifies a registration so it can be removed later.
type ListenerID uint64

// ErrorHandler receives listener failures. The default logs them.
type ErrorHandler[K comparable] func(kind K, err error)

type entry[E any] struct {
	id ListenerID
	fn Listener[E]
}

type Dispatcher[K comparable, E any] struct {
	name      string
	mu        sync.RWMutex
	kinds     []K
	listeners map[K][]entry[E]
	nextID    ListenerID
	onError   ErrorHandler[K]
}

// NewDispatcher creates a dispatcher that accepts exactly the given kinds.
func NewDispatcher[K comparable, E any](name string, kinds ...K) *Dispatcher[K, E] {
	d := &Dispatcher[K, E]{
		name:      name,
		kinds:     slices.Clone(kinds),
		listeners: make(map[K][]entry[E], len(kinds)),
	}
	d.onError = func(kind K, err error) {
		log.Printf("[%s] listener for %v failed: %v", d.name, kind, err)
	}
	return d
}

// OnError replaces the failure hook.
func (d *Dispatcher[K, E]) OnError(h ErrorHandler[K]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = h
}

func (d *Dispatcher[K, E]) Kinds() []K {
	return slices.Clone(d.kinds)
}

func (d *Dispatcher[K, E]) AddEventListener(kind K, fn Listener[E]) (ListenerID, error) {
	if !slices.Contains(d.kinds, kind) {
		return 0, fmt.Errorf("%w: %v", ErrUnknownEventKind, kind)
	}
	if fn == nil {
		return 0, errors.New("nil listener")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.listeners[kind] = append(d.listeners[kind], entry[E]{id: d.nextID, fn: fn})
	return d.nextID, nil
}

func (d *Dispatcher[K, E]) RemoveEventListener(kind K, id ListenerID) error {
	if !slices.Contains(d.kinds, kind) {
		return fmt.Errorf("%w: %v", ErrUnknownEventKind, kind)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.listeners[kind]
	idx := slices.IndexFunc(entries, func(e entry[E]) bool { return e.id == id })
	if idx < 0 {
		return ErrListenerNotFound
	}
	d.listeners[kind] = slices.Delete(slices.Clone(entries), idx, idx+1)
	return nil
}

// Emit delivers event to every listener of kind. Listeners run on the
// caller's goroutine; the registry lock is not held while they run, so a
// listener may add or remove listeners or emit further events.
func (d *Dispatcher[K, E]) Emit(kind K, event E) {
	d.mu.RLock()
	entries := d.listeners[kind]
	onError := d.onError
	d.mu.RUnlock()

	for _, e := range entries {
		if err := safeCall(e.fn, event); err != nil {
			onError(kind, err)
		}
	}
}

func safeCall[E any](fn Listener[E], event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(event)
}
