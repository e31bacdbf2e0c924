// Package events provides a small multi-subscriber notification
// primitive. Dispatch is synchronous and in subscription order, which
// keeps event ordering deterministic for callers and tests.
package events

import "sync"

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Emitter fans out values to subscribers. The zero value is ready to
// use.
type Emitter[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

// Subscribe registers a handler and returns a function that removes
// it. Unsubscribing twice is harmless.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs = append(e.subs, subscriber[T]{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every subscriber with v, in subscription order. Handlers
// run on the caller's goroutine.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	subs := e.subs
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of active subscribers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
