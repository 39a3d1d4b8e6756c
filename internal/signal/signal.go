// Package signal provides handle-based synchronous notification used to
// connect the script engine to its collaborators.
package signal

import (
	"sort"
	"sync"
)

// Listener receives a published value.
type Listener[T any] func(T)

// Signal is a synchronous publish/subscribe registry. Listeners are invoked
// in subscription order on the publishing goroutine.
type Signal[T any] struct {
	mu         sync.RWMutex
	listeners  map[int]Listener[T]
	nextHandle int
}

// New constructs an empty signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{
		listeners: make(map[int]Listener[T]),
	}
}

// Subscribe registers a listener and returns its handle.
// A nil listener is ignored and yields -1.
func (s *Signal[T]) Subscribe(listener Listener[T]) int {
	if listener == nil {
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.nextHandle
	s.nextHandle++
	s.listeners[handle] = listener
	return handle
}

// Unsubscribe removes the listener identified by handle. Unknown handles are ignored.
func (s *Signal[T]) Unsubscribe(handle int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, handle)
}

// Publish delivers value to every listener registered at the time of the call.
// Listeners may subscribe or unsubscribe while being notified.
func (s *Signal[T]) Publish(value T) {
	for _, listener := range s.snapshot() {
		listener(value)
	}
}

// Len reports the number of registered listeners.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func (s *Signal[T]) snapshot() []Listener[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.listeners) == 0 {
		return nil
	}
	handles := make([]int, 0, len(s.listeners))
	for handle := range s.listeners {
		handles = append(handles, handle)
	}
	sort.Ints(handles)
	out := make([]Listener[T], len(handles))
	for i, handle := range handles {
		out[i] = s.listeners[handle]
	}
	return out
}
