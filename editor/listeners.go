package editor

import (
	"sync"

	"github.com/google/uuid"
)

// listenerSet thread safe set of change listeners
type listenerSet[T any] struct {
	lock      sync.Mutex
	listeners map[string]func(T)
}

// add register a listener, returning the function which removes it again
func (s *listenerSet[T]) add(listener func(T)) func() {
	id := uuid.NewString()
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listeners == nil {
		s.listeners = map[string]func(T){}
	}
	s.listeners[id] = listener
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.listeners, id)
	}
}

// emit deliver a value to every listener, outside of the lock
func (s *listenerSet[T]) emit(value T) {
	s.lock.Lock()
	targets := make([]func(T), 0, len(s.listeners))
	for _, listener := range s.listeners {
		targets = append(targets, listener)
	}
	s.lock.Unlock()

	for _, listener := range targets {
		listener(value)
	}
}
