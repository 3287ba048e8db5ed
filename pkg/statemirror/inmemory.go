package statemirror

import (
	"context"
	"fmt"
	"sync"

	"github.com/illmade-knight/go-presence/pkg/presence"
)

// InMemoryMirror is a thread-safe, in-memory implementation of Mirror. It is
// primarily intended for local development and testing.
type InMemoryMirror struct {
	mu     sync.RWMutex
	states map[string]presence.State
}

// NewInMemoryMirror creates a new in-memory mirror.
func NewInMemoryMirror() *InMemoryMirror {
	return &InMemoryMirror{
		states: make(map[string]presence.State),
	}
}

// Set stores the state for a uri.
func (m *InMemoryMirror) Set(_ context.Context, uri string, state presence.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[uri] = state
	return nil
}

// Fetch retrieves the stored state for a uri.
func (m *InMemoryMirror) Fetch(_ context.Context, uri string) (presence.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[uri]
	if !ok {
		return presence.State{}, fmt.Errorf("%q: %w", uri, ErrNotFound)
	}
	return state, nil
}

// Delete removes the entry for a uri.
func (m *InMemoryMirror) Delete(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, uri)
	return nil
}

// Close is a no-op for the in-memory implementation.
func (m *InMemoryMirror) Close() error {
	return nil
}
