package dag

import (
	"fmt"
	"maps"
	"sync"
)

// State holds the outputs of completed nodes, keyed by node name. Nodes of
// one level may write to it concurrently.
type State struct {
	mu      sync.RWMutex
	outputs map[string]any
}

// NewState returns an empty State.
func NewState() *State {
	return &State{outputs: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.outputs[key]
	return v, ok
}

// Set stores value under key, replacing any earlier value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[key] = value
}

// Snapshot returns a copy of every stored value.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.outputs)
}

// Port names a State key together with the type stored under it.
type Port[T any] struct {
	Key string
}

// Read returns the value under port.Key as a T. A missing key and a value
// of another type are both errors.
func Read[T any](state *State, port Port[T]) (T, error) {
	var zero T
	raw, ok := state.Get(port.Key)
	if !ok {
		return zero, fmt.Errorf("dag: no output for %q", port.Key)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dag: output of %q is %T, not %T", port.Key, raw, zero)
	}
	return val, nil
}

// Write stores value under port.Key.
func Write[T any](state *State, port Port[T], value T) {
	state.Set(port.Key, value)
}
