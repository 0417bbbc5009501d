package counter

import (
	"maps"
	"sync"
)

// State wraps the saved counter state of a list run.
type State struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewState copies initial into a new State. A nil map is fine.
func NewState(initial map[string]int64) *State {
	values := make(map[string]int64, len(initial))
	maps.Copy(values, initial)
	return &State{values: values}
}

// Counter returns the counter for key. With persist the counter reads and
// advances the stored value: it returns the stored value (0 when absent)
// and stores value+1. Without persist a fresh ephemeral counter is returned.
func (s *State) Counter(key string, persist bool) Func {
	if !persist {
		return NewEphemeral()
	}
	return func() int64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		v := s.values[key]
		s.values[key] = v + 1
		return v
	}
}

// Get returns the stored value for key.
func (s *State) Get(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Snapshot returns a copy of the state for persisting.
func (s *State) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}
