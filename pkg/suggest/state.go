package suggest

import "sync"

// State is what the search bar shows: the primary completion and the suggestion list.
type State struct {
	completer   *Completer
	primary     Entry
	hasPrimary  bool
	suggestions []Entry
	mu          sync.RWMutex
}

// NewState creates an empty completion state.
func NewState(c *Completer) *State {
	return &State{completer: c}
}

// Update recomputes completions for the trailing word of query. An empty
// trailing word or a lookup with no matches keeps the previous state.
// It reports whether the state changed.
func (s *State) Update(query string) bool {
	prefix := TrailingWord(query)
	if prefix == "" {
		return false
	}
	suggestions := s.completer.Complete(prefix)
	if len(suggestions) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary = suggestions[0]
	s.hasPrimary = true
	s.suggestions = suggestions
	return true
}

// Primary returns the first entry of the last non-empty batch.
func (s *State) Primary() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primary, s.hasPrimary
}

// Suggestions returns a copy of the last non-empty batch.
func (s *State) Suggestions() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// Select applies key to query, replacing only the trailing word.
func (s *State) Select(query, key string) string {
	return ReplaceTrailing(query, key)
}
