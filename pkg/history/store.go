// Package history keeps the user's past queries and turns them into grouped view data.
package history

import (
	"sync"
	"time"
)

// DateLayout is the client-formatted timestamp stamped on new entries.
const DateLayout = "1/2/2006, 3:04:05 PM"

// Entry is one logged result of a past search. Entries are never mutated.
type Entry struct {
	Query string `json:"query" msgpack:"query"`
	URL   string `json:"url" msgpack:"url"`
	Title string `json:"title" msgpack:"title"`
	Date  string `json:"date" msgpack:"date"`
}

// FormatDate renders t the way entries store it.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Listener is notified with every batch appended to a Store.
type Listener func(batch []Entry)

// Store is the append-only history of the signed-in user.
type Store struct {
	entries   []Entry
	listeners []Listener
	mu        sync.RWMutex
}

// NewStore creates a store seeded with entries, typically from the login response.
func NewStore(entries []Entry) *Store {
	s := &Store{}
	s.entries = append(s.entries, entries...)
	return s
}

// Subscribe registers fn and immediately replays the current entries to it.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	current := make([]Entry, len(s.entries))
	copy(current, s.entries)
	s.mu.Unlock()

	if len(current) > 0 {
		fn(current)
	}
}

// Append adds batch to the store and notifies listeners.
func (s *Store) Append(batch ...Entry) {
	if len(batch) == 0 {
		return
	}
	owned := make([]Entry, len(batch))
	copy(owned, batch)

	s.mu.Lock()
	s.entries = append(s.entries, owned...)
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(owned)
	}
}

// Entries returns a snapshot of all entries in append order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Queries returns the query text of every entry.
func Queries(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return out
}
