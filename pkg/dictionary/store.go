// Package dictionary holds the session vocabulary used for completion and typo correction.
//
// A Store is built once when a session starts and is read-only afterwards, so it
// can be shared freely between the completion index and the corrector.
package dictionary

import (
	"github.com/bastiangx/educate/internal/utils"
)

// Store is an immutable, ordered set of dictionary terms.
// Order is the load order and is what the corrector scans.
type Store struct {
	words []string
	set   map[string]struct{}
}

// New builds a Store from words. Empty strings and repeated words are dropped,
// keeping the first occurrence.
func New(words []string) *Store {
	filter := utils.NewSeenFilter("")
	kept := make([]string, 0, len(words))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if !filter.ShouldInclude(w) {
			continue
		}
		kept = append(kept, w)
		set[w] = struct{}{}
	}
	return &Store{words: kept, set: set}
}

// Empty returns a Store with no terms.
func Empty() *Store {
	return New(nil)
}

// Contains reports whether term is an exact member.
func (s *Store) Contains(term string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[term]
	return ok
}

// Words returns the terms in load order. The slice must not be modified.
func (s *Store) Words() []string {
	if s == nil {
		return nil
	}
	return s.words
}

// Len returns the number of distinct terms.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}
