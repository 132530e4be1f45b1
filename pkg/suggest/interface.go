// Package suggest is the completion core: two patricia-trie prefix indices (a global one
// built from the dictionary and a relevance one built from the user's own queries) merged
// into a single, capped suggestion list for the word currently being typed.
package suggest

import "iter"

// Entry is one completion candidate. Within a merged batch the same Key may
// appear twice when both indices know the term.
type Entry struct {
	Key string `json:"key" msgpack:"key"`
}

// PrefixIndex is the contract shared by the global and the relevance index.
type PrefixIndex interface {
	// Add inserts term. Adding a term the index already holds is a no-op.
	Add(term string)

	// Search returns the terms starting with prefix, in insertion order.
	// The sequence is evaluated lazily and can be ranged over more than once.
	Search(prefix string) iter.Seq[Entry]

	// Len returns the number of distinct terms held.
	Len() int
}
